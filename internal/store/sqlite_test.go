package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"cashtrack/internal/core"
)

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCollectionRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	c, err := s.PutCollection(ctx, core.Collection{
		CleanerName: "Ali",
		Site:        "Tower A",
		Date:        day(2024, 1, 5),
		Amount:      core.Money{Cents: 25000},
		Notes:       "morning round",
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if c.ID == "" {
		t.Fatal("expected generated id")
	}

	got, err := s.GetCollection(ctx, c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != c {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, c)
	}

	c.Amount = core.Money{Cents: 30000}
	if _, err := s.PutCollection(ctx, c); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err = s.GetCollection(ctx, c.ID)
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if got.Amount.Cents != 30000 {
		t.Fatalf("update not applied: %d", got.Amount.Cents)
	}
}

func TestPutCollectionRejectsInvalid(t *testing.T) {
	s := openTestStore(t)
	_, err := s.PutCollection(context.Background(), core.Collection{
		CleanerName: "Ali", Site: "Tower A", Date: day(2024, 1, 5),
	})
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestGetCollectionNotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.GetCollection(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteCollection(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on delete, got %v", err)
	}
}

func TestListCollectionsOrdering(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, c := range []core.Collection{
		{CleanerName: "Omar", Site: "B", Date: day(2024, 1, 10), Amount: core.Money{Cents: 100}},
		{CleanerName: "Ali", Site: "A", Date: day(2024, 1, 20), Amount: core.Money{Cents: 300}},
		{CleanerName: "Ali", Site: "C", Date: day(2024, 1, 15), Amount: core.Money{Cents: 200}},
	} {
		if _, err := s.PutCollection(ctx, c); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	// Default order is newest first.
	got, err := s.ListCollections(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 || !got[0].Date.Equal(day(2024, 1, 20)) || !got[2].Date.Equal(day(2024, 1, 10)) {
		t.Fatalf("unexpected default order: %+v", got)
	}

	got, err = s.ListCollections(ctx, Order{Field: "amount"}, Order{Field: "site", Desc: true})
	if err != nil {
		t.Fatalf("list ordered: %v", err)
	}
	if got[0].Amount.Cents != 100 || got[2].Amount.Cents != 300 {
		t.Fatalf("unexpected amount order: %+v", got)
	}

	if _, err := s.ListCollections(ctx, Order{Field: "notes"}); !errors.Is(err, ErrBadOrderField) {
		t.Fatalf("expected ErrBadOrderField, got %v", err)
	}
}

func TestPurgeCollectionsBefore(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, d := range []time.Time{day(2023, 6, 1), day(2023, 12, 31), day(2024, 1, 1), day(2024, 3, 1)} {
		if _, err := s.PutCollection(ctx, core.Collection{
			CleanerName: "Ali", Site: "A", Date: d, Amount: core.Money{Cents: 100},
		}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	n, err := s.PurgeCollectionsBefore(ctx, day(2024, 1, 1))
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 2 {
		t.Fatalf("purged %d, want 2", n)
	}
	left, err := s.ListCollections(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, c := range left {
		if c.Date.Before(day(2024, 1, 1)) {
			t.Fatalf("record before cutoff survived: %v", c.Date)
		}
	}

	n, err = s.PurgeCollections(ctx)
	if err != nil {
		t.Fatalf("purge all: %v", err)
	}
	if n != 2 {
		t.Fatalf("purged %d, want 2", n)
	}
}

func TestDepositRoundTripAndNormalize(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	d, err := s.PutDeposit(ctx, core.Deposit{
		CleanerName: "Ali",
		Site:        "Tower A",
		Date:        day(2024, 1, 5),
		CashAmount:  core.Money{Cents: 10000},
		CardAmount:  core.Money{Cents: 2500},
		AuthCode:    "X99",
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if d.TotalAmount.Cents != 12500 {
		t.Fatalf("total = %d, want 12500", d.TotalAmount.Cents)
	}
	got, err := s.GetDeposit(ctx, d.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != d {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, d)
	}

	_, err = s.PutDeposit(ctx, core.Deposit{
		CleanerName: "Ali", Site: "Tower A", Date: day(2024, 1, 5),
	})
	if !errors.Is(err, core.ErrNoDepositAmount) {
		t.Fatalf("expected ErrNoDepositAmount, got %v", err)
	}
}

func TestDeleteDepositsReturnsSlips(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	withSlip, _ := s.PutDeposit(ctx, core.Deposit{
		CleanerName: "Ali", Site: "A", Date: day(2024, 1, 5),
		CashAmount: core.Money{Cents: 100}, DepositSlip: "depositSlips/abc",
	})
	noSlip, _ := s.PutDeposit(ctx, core.Deposit{
		CleanerName: "Omar", Site: "B", Date: day(2024, 1, 6),
		CardAmount: core.Money{Cents: 200},
	})

	slips, err := s.DeleteDeposits(ctx, []string{withSlip.ID, noSlip.ID})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(slips) != 1 || slips[0] != "depositSlips/abc" {
		t.Fatalf("slips = %v, want [depositSlips/abc]", slips)
	}
	if _, err := s.GetDeposit(ctx, withSlip.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteDepositsAtomicOnMissingID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	d, _ := s.PutDeposit(ctx, core.Deposit{
		CleanerName: "Ali", Site: "A", Date: day(2024, 1, 5),
		CashAmount: core.Money{Cents: 100},
	})

	if _, err := s.DeleteDeposits(ctx, []string{d.ID, "missing"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	// The whole batch must roll back.
	if _, err := s.GetDeposit(ctx, d.ID); err != nil {
		t.Fatalf("existing deposit must survive failed batch: %v", err)
	}
}

func TestPurgeDepositsBefore(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	s.PutDeposit(ctx, core.Deposit{
		CleanerName: "Ali", Site: "A", Date: day(2023, 6, 1),
		CashAmount: core.Money{Cents: 100}, DepositSlip: "depositSlips/old",
	})
	s.PutDeposit(ctx, core.Deposit{
		CleanerName: "Ali", Site: "A", Date: day(2024, 6, 1),
		CashAmount: core.Money{Cents: 100}, DepositSlip: "depositSlips/new",
	})

	n, slips, err := s.PurgeDepositsBefore(ctx, day(2024, 1, 1))
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 1 {
		t.Fatalf("purged %d, want 1", n)
	}
	if len(slips) != 1 || slips[0] != "depositSlips/old" {
		t.Fatalf("slips = %v, want [depositSlips/old]", slips)
	}

	n, slips, err = s.PurgeDeposits(ctx)
	if err != nil {
		t.Fatalf("purge all: %v", err)
	}
	if n != 1 || len(slips) != 1 || slips[0] != "depositSlips/new" {
		t.Fatalf("purge all: n=%d slips=%v", n, slips)
	}
}

func TestPurgePendingItems(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, d := range []time.Time{day(2023, 6, 1), day(2024, 6, 1), day(2024, 7, 1)} {
		if _, err := s.PutPendingItem(ctx, core.PendingItem{
			CleanerName: "Ali", Site: "A", CarPlate: "P1",
			Amount: core.Money{Cents: 100}, Date: d,
		}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	n, err := s.PurgePendingBefore(ctx, day(2024, 1, 1))
	if err != nil {
		t.Fatalf("purge before: %v", err)
	}
	if n != 1 {
		t.Fatalf("purged %d, want 1", n)
	}

	n, err = s.PurgePendingItems(ctx)
	if err != nil {
		t.Fatalf("purge all: %v", err)
	}
	if n != 2 {
		t.Fatalf("purged %d, want 2", n)
	}
	left, err := s.ListPendingItems(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(left) != 0 {
		t.Fatalf("expected empty, got %d items", len(left))
	}
}

func TestPromotePending(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p, err := s.PutPendingItem(ctx, core.PendingItem{
		CleanerName: "Ali",
		Site:        "Tower A",
		CarPlate:    "P12345",
		Amount:      core.Money{Cents: 25000},
		Date:        day(2024, 1, 5),
	})
	if err != nil {
		t.Fatalf("put pending: %v", err)
	}

	c, err := s.PromotePending(ctx, p.ID)
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if c.ID != p.ID {
		t.Fatalf("promoted collection keeps the item id: %s vs %s", c.ID, p.ID)
	}
	if c.Notes != "Collected from pending: P12345" {
		t.Fatalf("notes = %q", c.Notes)
	}
	if c.Amount != p.Amount || c.CleanerName != p.CleanerName || !c.Date.Equal(p.Date) {
		t.Fatalf("promoted fields mismatch: %+v", c)
	}

	if _, err := s.GetPendingItem(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("pending item must be gone, got %v", err)
	}
	if _, err := s.GetCollection(ctx, c.ID); err != nil {
		t.Fatalf("collection must exist: %v", err)
	}

	if _, err := s.PromotePending(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second promote must fail with ErrNotFound, got %v", err)
	}
}

func TestImportPendingItems(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	items := []core.PendingItem{
		{CleanerName: "Ali", Site: "A", CarPlate: "P1", Amount: core.Money{Cents: 100}, Date: day(2024, 1, 5)},
		{CleanerName: "Omar", Site: "B", CarPlate: "P2", Amount: core.Money{Cents: 200}, Date: day(2024, 1, 5)},
	}
	if err := s.ImportPendingItems(ctx, items); err != nil {
		t.Fatalf("import: %v", err)
	}
	got, err := s.ListPendingItems(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("imported %d items, want 2", len(got))
	}

	bad := []core.PendingItem{
		{CleanerName: "Sara", Site: "C", CarPlate: "P3", Amount: core.Money{Cents: 300}, Date: day(2024, 1, 5)},
		{CleanerName: "", Site: "C", CarPlate: "P4", Amount: core.Money{Cents: 400}, Date: day(2024, 1, 5)},
	}
	if err := s.ImportPendingItems(ctx, bad); err == nil {
		t.Fatal("expected validation error")
	}
	got, _ = s.ListPendingItems(ctx)
	if len(got) != 2 {
		t.Fatalf("failed import must not write any item, have %d", len(got))
	}
}

func TestWatchDeliversChanges(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ch, cancel := s.Watch(core.CollectionsName)
	defer cancel()

	if _, err := s.PutCollection(ctx, core.Collection{
		CleanerName: "Ali", Site: "A", Date: day(2024, 1, 5), Amount: core.Money{Cents: 100},
	}); err != nil {
		t.Fatalf("put: %v", err)
	}

	select {
	case change := <-ch:
		if change.Collection != core.CollectionsName {
			t.Fatalf("change for %q, want %q", change.Collection, core.CollectionsName)
		}
	case <-time.After(time.Second):
		t.Fatal("no change delivered")
	}

	// A deposit write must not wake a collections watcher.
	if _, err := s.PutDeposit(ctx, core.Deposit{
		CleanerName: "Ali", Site: "A", Date: day(2024, 1, 5), CashAmount: core.Money{Cents: 100},
	}); err != nil {
		t.Fatalf("put deposit: %v", err)
	}
	select {
	case change := <-ch:
		t.Fatalf("unexpected change: %+v", change)
	case <-time.After(50 * time.Millisecond):
	}
}
