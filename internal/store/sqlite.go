package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"cashtrack/internal/core"
)

// SQLite is the record store backed by a single SQLite database. It embeds a
// Notifier so every successful write broadcasts a Change for its collection.
type SQLite struct {
	db *sql.DB
	*Notifier
}

// OpenSQLite runs migrations and opens the store at dbPath.
func OpenSQLite(dbPath string) (*SQLite, error) {
	if err := RunMigrations(dbPath); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent handlers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	return &SQLite{db: db, Notifier: NewNotifier()}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// Ordering fields accepted per table. Keys are the JSON field names the API
// exposes; values are the column expressions.
var orderColumns = map[string]map[string]string{
	core.CollectionsName: {
		"date":        "date",
		"cleanerName": "cleaner_name",
		"site":        "site",
		"amount":      "amount_cents",
	},
	core.DepositsName: {
		"date":        "date",
		"cleanerName": "cleaner_name",
		"site":        "site",
		"totalAmount": "total_cents",
		"cashAmount":  "cash_cents",
		"cardAmount":  "card_cents",
	},
	core.PendingItemsName: {
		"date":        "date",
		"cleanerName": "cleaner_name",
		"site":        "site",
		"carPlate":    "car_plate",
		"amount":      "amount_cents",
	},
}

func orderClause(collection string, order []Order) (string, error) {
	if len(order) == 0 {
		return " ORDER BY date DESC, id", nil
	}
	cols := orderColumns[collection]
	parts := make([]string, 0, len(order)+1)
	for _, o := range order {
		col, ok := cols[o.Field]
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrBadOrderField, o.Field)
		}
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		parts = append(parts, col+" "+dir)
	}
	parts = append(parts, "id")
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

// Dates are stored as RFC3339 UTC text so that lexical comparison matches
// chronological comparison.
func encodeDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func decodeDate(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

func ensureID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

// Collections

func (s *SQLite) ListCollections(ctx context.Context, order ...Order) ([]core.Collection, error) {
	clause, err := orderClause(core.CollectionsName, order)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, cleaner_name, site, date, amount_cents, notes FROM collections"+clause)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	var out []core.Collection
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCollection(row rowScanner) (core.Collection, error) {
	var c core.Collection
	var date string
	if err := row.Scan(&c.ID, &c.CleanerName, &c.Site, &date, &c.Amount.Cents, &c.Notes); err != nil {
		return core.Collection{}, fmt.Errorf("scan collection: %w", err)
	}
	d, err := decodeDate(date)
	if err != nil {
		return core.Collection{}, fmt.Errorf("decode collection date: %w", err)
	}
	c.Date = d
	return c, nil
}

func (s *SQLite) GetCollection(ctx context.Context, id string) (core.Collection, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, cleaner_name, site, date, amount_cents, notes FROM collections WHERE id = ?", id)
	c, err := scanCollection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Collection{}, ErrNotFound
	}
	return c, err
}

func (s *SQLite) PutCollection(ctx context.Context, c core.Collection) (core.Collection, error) {
	if err := c.Validate(); err != nil {
		return core.Collection{}, err
	}
	c.ID = ensureID(c.ID)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO collections (id, cleaner_name, site, date, amount_cents, notes)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			cleaner_name = excluded.cleaner_name,
			site = excluded.site,
			date = excluded.date,
			amount_cents = excluded.amount_cents,
			notes = excluded.notes`,
		c.ID, c.CleanerName, c.Site, encodeDate(c.Date), c.Amount.Cents, c.Notes)
	if err != nil {
		return core.Collection{}, fmt.Errorf("put collection: %w", err)
	}
	s.Broadcast(core.CollectionsName)
	return c, nil
}

func (s *SQLite) DeleteCollection(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM collections WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	s.Broadcast(core.CollectionsName)
	return nil
}

func (s *SQLite) PurgeCollectionsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM collections WHERE date < ?", encodeDate(cutoff))
	if err != nil {
		return 0, fmt.Errorf("purge collections: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.Broadcast(core.CollectionsName)
	}
	return n, nil
}

func (s *SQLite) PurgeCollections(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM collections")
	if err != nil {
		return 0, fmt.Errorf("purge collections: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.Broadcast(core.CollectionsName)
	}
	return n, nil
}

// Deposits

func (s *SQLite) ListDeposits(ctx context.Context, order ...Order) ([]core.Deposit, error) {
	clause, err := orderClause(core.DepositsName, order)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, cleaner_name, site, date, cash_cents, card_cents, total_cents, deposit_slip, auth_code FROM deposits"+clause)
	if err != nil {
		return nil, fmt.Errorf("list deposits: %w", err)
	}
	defer rows.Close()

	var out []core.Deposit
	for rows.Next() {
		d, err := scanDeposit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanDeposit(row rowScanner) (core.Deposit, error) {
	var d core.Deposit
	var date string
	if err := row.Scan(&d.ID, &d.CleanerName, &d.Site, &date,
		&d.CashAmount.Cents, &d.CardAmount.Cents, &d.TotalAmount.Cents,
		&d.DepositSlip, &d.AuthCode); err != nil {
		return core.Deposit{}, fmt.Errorf("scan deposit: %w", err)
	}
	t, err := decodeDate(date)
	if err != nil {
		return core.Deposit{}, fmt.Errorf("decode deposit date: %w", err)
	}
	d.Date = t
	return d, nil
}

func (s *SQLite) GetDeposit(ctx context.Context, id string) (core.Deposit, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, cleaner_name, site, date, cash_cents, card_cents, total_cents, deposit_slip, auth_code FROM deposits WHERE id = ?", id)
	d, err := scanDeposit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Deposit{}, ErrNotFound
	}
	return d, err
}

func (s *SQLite) PutDeposit(ctx context.Context, d core.Deposit) (core.Deposit, error) {
	d.Normalize()
	if err := d.Validate(); err != nil {
		return core.Deposit{}, err
	}
	d.ID = ensureID(d.ID)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deposits (id, cleaner_name, site, date, cash_cents, card_cents, total_cents, deposit_slip, auth_code)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			cleaner_name = excluded.cleaner_name,
			site = excluded.site,
			date = excluded.date,
			cash_cents = excluded.cash_cents,
			card_cents = excluded.card_cents,
			total_cents = excluded.total_cents,
			deposit_slip = excluded.deposit_slip,
			auth_code = excluded.auth_code`,
		d.ID, d.CleanerName, d.Site, encodeDate(d.Date),
		d.CashAmount.Cents, d.CardAmount.Cents, d.TotalAmount.Cents,
		d.DepositSlip, d.AuthCode)
	if err != nil {
		return core.Deposit{}, fmt.Errorf("put deposit: %w", err)
	}
	s.Broadcast(core.DepositsName)
	return d, nil
}

func (s *SQLite) DeleteDeposits(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin delete deposits: %w", err)
	}
	defer tx.Rollback()

	var slips []string
	for _, id := range ids {
		var slip string
		err := tx.QueryRowContext(ctx, "SELECT deposit_slip FROM deposits WHERE id = ?", id).Scan(&slip)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("lookup deposit %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM deposits WHERE id = ?", id); err != nil {
			return nil, fmt.Errorf("delete deposit %s: %w", id, err)
		}
		if slip != "" {
			slips = append(slips, slip)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit delete deposits: %w", err)
	}
	s.Broadcast(core.DepositsName)
	return slips, nil
}

func (s *SQLite) PurgeDepositsBefore(ctx context.Context, cutoff time.Time) (int64, []string, error) {
	return s.purgeDeposits(ctx, " WHERE date < ?", encodeDate(cutoff))
}

func (s *SQLite) PurgeDeposits(ctx context.Context) (int64, []string, error) {
	return s.purgeDeposits(ctx, "")
}

func (s *SQLite) purgeDeposits(ctx context.Context, where string, args ...any) (int64, []string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("begin purge deposits: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		"SELECT deposit_slip FROM deposits"+where, args...)
	if err != nil {
		return 0, nil, fmt.Errorf("list purge slips: %w", err)
	}
	var slips []string
	for rows.Next() {
		var slip string
		if err := rows.Scan(&slip); err != nil {
			rows.Close()
			return 0, nil, fmt.Errorf("scan purge slip: %w", err)
		}
		if slip != "" {
			slips = append(slips, slip)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, nil, err
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM deposits"+where, args...)
	if err != nil {
		return 0, nil, fmt.Errorf("purge deposits: %w", err)
	}
	n, _ := res.RowsAffected()
	if err := tx.Commit(); err != nil {
		return 0, nil, fmt.Errorf("commit purge deposits: %w", err)
	}
	if n > 0 {
		s.Broadcast(core.DepositsName)
	}
	return n, slips, nil
}

// Pending items

func (s *SQLite) ListPendingItems(ctx context.Context, order ...Order) ([]core.PendingItem, error) {
	clause, err := orderClause(core.PendingItemsName, order)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, cleaner_name, site, car_plate, amount_cents, date FROM pending_items"+clause)
	if err != nil {
		return nil, fmt.Errorf("list pending items: %w", err)
	}
	defer rows.Close()

	var out []core.PendingItem
	for rows.Next() {
		p, err := scanPendingItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPendingItem(row rowScanner) (core.PendingItem, error) {
	var p core.PendingItem
	var date string
	if err := row.Scan(&p.ID, &p.CleanerName, &p.Site, &p.CarPlate, &p.Amount.Cents, &date); err != nil {
		return core.PendingItem{}, fmt.Errorf("scan pending item: %w", err)
	}
	t, err := decodeDate(date)
	if err != nil {
		return core.PendingItem{}, fmt.Errorf("decode pending item date: %w", err)
	}
	p.Date = t
	return p, nil
}

func (s *SQLite) GetPendingItem(ctx context.Context, id string) (core.PendingItem, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, cleaner_name, site, car_plate, amount_cents, date FROM pending_items WHERE id = ?", id)
	p, err := scanPendingItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.PendingItem{}, ErrNotFound
	}
	return p, err
}

func (s *SQLite) PutPendingItem(ctx context.Context, p core.PendingItem) (core.PendingItem, error) {
	if err := p.Validate(); err != nil {
		return core.PendingItem{}, err
	}
	p.ID = ensureID(p.ID)
	if err := upsertPendingItem(ctx, s.db, p); err != nil {
		return core.PendingItem{}, err
	}
	s.Broadcast(core.PendingItemsName)
	return p, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertPendingItem(ctx context.Context, db execer, p core.PendingItem) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO pending_items (id, cleaner_name, site, car_plate, amount_cents, date)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			cleaner_name = excluded.cleaner_name,
			site = excluded.site,
			car_plate = excluded.car_plate,
			amount_cents = excluded.amount_cents,
			date = excluded.date`,
		p.ID, p.CleanerName, p.Site, p.CarPlate, p.Amount.Cents, encodeDate(p.Date))
	if err != nil {
		return fmt.Errorf("put pending item: %w", err)
	}
	return nil
}

func (s *SQLite) DeletePendingItem(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM pending_items WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete pending item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	s.Broadcast(core.PendingItemsName)
	return nil
}

func (s *SQLite) ImportPendingItems(ctx context.Context, items []core.PendingItem) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		if err := items[i].Validate(); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
		items[i].ID = ensureID(items[i].ID)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()
	for _, p := range items {
		if err := upsertPendingItem(ctx, tx, p); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	s.Broadcast(core.PendingItemsName)
	return nil
}

func (s *SQLite) PurgePendingBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM pending_items WHERE date < ?", encodeDate(cutoff))
	if err != nil {
		return 0, fmt.Errorf("purge pending items: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.Broadcast(core.PendingItemsName)
	}
	return n, nil
}

func (s *SQLite) PurgePendingItems(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM pending_items")
	if err != nil {
		return 0, fmt.Errorf("purge pending items: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.Broadcast(core.PendingItemsName)
	}
	return n, nil
}

// PromotePending moves a pending item into collections. The new collection
// keeps the item's id and records the source car plate in its notes.
func (s *SQLite) PromotePending(ctx context.Context, id string) (core.Collection, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Collection{}, fmt.Errorf("begin promote: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		"SELECT id, cleaner_name, site, car_plate, amount_cents, date FROM pending_items WHERE id = ?", id)
	p, err := scanPendingItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Collection{}, ErrNotFound
	}
	if err != nil {
		return core.Collection{}, err
	}

	c := core.Collection{
		ID:          p.ID,
		CleanerName: p.CleanerName,
		Site:        p.Site,
		Date:        p.Date,
		Amount:      p.Amount,
		Notes:       "Collected from pending: " + p.CarPlate,
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO collections (id, cleaner_name, site, date, amount_cents, notes)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.CleanerName, c.Site, encodeDate(c.Date), c.Amount.Cents, c.Notes)
	if err != nil {
		return core.Collection{}, fmt.Errorf("promote insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM pending_items WHERE id = ?", id); err != nil {
		return core.Collection{}, fmt.Errorf("promote delete: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Collection{}, fmt.Errorf("commit promote: %w", err)
	}

	s.Broadcast(core.PendingItemsName)
	s.Broadcast(core.CollectionsName)
	return c, nil
}
