package core

import (
	"testing"
	"time"
)

func summaryByName(t *testing.T, summaries []CleanerSummary, name string) CleanerSummary {
	t.Helper()
	for _, s := range summaries {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("no summary for %q", name)
	return CleanerSummary{}
}

func TestSummarizeEmptyInputs(t *testing.T) {
	got := Summarize(nil, nil, nil, time.Now())
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %d summaries", len(got))
	}
}

func TestSummarizeCashInHand(t *testing.T) {
	now := date(2024, 2, 1)
	collections := []Collection{
		{CleanerName: "Ali", Site: "Tower A", Date: date(2024, 1, 5), Amount: Money{Cents: 30000}},
		{CleanerName: "Ali", Site: "Tower B", Date: date(2024, 1, 20), Amount: Money{Cents: 20000}},
		{CleanerName: "Omar", Site: "Tower A", Date: date(2024, 1, 10), Amount: Money{Cents: 10000}},
	}
	pending := []PendingItem{
		{CleanerName: "Ali", Site: "Tower C", CarPlate: "P1", Amount: Money{Cents: 5000}, Date: date(2024, 1, 25)},
	}
	deposits := []Deposit{
		{CleanerName: "Ali", Site: "Tower A", Date: date(2024, 1, 21), CashAmount: Money{Cents: 40000}, CardAmount: Money{}, TotalAmount: Money{Cents: 40000}},
	}

	got := Summarize(collections, pending, deposits, now)
	if len(got) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(got))
	}

	ali := summaryByName(t, got, "Ali")
	if ali.TotalCollections.Cents != 55000 {
		t.Fatalf("Ali collections = %d, want 55000", ali.TotalCollections.Cents)
	}
	if ali.TotalDeposits.Cents != 40000 {
		t.Fatalf("Ali deposits = %d, want 40000", ali.TotalDeposits.Cents)
	}
	if ali.CashInHand.Cents != 15000 {
		t.Fatalf("Ali cash in hand = %d, want 15000", ali.CashInHand.Cents)
	}
	if ali.LastCollectionDate == nil || !ali.LastCollectionDate.Equal(date(2024, 1, 25)) {
		t.Fatalf("Ali last collection = %v, want 2024-01-25", ali.LastCollectionDate)
	}
	if ali.DaysSinceLastCollection == nil || *ali.DaysSinceLastCollection != 7 {
		t.Fatalf("Ali days since = %v, want 7", ali.DaysSinceLastCollection)
	}

	omar := summaryByName(t, got, "Omar")
	if omar.CashInHand.Cents != 10000 {
		t.Fatalf("Omar cash in hand = %d, want 10000", omar.CashInHand.Cents)
	}
}

func TestSummarizeDepositsOnlyCleaner(t *testing.T) {
	deposits := []Deposit{
		{CleanerName: "Hassan", Site: "Tower A", Date: date(2024, 1, 5), CashAmount: Money{Cents: 7500}, TotalAmount: Money{Cents: 7500}},
	}
	got := Summarize(nil, nil, deposits, date(2024, 2, 1))
	if len(got) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(got))
	}
	s := got[0]
	if s.CashInHand.Cents != -7500 {
		t.Fatalf("cash in hand = %d, want -7500 (not clamped)", s.CashInHand.Cents)
	}
	if s.LastCollectionDate != nil || s.DaysSinceLastCollection != nil {
		t.Fatalf("expected absent last collection date, got %v / %v", s.LastCollectionDate, s.DaysSinceLastCollection)
	}
	if !s.Cleared() {
		t.Fatalf("negative balance should count as cleared")
	}
}

func TestSummarizeSkipsEmptyNamesAndKeepsVariantsDistinct(t *testing.T) {
	collections := []Collection{
		{CleanerName: "", Site: "s", Date: date(2024, 1, 5), Amount: Money{Cents: 100}},
		{CleanerName: "Ali", Site: "s", Date: date(2024, 1, 5), Amount: Money{Cents: 100}},
		{CleanerName: "ali", Site: "s", Date: date(2024, 1, 5), Amount: Money{Cents: 200}},
		{CleanerName: "Ali ", Site: "s", Date: date(2024, 1, 5), Amount: Money{Cents: 300}},
	}
	got := Summarize(collections, nil, nil, date(2024, 2, 1))
	if len(got) != 3 {
		t.Fatalf("expected 3 distinct cleaners, got %d", len(got))
	}
	if summaryByName(t, got, "Ali").TotalCollections.Cents != 100 {
		t.Fatalf("name variants must not merge")
	}
}

func TestAlertRules(t *testing.T) {
	days := func(n int) *int { return &n }
	cases := []struct {
		name    string
		s       CleanerSummary
		atRisk  bool
		cleared bool
	}{
		{"high balance", CleanerSummary{CashInHand: Money{Cents: 5000_01}}, true, false},
		{"at threshold", CleanerSummary{CashInHand: Money{Cents: 5000_00}}, false, false},
		{"overdue with cash", CleanerSummary{CashInHand: Money{Cents: 100}, DaysSinceLastCollection: days(4)}, true, false},
		{"overdue boundary", CleanerSummary{CashInHand: Money{Cents: 100}, DaysSinceLastCollection: days(3)}, false, false},
		{"stale but cleared", CleanerSummary{CashInHand: Money{Cents: 0}, DaysSinceLastCollection: days(10)}, false, true},
		{"stale and negative", CleanerSummary{CashInHand: Money{Cents: -500}, DaysSinceLastCollection: days(10)}, false, true},
	}
	for _, tc := range cases {
		if got := tc.s.AtRisk(); got != tc.atRisk {
			t.Fatalf("%s: AtRisk = %v, want %v", tc.name, got, tc.atRisk)
		}
		if got := tc.s.Cleared(); got != tc.cleared {
			t.Fatalf("%s: Cleared = %v, want %v", tc.name, got, tc.cleared)
		}
	}
}

func TestSortAndTotals(t *testing.T) {
	summaries := []CleanerSummary{
		{Name: "b", CashInHand: Money{Cents: 100}},
		{Name: "a", CashInHand: Money{Cents: 300}},
		{Name: "c", CashInHand: Money{Cents: -50}},
	}
	SortByCashInHand(summaries)
	if summaries[0].Name != "a" || summaries[1].Name != "b" || summaries[2].Name != "c" {
		t.Fatalf("unexpected order: %v %v %v", summaries[0].Name, summaries[1].Name, summaries[2].Name)
	}
	if TotalCashInHand(summaries).Cents != 350 {
		t.Fatalf("total = %d, want 350", TotalCashInHand(summaries).Cents)
	}
}
