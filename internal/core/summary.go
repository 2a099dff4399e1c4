package core

import (
	"sort"
	"time"
)

// HighBalanceThreshold is the cash-in-hand level above which a cleaner is
// flagged, in minor units (AED 5000).
const HighBalanceThreshold = 5000 * 100

// OverdueDays is the number of whole days without a collection after which a
// cleaner holding cash is flagged.
const OverdueDays = 3

// CleanerSummary is the derived balance for one cleaner. It is recomputed
// from the source records on every read and never persisted.
type CleanerSummary struct {
	Name                    string     `json:"name"`
	TotalCollections        Money      `json:"totalCollections"`
	TotalDeposits           Money      `json:"totalDeposits"`
	CashInHand              Money      `json:"cashInHand"`
	LastCollectionDate      *time.Time `json:"lastCollectionDate,omitempty"`
	DaysSinceLastCollection *int       `json:"daysSinceLastCollection,omitempty"`
}

// HighBalance reports whether the cleaner holds more than the threshold.
func (s CleanerSummary) HighBalance() bool {
	return s.CashInHand.Cents > HighBalanceThreshold
}

// Overdue reports whether the cleaner still holds cash but has not handed in
// a collection for more than OverdueDays.
func (s CleanerSummary) Overdue() bool {
	return s.CashInHand.Cents > 0 &&
		s.DaysSinceLastCollection != nil && *s.DaysSinceLastCollection > OverdueDays
}

// Cleared reports whether the cleaner holds no cash, regardless of recency.
func (s CleanerSummary) Cleared() bool {
	return s.CashInHand.Cents <= 0
}

// AtRisk reports whether the cleaner needs attention.
func (s CleanerSummary) AtRisk() bool {
	return s.HighBalance() || s.Overdue()
}

// Summarize computes one CleanerSummary per distinct cleaner name appearing
// in any of the three record sets, evaluated at now.
//
// Collections and pending items both count toward a cleaner's collected
// total; deposits count toward the deposited total. Records with an empty
// cleaner name are skipped. Names are matched exactly, so case and whitespace
// variants group separately. Cash in hand may be negative and is not
// clamped. The result order is unspecified; see SortByCashInHand.
func Summarize(collections []Collection, pending []PendingItem, deposits []Deposit, now time.Time) []CleanerSummary {
	type acc struct {
		collected Money
		deposited Money
		lastDate  time.Time
		hasDate   bool
	}
	byName := make(map[string]*acc)
	get := func(name string) *acc {
		a, ok := byName[name]
		if !ok {
			a = &acc{}
			byName[name] = a
		}
		return a
	}

	addCollectionLike := func(name string, amount Money, date time.Time) {
		if name == "" {
			return
		}
		a := get(name)
		a.collected = a.collected.Add(amount)
		if !a.hasDate || date.After(a.lastDate) {
			a.lastDate = date
			a.hasDate = true
		}
	}

	for _, c := range collections {
		addCollectionLike(c.CleanerName, c.Amount, c.Date)
	}
	for _, p := range pending {
		addCollectionLike(p.CleanerName, p.Amount, p.Date)
	}
	for _, d := range deposits {
		if d.CleanerName == "" {
			continue
		}
		a := get(d.CleanerName)
		a.deposited = a.deposited.Add(d.TotalAmount)
	}

	summaries := make([]CleanerSummary, 0, len(byName))
	for name, a := range byName {
		s := CleanerSummary{
			Name:             name,
			TotalCollections: a.collected,
			TotalDeposits:    a.deposited,
			CashInHand:       a.collected.Sub(a.deposited),
		}
		if a.hasDate {
			last := a.lastDate
			days := int(now.Sub(last) / (24 * time.Hour))
			s.LastCollectionDate = &last
			s.DaysSinceLastCollection = &days
		}
		summaries = append(summaries, s)
	}
	return summaries
}

// SortByCashInHand orders summaries descending by cash in hand, with name as
// a tiebreaker so the order is stable across recomputations.
func SortByCashInHand(summaries []CleanerSummary) {
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].CashInHand.Cents != summaries[j].CashInHand.Cents {
			return summaries[i].CashInHand.Cents > summaries[j].CashInHand.Cents
		}
		return summaries[i].Name < summaries[j].Name
	})
}

// TotalCashInHand sums cash in hand across all summaries.
func TotalCashInHand(summaries []CleanerSummary) Money {
	var total Money
	for _, s := range summaries {
		total = total.Add(s.CashInHand)
	}
	return total
}

// CountAtRisk counts summaries flagged by the alert rules.
func CountAtRisk(summaries []CleanerSummary) int {
	n := 0
	for _, s := range summaries {
		if s.AtRisk() {
			n++
		}
	}
	return n
}
