package http

import (
	"net/http"
	"time"

	"cashtrack/internal/core"
	applog "cashtrack/internal/log"
)

type dashboardResponse struct {
	Summaries       []core.CleanerSummary `json:"summaries"`
	TotalCashInHand core.Money            `json:"totalCashInHand"`
	AtRiskCount     int                   `json:"atRiskCount"`
	GeneratedAt     time.Time             `json:"generatedAt"`
}

// handleDashboard recomputes per-cleaner balances from the three record
// sets. No caching: a dashboard read always reflects the latest writes.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	collections, err := s.store.ListCollections(ctx)
	if err != nil {
		s.logError(r, "Dashboard collections read failed", err, applog.OpRead)
		writeStoreError(w, err)
		return
	}
	pending, err := s.store.ListPendingItems(ctx)
	if err != nil {
		s.logError(r, "Dashboard pending read failed", err, applog.OpRead)
		writeStoreError(w, err)
		return
	}
	deposits, err := s.store.ListDeposits(ctx)
	if err != nil {
		s.logError(r, "Dashboard deposits read failed", err, applog.OpRead)
		writeStoreError(w, err)
		return
	}

	now := time.Now().UTC()
	summaries := core.Summarize(collections, pending, deposits, now)
	core.SortByCashInHand(summaries)
	if summaries == nil {
		summaries = []core.CleanerSummary{}
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		Summaries:       summaries,
		TotalCashInHand: core.TotalCashInHand(summaries),
		AtRiskCount:     core.CountAtRisk(summaries),
		GeneratedAt:     now,
	})
}
