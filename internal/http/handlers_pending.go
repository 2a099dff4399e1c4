package http

import (
	"net/http"
	"time"

	"cashtrack/internal/core"
	"cashtrack/internal/importer"
	applog "cashtrack/internal/log"
)

type pendingRequest struct {
	CleanerName string     `json:"cleanerName"`
	Site        string     `json:"site"`
	CarPlate    string     `json:"carPlate"`
	Amount      core.Money `json:"amount"`
	Date        time.Time  `json:"date"`
}

func (req pendingRequest) toDomain(id string) core.PendingItem {
	return core.PendingItem{
		ID:          id,
		CleanerName: sanitizeInput(req.CleanerName),
		Site:        sanitizeInput(req.Site),
		CarPlate:    sanitizeInput(req.CarPlate),
		Amount:      req.Amount,
		Date:        req.Date,
	}
}

func (s *Server) handleListPending(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListPendingItems(r.Context(), parseOrder(r)...)
	if err != nil {
		s.logError(r, "List pending items failed", err, applog.OpList)
		writeStoreError(w, err)
		return
	}
	if items == nil {
		items = []core.PendingItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreatePending(w http.ResponseWriter, r *http.Request) {
	var req pendingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	created, err := s.store.PutPendingItem(r.Context(), req.toDomain(""))
	if err != nil {
		s.logError(r, "Create pending item failed", err, applog.OpCreate)
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetPending(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetPendingItem(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdatePending(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.store.GetPendingItem(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	var req pendingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	updated, err := s.store.PutPendingItem(r.Context(), req.toDomain(id))
	if err != nil {
		s.logError(r, "Update pending item failed", err, applog.OpUpdate)
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeletePending(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeletePendingItem(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCollectPending confirms a pending item, turning it into a
// collection in one atomic step.
func (s *Server) handleCollectPending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, err := s.store.PromotePending(ctx, r.PathValue("id"))
	if err != nil {
		s.logError(r, "Collect pending item failed", err, applog.OpPromote)
		writeStoreError(w, err)
		return
	}
	applog.FromContext(ctx).InfoContext(ctx, "Pending item collected",
		applog.FieldRecordID, c.ID,
		applog.FieldCleanerName, c.CleanerName,
		applog.FieldAmountCents, c.Amount.Cents)
	writeJSON(w, http.StatusOK, c)
}

type importRequest struct {
	Text string `json:"text"`
}

type importResponse struct {
	Imported int                    `json:"imported"`
	Skipped  []importer.SkippedLine `json:"skipped,omitempty"`
}

// handleImportPending parses pasted spreadsheet text and writes the valid
// rows as pending items in one batch.
func (s *Server) handleImportPending(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := importer.Parse(req.Text, time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if len(res.Items) > 0 {
		if err := s.store.ImportPendingItems(r.Context(), res.Items); err != nil {
			s.logError(r, "Import pending items failed", err, applog.OpImport)
			writeStoreError(w, err)
			return
		}
	}

	ctx := r.Context()
	applog.FromContext(ctx).InfoContext(ctx, "Pending items imported",
		"imported", len(res.Items),
		"skipped", len(res.Skipped))
	writeJSON(w, http.StatusOK, importResponse{
		Imported: len(res.Items),
		Skipped:  res.Skipped,
	})
}
