package http

import (
	"net/http"
	"time"

	"cashtrack/internal/core"
	"cashtrack/internal/export"
	applog "cashtrack/internal/log"
)

type collectionRequest struct {
	CleanerName string     `json:"cleanerName"`
	Site        string     `json:"site"`
	Date        time.Time  `json:"date"`
	Amount      core.Money `json:"amount"`
	Notes       string     `json:"notes"`
}

func (req collectionRequest) toDomain(id string) core.Collection {
	return core.Collection{
		ID:          id,
		CleanerName: sanitizeInput(req.CleanerName),
		Site:        sanitizeInput(req.Site),
		Date:        req.Date,
		Amount:      req.Amount,
		Notes:       sanitizeInput(req.Notes),
	}
}

func (s *Server) handleListCollections(w http.ResponseWriter, r *http.Request) {
	collections, err := s.store.ListCollections(r.Context(), parseOrder(r)...)
	if err != nil {
		s.logError(r, "List collections failed", err, applog.OpList)
		writeStoreError(w, err)
		return
	}
	if collections == nil {
		collections = []core.Collection{}
	}
	writeJSON(w, http.StatusOK, collections)
}

func (s *Server) handleCreateCollection(w http.ResponseWriter, r *http.Request) {
	var req collectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	created, err := s.store.PutCollection(r.Context(), req.toDomain(""))
	if err != nil {
		s.logError(r, "Create collection failed", err, applog.OpCreate)
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetCollection(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.GetCollection(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleUpdateCollection(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	// Updating a record that no longer exists must fail, not resurrect it.
	if _, err := s.store.GetCollection(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	var req collectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	updated, err := s.store.PutCollection(r.Context(), req.toDomain(id))
	if err != nil {
		s.logError(r, "Update collection failed", err, applog.OpUpdate)
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteCollection(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteCollection(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePurgeCollections deletes collections older than the "before" date,
// or every collection when no date is given.
func (s *Server) handlePurgeCollections(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var (
		n   int64
		err error
	)
	if before := r.URL.Query().Get("before"); before != "" {
		var cutoff time.Time
		cutoff, err = parseDateParam(before)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		n, err = s.store.PurgeCollectionsBefore(ctx, cutoff)
	} else {
		n, err = s.store.PurgeCollections(ctx)
	}
	if err != nil {
		s.logError(r, "Purge collections failed", err, applog.OpPurge)
		writeStoreError(w, err)
		return
	}
	applog.FromContext(ctx).InfoContext(ctx, "Collections purged", "deleted", n)
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

// handleExportCollections streams a CSV of collections within the requested
// date range.
func (s *Server) handleExportCollections(w http.ResponseWriter, r *http.Request) {
	from, err := parseDateParam(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from date")
		return
	}
	to, err := parseDateParam(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to date")
		return
	}

	collections, err := s.store.ListCollections(r.Context(), parseOrder(r)...)
	if err != nil {
		s.logError(r, "Export list failed", err, applog.OpExport)
		writeStoreError(w, err)
		return
	}
	filtered, err := export.FilterRange(collections, from, to)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(from, to)+`"`)
	if err := export.WriteCSV(w, filtered); err != nil {
		s.logError(r, "Export write failed", err, applog.OpExport)
	}
}

func (s *Server) logError(r *http.Request, msg string, err error, op string) {
	ctx := r.Context()
	applog.FromContext(ctx).ErrorContext(ctx, msg,
		applog.FieldError, err.Error(),
		applog.FieldOperation, op,
		applog.FieldPath, r.URL.Path)
}
