package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"cashtrack/internal/core"
	"cashtrack/internal/live"
	applog "cashtrack/internal/log"
	"cashtrack/internal/store"
)

// handleLive streams snapshots of one collection as server-sent events. The
// first event carries the current state; a new event follows every change.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	collection := r.PathValue("collection")

	var lister live.Lister[json.RawMessage]
	switch collection {
	case core.CollectionsName:
		lister = rawLister(s.store.ListCollections)
	case core.DepositsName:
		lister = rawLister(s.store.ListDeposits)
	case core.PendingItemsName:
		lister = rawLister(s.store.ListPendingItems)
	default:
		writeError(w, http.StatusNotFound, "unknown collection "+collection)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	query := live.Subscribe(ctx, s.store, collection, lister)
	defer query.Close()

	logger := applog.FromContext(ctx)
	logger.InfoContext(ctx, "Live stream opened", applog.FieldCollection, collection)

	for snap := range query.Snapshots() {
		if snap.Err != nil {
			logger.ErrorContext(ctx, "Live snapshot failed",
				applog.FieldCollection, collection,
				applog.FieldError, snap.Err.Error())
			fmt.Fprintf(w, "event: error\ndata: {\"error\":\"snapshot failed\"}\n\n")
			flusher.Flush()
			continue
		}
		payload, err := json.Marshal(snap.Data)
		if err != nil {
			logger.ErrorContext(ctx, "Live snapshot encode failed", applog.FieldError, err.Error())
			continue
		}
		fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", payload)
		flusher.Flush()
	}

	logger.InfoContext(ctx, "Live stream closed", applog.FieldCollection, collection)
}

// rawLister adapts a typed list call to the JSON payload the stream emits.
func rawLister[T any](list func(ctx context.Context, order ...store.Order) ([]T, error)) live.Lister[json.RawMessage] {
	return func(ctx context.Context) ([]json.RawMessage, error) {
		items, err := list(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]json.RawMessage, 0, len(items))
		for _, item := range items {
			data, err := json.Marshal(item)
			if err != nil {
				return nil, err
			}
			out = append(out, data)
		}
		return out, nil
	}
}
