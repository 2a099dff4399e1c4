package http

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cashtrack/internal/core"
	"cashtrack/internal/store"
)

// Request bodies are small JSON documents except slip uploads, which carry a
// base64 data URI. 8 MiB leaves room for a phone photo.
const maxBodyBytes = 8 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeStoreError maps store and validation failures to HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "record not found")
	case errors.Is(err, store.ErrBadOrderField):
		writeError(w, http.StatusBadRequest, err.Error())
	case isValidationError(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func isValidationError(err error) bool {
	for _, v := range []error{
		core.ErrInvalidAmount,
		core.ErrEmptyCleaner,
		core.ErrEmptySite,
		core.ErrEmptyCarPlate,
		core.ErrZeroDate,
		core.ErrTotalMismatch,
		core.ErrNoDepositAmount,
	} {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// parseOrder reads repeated order query params of the form "field" or
// "-field" for descending.
func parseOrder(r *http.Request) []store.Order {
	var orders []store.Order
	for _, v := range r.URL.Query()["order"] {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(v, "-"); ok {
			orders = append(orders, store.Order{Field: rest, Desc: true})
		} else {
			orders = append(orders, store.Order{Field: v})
		}
	}
	return orders
}

// parseDateParam accepts yyyy-MM-dd or RFC3339.
func parseDateParam(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
