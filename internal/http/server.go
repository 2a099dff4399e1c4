// Package http exposes the tracker as a JSON API with server-sent events
// for live queries.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/cors"

	"cashtrack/internal/blob"
	applog "cashtrack/internal/log"
	"cashtrack/internal/store"
)

type Server struct {
	http.Server
	store       store.Store
	blobs       blob.Store
	rateLimiter *rateLimiter
	metrics     *securityMetrics
	logger      *applog.Logger

	shutdownOnce sync.Once
}

// Options carries the wiring the server needs beyond its ports.
type Options struct {
	Addr              string
	AdminPasswordHash string
	SessionSecret     string
	SessionTTL        time.Duration
	SecureCookies     bool

	// AllowedOrigins for CORS; empty means same-origin only.
	AllowedOrigins []string

	// SlipDir, when set, is served read-only under /slips/ for the
	// filesystem blob backend.
	SlipDir string
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(opts Options, st store.Store, blobs blob.Store, logger *applog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		store:       st,
		blobs:       blobs,
		rateLimiter: newRateLimiter(),
		metrics:     &securityMetrics{},
		logger:      logger,
	}

	sessions := newAuth(opts.AdminPasswordHash, opts.SessionSecret, opts.SessionTTL, opts.SecureCookies, s.metrics)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/login", sessions.handleLogin)
	mux.HandleFunc("POST /api/logout", sessions.handleLogout)

	api := http.NewServeMux()

	api.HandleFunc("GET /api/collections", s.handleListCollections)
	api.HandleFunc("POST /api/collections", s.handleCreateCollection)
	api.HandleFunc("GET /api/collections/export", s.handleExportCollections)
	api.HandleFunc("DELETE /api/collections", s.handlePurgeCollections)
	api.HandleFunc("GET /api/collections/{id}", s.handleGetCollection)
	api.HandleFunc("PUT /api/collections/{id}", s.handleUpdateCollection)
	api.HandleFunc("DELETE /api/collections/{id}", s.handleDeleteCollection)

	api.HandleFunc("GET /api/deposits", s.handleListDeposits)
	api.HandleFunc("POST /api/deposits", s.handleCreateDeposit)
	api.HandleFunc("POST /api/deposits/delete-batch", s.handleDeleteDepositBatch)
	api.HandleFunc("GET /api/deposits/{id}", s.handleGetDeposit)
	api.HandleFunc("PUT /api/deposits/{id}", s.handleUpdateDeposit)
	api.HandleFunc("DELETE /api/deposits/{id}", s.handleDeleteDeposit)

	api.HandleFunc("GET /api/pending", s.handleListPending)
	api.HandleFunc("POST /api/pending", s.handleCreatePending)
	api.HandleFunc("POST /api/pending/import", s.handleImportPending)
	api.HandleFunc("GET /api/pending/{id}", s.handleGetPending)
	api.HandleFunc("PUT /api/pending/{id}", s.handleUpdatePending)
	api.HandleFunc("DELETE /api/pending/{id}", s.handleDeletePending)
	api.HandleFunc("POST /api/pending/{id}/collect", s.handleCollectPending)

	api.HandleFunc("GET /api/dashboard", s.handleDashboard)
	api.HandleFunc("GET /api/live/{collection}", s.handleLive)
	api.HandleFunc("GET /api/metrics", s.handleMetrics)

	mux.Handle("/api/", sessions.require(api))

	if opts.SlipDir != "" {
		mux.Handle("GET /slips/", http.StripPrefix("/slips/",
			http.FileServer(http.Dir(opts.SlipDir))))
	}

	corsWrapper := cors.New(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})

	var handler http.Handler = mux
	handler = s.withSecurityHeaders(handler)
	handler = corsWrapper.Handler(handler)
	handler = applog.RequestIDMiddleware(func(*http.Request) string { return generateRequestID() })(handler)
	handler = applog.Middleware(logger)(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// withSecurityHeaders adds security headers, rate limiting, and request
// logging to responses.
func (s *Server) withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		logger := applog.FromContext(ctx)
		clientIP := extractClientIP(r)

		// Mutations are rate limited per client.
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP, s.metrics) {
			logger.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		logger.InfoContext(ctx, "Request completed",
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, rw.statusCode,
			applog.FieldDuration, duration.Milliseconds(),
			applog.FieldClientIP, clientIP)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush passes through so SSE streaming keeps working behind the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.snapshot())
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	// Ready once the store answers a trivial query.
	if _, err := s.store.ListCollections(r.Context(), store.Order{Field: "date", Desc: true}); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store not ready")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
