package http

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	applog "cashtrack/internal/log"
)

const sessionCookie = "cashtrack_session"

// auth gates the API behind a single shared admin password. A successful
// login sets a signed session cookie; every /api route except login and the
// health probes requires it.
type auth struct {
	passwordHash []byte
	secret       []byte
	ttl          time.Duration
	secureCookie bool
	metrics      *securityMetrics
}

func newAuth(passwordHash, secret string, ttl time.Duration, secureCookie bool, metrics *securityMetrics) *auth {
	return &auth{
		passwordHash: []byte(passwordHash),
		secret:       []byte(secret),
		ttl:          ttl,
		secureCookie: secureCookie,
		metrics:      metrics,
	}
}

type loginRequest struct {
	Password string `json:"password"`
}

func (a *auth) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(req.Password)); err != nil {
		atomic.AddInt64(&a.metrics.authRejections, 1)
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Login rejected",
			applog.FieldClientIP, extractClientIP(r))
		writeError(w, http.StatusUnauthorized, "invalid password")
		return
	}

	token, expires, err := a.issueToken(time.Now())
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Token issue failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   a.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]any{"expiresAt": expires.UTC()})
}

func (a *auth) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *auth) issueToken(now time.Time) (string, time.Time, error) {
	expires := now.Add(a.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   "admin",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return token, expires, nil
}

func (a *auth) validToken(raw string) bool {
	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	return err == nil && token.Valid
}

// require rejects requests without a valid session cookie.
func (a *auth) require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookie)
		if err != nil || !a.validToken(cookie.Value) {
			atomic.AddInt64(&a.metrics.authRejections, 1)
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
