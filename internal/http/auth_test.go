package http

import (
	"testing"
	"time"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	a := newAuth("", "0123456789abcdef0123456789abcdef", time.Hour, false, &securityMetrics{})

	token, expires, err := a.issueToken(time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !expires.After(time.Now()) {
		t.Fatalf("expiry in the past: %v", expires)
	}
	if !a.validToken(token) {
		t.Fatal("fresh token must validate")
	}
}

func TestSessionTokenExpired(t *testing.T) {
	a := newAuth("", "0123456789abcdef0123456789abcdef", time.Minute, false, &securityMetrics{})

	token, _, err := a.issueToken(time.Now().Add(-2 * time.Minute))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if a.validToken(token) {
		t.Fatal("expired token must not validate")
	}
}

func TestSessionTokenWrongSecret(t *testing.T) {
	a := newAuth("", "0123456789abcdef0123456789abcdef", time.Hour, false, &securityMetrics{})
	b := newAuth("", "fedcba9876543210fedcba9876543210", time.Hour, false, &securityMetrics{})

	token, _, err := a.issueToken(time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if b.validToken(token) {
		t.Fatal("token signed with another secret must not validate")
	}
	if b.validToken("not a token") {
		t.Fatal("garbage must not validate")
	}
}
