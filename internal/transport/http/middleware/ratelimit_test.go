package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/baechuer/otp-auth/internal/domain"
	"github.com/baechuer/otp-auth/internal/infrastructure/redis"
)

type fakeLimiter struct {
	dec         redis.Decision
	err         error
	gotScope    string
	gotIdentity string
	calls       int
}

func (f *fakeLimiter) Allow(_ context.Context, scope, identity string, _ int, _ time.Duration) (redis.Decision, error) {
	f.calls++
	f.gotScope = scope
	f.gotIdentity = identity
	return f.dec, f.err
}

func TestRateLimit_Allowed(t *testing.T) {
	lim := &fakeLimiter{dec: redis.Decision{Allowed: true, Limit: 5, Remaining: 4}}
	we := &writeErrRecorder{}
	next := &nextRecorder{}

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	rr := httptest.NewRecorder()

	RateLimitFixedWindow(lim, FixedWindowConfig{Scope: "login", Limit: 5, Window: time.Minute}, we.fn)(next).ServeHTTP(rr, req)

	if next.calls != 1 || we.calls != 0 {
		t.Fatalf("expected pass-through, next=%d err=%v", next.calls, we.last)
	}
	if lim.gotScope != "login" || lim.gotIdentity != "ip:10.0.0.1" {
		t.Fatalf("unexpected key parts %q %q", lim.gotScope, lim.gotIdentity)
	}
	if rr.Header().Get("X-RateLimit-Remaining") != "4" {
		t.Fatalf("expected remaining header, got %q", rr.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestRateLimit_Rejected(t *testing.T) {
	lim := &fakeLimiter{dec: redis.Decision{Allowed: false, Limit: 1, RetryAfter: 1500 * time.Millisecond}}
	we := &writeErrRecorder{}
	next := &nextRecorder{}

	req := httptest.NewRequest(http.MethodPost, "/send-reset-otp", nil)
	req = req.WithContext(WithUserID(req.Context(), "u9"))
	rr := httptest.NewRecorder()

	RateLimitFixedWindow(lim, FixedWindowConfig{Scope: "otp", Limit: 1}, we.fn)(next).ServeHTTP(rr, req)

	if next.calls != 0 {
		t.Fatalf("next must not run")
	}
	if !domain.Is(we.last, "rate_limited") {
		t.Fatalf("expected rate_limited, got %v", we.last)
	}
	if lim.gotIdentity != "u:u9" {
		t.Fatalf("expected user identity, got %q", lim.gotIdentity)
	}
	if got := rr.Header().Get("Retry-After"); got != "2" {
		t.Fatalf("expected Retry-After rounded up to 2, got %q", got)
	}
}

func TestRateLimit_FailOpen(t *testing.T) {
	lim := &fakeLimiter{err: errors.New("redis down")}
	we := &writeErrRecorder{}
	next := &nextRecorder{}

	RateLimitFixedWindow(lim, FixedWindowConfig{Scope: "login", Limit: 1}, we.fn)(next).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))

	if next.calls != 1 || we.calls != 0 {
		t.Fatalf("expected fail-open, next=%d err=%v", next.calls, we.last)
	}
}

func TestRateLimit_NilLimiter(t *testing.T) {
	we := &writeErrRecorder{}
	next := &nextRecorder{}

	RateLimitFixedWindow(nil, FixedWindowConfig{Scope: "login", Limit: 1}, we.fn)(next).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))

	if next.calls != 1 {
		t.Fatalf("expected pass-through without limiter")
	}
}

func TestLocalRateLimit(t *testing.T) {
	we := &writeErrRecorder{}
	next := &nextRecorder{}
	h := LocalRateLimit(FixedWindowConfig{Scope: "login", Limit: 2, Window: time.Minute}, we.fn)(next)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.7:1234"
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	if next.calls != 2 {
		t.Fatalf("expected 2 requests through, got %d", next.calls)
	}
	if !domain.Is(we.last, "rate_limited") {
		t.Fatalf("expected rate_limited, got %v", we.last)
	}
}
