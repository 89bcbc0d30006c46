package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllow(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	rl := NewRateLimiter(3, 5)
	rl.now = clock.Now

	for i := 0; i < 3; i++ {
		require.True(t, rl.Allow("a"), "request %d", i)
	}
	require.False(t, rl.Allow("a"), "burst is capped at rpm")
	require.True(t, rl.Allow("b"))
	require.Equal(t, time.Minute, rl.retryAfter("a"))

	clock.Advance(61 * time.Second)
	require.True(t, rl.Allow("a"), "new window")
	require.Zero(t, rl.retryAfter("missing"))
}

func TestRateLimiterDisabled(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(0, 0)
	for i := 0; i < 100; i++ {
		require.True(t, rl.Allow("a"))
	}
}

func TestRateLimiterPrune(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	rl := NewRateLimiter(10, 1)
	rl.now = clock.Now

	rl.Allow("old")
	clock.Advance(2 * time.Minute)
	rl.Allow("recent")
	clock.Advance(90 * time.Second)
	rl.prune()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	require.NotContains(t, rl.buckets, "old")
	require.Contains(t, rl.buckets, "recent")
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Parallel()

	var limited []string
	h := rateLimit(NewRateLimiter(1, 1), func(key string) { limited = append(limited, key) })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }),
	)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:5000"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "60", rec.Header().Get("Retry-After"))
	require.Equal(t, []string{"198.51.100.7"}, limited)
}

func TestClientKey(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "[2001:db8::1]:443"
	require.Equal(t, "2001:db8::1", clientKey(req))

	req.RemoteAddr = "203.0.113.9"
	require.Equal(t, "203.0.113.9", clientKey(req))
}
