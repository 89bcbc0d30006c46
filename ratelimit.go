package main

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// -------- Rate limiter (fixed one-minute window per client) --------

type bucket struct {
	tokens int
	reset  time.Time
}

// RateLimiter hands out up to min(burst, rpm) requests per client per window.
type RateLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	rpm      int
	burst    int
	window   time.Duration
	cleanInt time.Duration
	now      func() time.Time
}

func NewRateLimiter(rpm, burst int) *RateLimiter {
	return &RateLimiter{
		buckets:  make(map[string]*bucket),
		rpm:      rpm,
		burst:    burst,
		window:   time.Minute,
		cleanInt: 5 * time.Minute,
		now:      time.Now,
	}
}

// cleanupLoop drops idle buckets until ctx is done.
func (r *RateLimiter) cleanupLoop(ctx context.Context) {
	t := time.NewTicker(r.cleanInt)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.prune()
		}
	}
}

func (r *RateLimiter) prune() {
	now := r.now()
	r.mu.Lock()
	for k, b := range r.buckets {
		if now.After(b.reset.Add(2 * r.window)) {
			delete(r.buckets, k)
		}
	}
	r.mu.Unlock()
}

// Allow takes a token for key. A non-positive rpm disables limiting.
func (r *RateLimiter) Allow(key string) bool {
	if r.rpm <= 0 {
		return true
	}
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.buckets[key]
	if !ok || now.After(b.reset) {
		b = &bucket{tokens: min(r.burst, r.rpm), reset: now.Add(r.window)}
		r.buckets[key] = b
	}
	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// retryAfter is the time until key's window resets.
func (r *RateLimiter) retryAfter(key string) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.buckets[key]; ok {
		if d := b.reset.Sub(r.now()); d > 0 {
			return d
		}
	}
	return 0
}

// clientKey identifies the caller by IP. RealIP has already replaced
// RemoteAddr when a proxy header was present.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// rateLimit rejects requests over the limiter's budget with 429. onLimited,
// if set, is called for each rejection.
func rateLimit(rl *RateLimiter, onLimited func(key string)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)
			if !rl.Allow(key) {
				if onLimited != nil {
					onLimited(key)
				}
				secs := int(rl.retryAfter(key).Round(time.Second) / time.Second)
				w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
				writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
