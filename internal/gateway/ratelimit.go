package gateway

import (
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter enforces a per-minute request ceiling per client/session key
// on the gateway's request surface (WS RPC calls, gated HTTP endpoints).
// A zero or negative rpm disables rate limiting entirely.
type RateLimiter struct {
	rpm   int
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewRateLimiter builds a limiter allowing rpm requests per rolling minute,
// per key, with burst as the bucket capacity.
func NewRateLimiter(rpm, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		rpm:      rpm,
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Enabled reports whether rate limiting is active.
func (l *RateLimiter) Enabled() bool { return l.rpm > 0 }

// Allow reports whether another request for key is permitted right now.
func (l *RateLimiter) Allow(key string) bool {
	if !l.Enabled() {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(float64(l.rpm)/60.0), l.burst)
		l.limiters[key] = lim
	}
	return lim.Allow()
}
