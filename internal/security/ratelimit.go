package security

import (
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// ToolRateLimiter enforces independent per-minute and per-hour ceilings on
// invocations of a given tool name, using a token bucket per window so a
// burst doesn't starve the rest of the window.
type ToolRateLimiter struct {
	perMinute int
	perHour   int

	mu       sync.Mutex
	minute   map[string]*rate.Limiter
	hour     map[string]*rate.Limiter
}

// NewToolRateLimiter builds a limiter with, per tool name, one token bucket
// refilling perMinute tokens per minute and one refilling perHour tokens per
// hour, each with a burst equal to its ceiling. Invocations are not counted
// in a sliding window: a bucket that has refilled admits a full burst at
// once. Non-positive values disable that window's ceiling.
func NewToolRateLimiter(perMinute, perHour int) *ToolRateLimiter {
	return &ToolRateLimiter{
		perMinute: perMinute,
		perHour:   perHour,
		minute:    make(map[string]*rate.Limiter),
		hour:      make(map[string]*rate.Limiter),
	}
}

// Allow reports whether another invocation of tool is permitted right now,
// consuming one token from each active window's bucket if so.
func (l *ToolRateLimiter) Allow(tool string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	var minuteRes *rate.Reservation
	if l.perMinute > 0 {
		r := l.minuteLimiter(tool).Reserve()
		if !r.OK() || r.Delay() > 0 {
			r.Cancel()
			return false
		}
		minuteRes = r
	}
	if l.perHour > 0 {
		h := l.hourLimiter(tool)
		if !h.Allow() {
			if minuteRes != nil {
				minuteRes.Cancel()
			}
			return false
		}
	}
	return true
}

func (l *ToolRateLimiter) minuteLimiter(tool string) *rate.Limiter {
	lim, ok := l.minute[tool]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(float64(l.perMinute)/60.0), l.perMinute)
		l.minute[tool] = lim
	}
	return lim
}

func (l *ToolRateLimiter) hourLimiter(tool string) *rate.Limiter {
	lim, ok := l.hour[tool]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(float64(l.perHour)/3600.0), l.perHour)
		l.hour[tool] = lim
	}
	return lim
}

// rateLimitReason formats a denial reason for a rate-limited tool.
func rateLimitReason(tool string) string {
	return fmt.Sprintf("rate limit exceeded for tool %q", tool)
}
