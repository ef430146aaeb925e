// ratelimit.go implements a per-IP rate limiter using a fixed window
// counter stored in memory.
package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/chronicle-calendar/internal/apperror"
)

// rateLimitEntry tracks request counts for a single IP within a time window.
type rateLimitEntry struct {
	count       int
	windowStart time.Time
}

// RateLimiter limits requests per client IP.
type RateLimiter struct {
	maxRequests int
	window      time.Duration
	now         func() time.Time

	mu      sync.Mutex
	entries map[string]*rateLimitEntry
}

// NewRateLimiter creates a limiter allowing maxRequests per window per IP.
func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
		entries:     make(map[string]*rateLimitEntry),
	}
}

// Run removes expired entries every window until ctx is done.
func (l *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

func (l *RateLimiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for ip, entry := range l.entries {
		if now.Sub(entry.windowStart) > l.window*2 {
			delete(l.entries, ip)
		}
	}
}

// allow counts one request from ip. When the limit is exceeded it returns
// false and how long until the window resets.
func (l *RateLimiter) allow(ip string) (bool, time.Duration) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, exists := l.entries[ip]
	if !exists || now.Sub(entry.windowStart) > l.window {
		l.entries[ip] = &rateLimitEntry{count: 1, windowStart: now}
		return true, 0
	}
	entry.count++
	if entry.count > l.maxRequests {
		return false, l.window - now.Sub(entry.windowStart)
	}
	return true, 0
}

// Middleware returns the Echo middleware. Requests for which skip returns
// true are not counted. Returns 429 with Retry-After when exceeded.
func (l *RateLimiter) Middleware(skip func(c echo.Context) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skip != nil && skip(c) {
				return next(c)
			}
			ok, wait := l.allow(c.RealIP())
			if !ok {
				return apperror.NewRateLimited(int(wait.Seconds()) + 1)
			}
			return next(c)
		}
	}
}
