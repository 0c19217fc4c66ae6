// Package ratelimit throttles outbound provider calls with a token bucket
// and a shared backoff window set by 429 responses.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/kbase/internal/core/ports/driven"
)

// Ensure Limiter implements the port.
var _ driven.RateLimiter = (*Limiter)(nil)

// Config holds rate limiting configuration for a provider.
type Config struct {
	// RequestsPerSecond is the sustained rate limit.
	RequestsPerSecond float64
	// BurstSize is the maximum burst size.
	BurstSize int
}

// Backoff bounds.
const (
	// DefaultBackoff is used when a rate limit response carries no Retry-After.
	DefaultBackoff = 5 * time.Second

	// MaxBackoff caps the window one response can open. The limiter is
	// shared by every request to a provider.
	MaxBackoff = 30 * time.Second
)

// Defaults keyed by provider name. Local providers are unthrottled.
var Defaults = map[string]Config{
	"anthropic": {RequestsPerSecond: 4, BurstSize: 4},
	"openai":    {RequestsPerSecond: 8, BurstSize: 8},
}

// Limiter combines a token bucket with a backoff deadline.
type Limiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
	now     func() time.Time
}

// New creates a limiter with the given configuration. A non-positive rate
// disables the token bucket while keeping backoff handling.
func New(cfg Config) *Limiter {
	limit := rate.Inf
	burst := cfg.BurstSize
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		limiter: rate.NewLimiter(limit, burst),
		now:     time.Now,
	}
}

// ForProvider returns a limiter using the provider default, unthrottled if none.
func ForProvider(name string) *Limiter {
	return New(Defaults[name])
}

// Wait blocks until a request may proceed. It honours any backoff window
// recorded by RecordRateLimit before consulting the token bucket.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	retryAt := l.retryAt
	l.mu.Unlock()

	if d := retryAt.Sub(l.now()); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return l.limiter.Wait(ctx)
}

// RecordRateLimit opens a backoff window. Non-positive values use
// DefaultBackoff and longer ones are cut to MaxBackoff. A shorter window
// never replaces a longer one already in force.
func (l *Limiter) RecordRateLimit(retryAfter time.Duration) {
	if retryAfter <= 0 {
		retryAfter = DefaultBackoff
	}
	retryAfter = min(retryAfter, MaxBackoff)

	l.mu.Lock()
	defer l.mu.Unlock()

	until := l.now().Add(retryAfter)
	if until.After(l.retryAt) {
		l.retryAt = until
	}
}
