package driven

import (
	"context"
	"time"
)

// RateLimiter throttles calls to a remote provider.
type RateLimiter interface {
	// Wait blocks until a call may proceed or ctx is done.
	Wait(ctx context.Context) error

	// RecordRateLimit opens a backoff window after a 429. Zero means the
	// provider gave no Retry-After.
	RecordRateLimit(retryAfter time.Duration)
}
