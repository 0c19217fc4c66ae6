// Package retry wraps an LLM service with bounded exponential backoff for
// transient failures.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
	"github.com/custodia-labs/kbase/internal/logger"
	"github.com/custodia-labs/kbase/internal/ratelimit"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default policy values.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 500 * time.Millisecond
	DefaultMaxDelay    = 8 * time.Second
	DefaultMultiplier  = 2.0

	// MaxRetryAfter bounds how long a provider Retry-After can stall a
	// request, through the sleep here or the shared limiter window.
	MaxRetryAfter = ratelimit.MaxBackoff
)

// Policy controls the retry schedule.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
}

// DefaultPolicy returns three attempts at 500ms, 1s backoff.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
		Multiplier:  DefaultMultiplier,
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = d.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = d.MaxDelay
	}
	if p.Multiplier < 1 {
		p.Multiplier = d.Multiplier
	}
	return p
}

// Backoff returns the delay before the retry following attempt (1-based).
func (p Policy) Backoff(attempt int) time.Duration {
	delay := float64(p.BaseDelay)
	for i := 1; i < attempt; i++ {
		delay *= p.Multiplier
		if delay >= float64(p.MaxDelay) {
			return p.MaxDelay
		}
	}
	return time.Duration(delay)
}

// LLMService retries transient Generate failures of the wrapped service.
type LLMService struct {
	next    driven.LLMService
	policy  Policy
	limiter driven.RateLimiter
	sleep   func(ctx context.Context, d time.Duration) error
}

// Option configures the retrying service.
type Option func(*LLMService)

// WithLimiter throttles every attempt through l and feeds it 429 backoff.
func WithLimiter(l driven.RateLimiter) Option {
	return func(s *LLMService) { s.limiter = l }
}

// WithSleep replaces the backoff sleeper. Used by tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(s *LLMService) { s.sleep = fn }
}

// New wraps next with the given policy. Zero policy fields take defaults.
func New(next driven.LLMService, policy Policy, opts ...Option) *LLMService {
	s := &LLMService{
		next:   next,
		policy: policy.withDefaults(),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate calls the wrapped service, retrying only domain.ErrTransientGeneration.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= s.policy.MaxAttempts; attempt++ {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return "", err
			}
		}

		out, err := s.next.Generate(ctx, prompt, opts)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, domain.ErrTransientGeneration) {
			return "", err
		}
		lastErr = err

		retryAfter := min(domain.RetryAfter(err), MaxRetryAfter)
		if s.limiter != nil && errors.Is(err, domain.ErrRateLimited) {
			s.limiter.RecordRateLimit(retryAfter)
		}
		if attempt == s.policy.MaxAttempts {
			break
		}

		delay := s.policy.Backoff(attempt)
		delay = max(delay, retryAfter)
		logger.Warn("%s: attempt %d/%d failed, retrying in %s: %v",
			s.next.ModelName(), attempt, s.policy.MaxAttempts, delay, err)

		if err := s.sleep(ctx, delay); err != nil {
			return "", err
		}
	}

	return "", fmt.Errorf("generate failed after %d attempts: %w", s.policy.MaxAttempts, lastErr)
}

// ModelName returns the wrapped model name.
func (s *LLMService) ModelName() string {
	return s.next.ModelName()
}

// Ping delegates without retrying.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

// Close closes the wrapped service.
func (s *LLMService) Close() error {
	return s.next.Close()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
