// Package llm holds helpers shared by the language model adapters.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

// maxErrorBody caps how much of a provider error body ends up in messages.
const maxErrorBody = 512

// StatusOverloaded is Anthropic's non-standard "overloaded" status.
const StatusOverloaded = 529

// IsRetryableStatus reports whether an HTTP status is worth retrying.
func IsRetryableStatus(status int) bool {
	switch {
	case status == http.StatusRequestTimeout,
		status == http.StatusTooManyRequests,
		status == StatusOverloaded:
		return true
	case status >= 500 && status <= 599:
		return true
	default:
		return false
	}
}

// StatusError classifies a non-2xx provider response.
// Retryable statuses become a domain.TransientError carrying Retry-After;
// auth failures map to domain.ErrConfiguration.
func StatusError(provider string, status int, header http.Header, body string) error {
	body = strings.TrimSpace(body)
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody] + "..."
	}
	base := fmt.Errorf("%s: API returned status %d: %s", provider, status, body)

	if IsRetryableStatus(status) {
		if status == http.StatusTooManyRequests {
			base = fmt.Errorf("%w: %w", domain.ErrRateLimited, base)
		}
		return domain.NewTransientError(base, ParseRetryAfter(header.Get("Retry-After"), time.Now()))
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return fmt.Errorf("%w: %w", domain.ErrConfiguration, base)
	}
	return base
}

// TransportError classifies a failed round trip. Caller cancellation is
// returned as-is; timeouts and connection failures are transient.
func TransportError(ctx context.Context, provider string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	wrapped := fmt.Errorf("%s: send request: %w", provider, err)

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return domain.NewTransientError(wrapped, 0)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return domain.NewTransientError(wrapped, 0)
	}
	// http.Client wraps most dial and read failures in *url.Error, which
	// implements net.Error, so anything reaching here is unexpected.
	return wrapped
}

// ParseRetryAfter reads a Retry-After header value given in seconds or as
// an HTTP date. It returns zero when the value is absent or unparseable.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(value); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
