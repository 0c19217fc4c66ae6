package domain

import (
	"errors"
	"time"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown loader, provider or backend.
	ErrUnsupportedType = errors.New("unsupported type")

	// Pipeline Errors.

	// ErrConfiguration indicates invalid or missing configuration:
	// chunk/overlap sizes, credentials, model identifiers, or an
	// embedding dimension that does not match the index.
	// Fatal at startup.
	ErrConfiguration = errors.New("configuration error")

	// ErrModelLoad indicates an embedding or language model failed to initialise.
	// Fatal at startup, never returned per call.
	ErrModelLoad = errors.New("model load failed")

	// ErrDocumentLoad indicates a single document could not be read or decoded.
	// The indexer logs and skips the document.
	ErrDocumentLoad = errors.New("document load failed")

	// ErrIndexPersistence indicates the vector index could not be read from
	// or written to disk.
	ErrIndexPersistence = errors.New("index persistence failed")

	// ErrTransientGeneration indicates a network or rate-limit failure while
	// calling the language model. Retried up to the attempt budget.
	ErrTransientGeneration = errors.New("transient generation failure")

	// ErrRateLimited indicates the provider rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)

// TransientError wraps a retryable language model failure. RetryAfter is
// the delay the provider asked for, zero when it gave none.
type TransientError struct {
	Err        error
	RetryAfter time.Duration
}

// NewTransientError wraps err as a transient generation failure.
func NewTransientError(err error, retryAfter time.Duration) *TransientError {
	return &TransientError{Err: err, RetryAfter: retryAfter}
}

func (e *TransientError) Error() string {
	if e.Err == nil {
		return ErrTransientGeneration.Error()
	}
	return ErrTransientGeneration.Error() + ": " + e.Err.Error()
}

// Unwrap returns the underlying provider error.
func (e *TransientError) Unwrap() error { return e.Err }

// Is reports ErrTransientGeneration as a match so errors.Is works through wrapping.
func (e *TransientError) Is(target error) bool {
	return target == ErrTransientGeneration
}

// RetryAfter extracts the provider-requested delay from a transient error chain.
func RetryAfter(err error) time.Duration {
	var te *TransientError
	if errors.As(err, &te) {
		return te.RetryAfter
	}
	return 0
}
