package resilience

import (
	"context"
	"errors"

	apperrors "github.com/kbukum/resilkit/errors"
)

// RetryableError marks a failure as transient: the operation may safely be
// attempted again.
type RetryableError struct {
	Err error
}

// Error returns the message of the wrapped error.
func (e *RetryableError) Error() string { return e.Err.Error() }

// Unwrap returns the wrapped error.
func (e *RetryableError) Unwrap() error { return e.Err }

// NonRetryableError marks a failure as permanent: retrying cannot help.
// The engine's own rejections (open circuit, exhausted rate limit) are of
// this kind.
type NonRetryableError struct {
	Err error
}

// Error returns the message of the wrapped error.
func (e *NonRetryableError) Error() string { return e.Err.Error() }

// Unwrap returns the wrapped error.
func (e *NonRetryableError) Unwrap() error { return e.Err }

// Retryable wraps err so IsRetryable reports true. Returns nil for nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// NonRetryable wraps err so IsRetryable reports false. Returns nil for nil.
func NonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &NonRetryableError{Err: err}
}

// Sentinel rejections raised by the engine itself. Both are permanent: a
// retry loop must surface them immediately.
var (
	// ErrCircuitOpen is returned when a circuit breaker rejects a call
	// without invoking the wrapped function.
	ErrCircuitOpen = NonRetryable(errors.New("resilience: circuit breaker is open"))

	// ErrRateLimited is returned when a rate limiter has no token available.
	ErrRateLimited = NonRetryable(errors.New("resilience: rate limit exceeded"))

	// ErrBulkheadFull is returned when a bulkhead is at capacity.
	ErrBulkheadFull = NonRetryable(errors.New("resilience: bulkhead at capacity"))

	// ErrBulkheadTimeout is returned when a bulkhead slot did not free up
	// within the configured wait.
	ErrBulkheadTimeout = NonRetryable(errors.New("resilience: bulkhead wait timeout"))
)

// IsRetryable classifies an error for retry decisions.
//
// A NonRetryableError anywhere in the chain wins; then an explicit
// RetryableError; then an errors.AppError is classified by its Retryable
// flag. Context cancellation is never retried. Anything else is treated as
// transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var nonRetryable *NonRetryableError
	if errors.As(err, &nonRetryable) {
		return false
	}

	var retryable *RetryableError
	if errors.As(err, &retryable) {
		return true
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	return true
}
