// Package resilience provides composable fault-tolerance primitives:
// circuit breaking, retrying with backoff, token-bucket rate limiting,
// bulkhead isolation, and rolling-window error-budget monitoring.
//
// Primitives can be used directly:
//
//	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("payments"))
//	err := cb.Execute(func() error {
//	    return chargeCard(req)
//	})
//
// or through a Registry of named, lazily-created singletons composed by the
// Do / DoFunc facade:
//
//	reg := resilience.NewRegistry()
//	result, err := resilience.Do(ctx, reg, resilience.CallOptions{
//	    CircuitBreaker: "payments",
//	    RetryPolicy:    "payments",
//	    RateLimiter:    "payments",
//	    ErrorBudget:    "payments",
//	}, func(ctx context.Context) (Receipt, error) {
//	    return chargeCard(ctx, req)
//	})
//
// Composition order is fixed: the rate limiter gates entry once, the retry
// policy loops, and every attempt passes through the circuit breaker. The
// final outcome is recorded against the error-budget monitor.
//
// Failures are classified with IsRetryable: a NonRetryableError (including
// the engine's own ErrCircuitOpen and ErrRateLimited rejections) aborts a
// retry loop immediately, while everything else transient is retried.
//
// All primitives are safe for concurrent use. Locks are held only for state
// reads and updates, never across the wrapped function, so a slow call does
// not block unrelated callers.
package resilience
