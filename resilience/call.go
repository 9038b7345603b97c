package resilience

import (
	"context"
	"time"
)

// CallOptions names the primitives a call should be wrapped with. Empty
// fields are skipped. Instances are resolved through the registry, so two
// calls naming the same breaker share its state.
type CallOptions struct {
	CircuitBreaker string
	RetryPolicy    string
	RateLimiter    string
	Bulkhead       string
	ErrorBudget    string
}

// DoFunc runs fn under the named primitives, composed outside-in as rate
// limiter, bulkhead, retry policy, circuit breaker. The rate limiter gates
// the call exactly once and its rejection is never retried. The breaker
// sits inside the retry loop so each attempt passes through it, letting the
// loop observe the circuit opening mid-sequence. The error budget records
// one outcome per call, including rejections, after everything else ran.
//
// DoFunc returns fn's error unchanged, or one of the engine sentinels
// (ErrRateLimited, ErrCircuitOpen, ErrBulkheadFull, ErrBulkheadTimeout).
func DoFunc(ctx context.Context, reg *Registry, opts CallOptions, fn func(context.Context) error) error {
	if reg == nil {
		reg = defaultRegistry
	}

	start := time.Now()
	err := doFunc(ctx, reg, opts, fn)

	if opts.ErrorBudget != "" {
		reg.GetErrorBudgetMonitor(opts.ErrorBudget).Record(err == nil)
	}

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	reg.metrics.recordCall(ctx, outcome, time.Since(start))
	return err
}

func doFunc(ctx context.Context, reg *Registry, opts CallOptions, fn func(context.Context) error) error {
	if opts.RateLimiter != "" {
		if !reg.GetRateLimiter(opts.RateLimiter).Allow() {
			return ErrRateLimited
		}
	}

	wrapped := fn
	if opts.CircuitBreaker != "" {
		cb := reg.GetCircuitBreaker(opts.CircuitBreaker)
		inner := wrapped
		wrapped = func(ctx context.Context) error {
			return cb.Execute(func() error { return inner(ctx) })
		}
	}

	run := func(ctx context.Context) error {
		if opts.RetryPolicy != "" {
			return reg.GetRetryPolicy(opts.RetryPolicy).Execute(ctx, wrapped)
		}
		return wrapped(ctx)
	}

	if opts.Bulkhead != "" {
		return reg.GetBulkhead(opts.Bulkhead).Execute(ctx, func() error { return run(ctx) })
	}
	return run(ctx)
}

// Do is the generic variant of DoFunc for calls that produce a value. On
// error the zero value of T is returned.
func Do[T any](ctx context.Context, reg *Registry, opts CallOptions, fn func(context.Context) (T, error)) (T, error) {
	var result T
	err := DoFunc(ctx, reg, opts, func(ctx context.Context) error {
		var err error
		result, err = fn(ctx)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
