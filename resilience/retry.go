package resilience

import (
	"context"
	"math/rand"
	"time"
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// Name identifies this retry policy for metrics/logging.
	Name string `mapstructure:"-"`
	// MaxAttempts is the maximum number of attempts (including the first).
	MaxAttempts int `mapstructure:"max_attempts" validate:"gte=1"`
	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration `mapstructure:"initial_delay" validate:"gte=0"`
	// BackoffMultiplier is the factor applied to the delay after each retry.
	BackoffMultiplier float64 `mapstructure:"backoff_multiplier" validate:"gte=1"`
	// MaxDelay caps the delay between retries. 0 means no cap.
	MaxDelay time.Duration `mapstructure:"max_delay" validate:"gte=0"`
	// Jitter adds a random term bounded by the delay itself to each sleep,
	// spreading out synchronized retry storms.
	Jitter bool `mapstructure:"jitter"`
	// RetryIf determines if an error should trigger a retry.
	// Default: IsRetryable.
	RetryIf func(err error) bool `mapstructure:"-"`
	// OnRetry is called before each retry sleep.
	OnRetry func(name string, attempt int, err error, delay time.Duration) `mapstructure:"-"`
}

// DefaultRetryConfig returns sensible defaults.
func DefaultRetryConfig(name string) RetryConfig {
	return RetryConfig{
		Name:              name,
		MaxAttempts:       3,
		InitialDelay:      100 * time.Millisecond,
		BackoffMultiplier: 2.0,
		MaxDelay:          30 * time.Second,
		Jitter:            true,
	}
}

// RetryPolicy executes an operation up to MaxAttempts times with exponential
// backoff. The first attempt is immediate; subsequent delays follow
// InitialDelay, InitialDelay*m, InitialDelay*m², capped at MaxDelay.
// A non-retryable error aborts the loop immediately.
type RetryPolicy struct {
	config RetryConfig
}

// NewRetryPolicy creates a new retry policy.
func NewRetryPolicy(config RetryConfig) *RetryPolicy {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.InitialDelay < 0 {
		config.InitialDelay = 0
	}
	if config.BackoffMultiplier < 1 {
		config.BackoffMultiplier = 2.0
	}
	if config.RetryIf == nil {
		config.RetryIf = IsRetryable
	}

	return &RetryPolicy{config: config}
}

// Execute runs the operation with retry logic. The backoff sleep blocks only
// the calling goroutine and is cut short by context cancellation.
func (p *RetryPolicy) Execute(ctx context.Context, op func(context.Context) error) error {
	var lastErr error
	delay := p.config.InitialDelay

	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}

		lastErr = err

		if !p.config.RetryIf(err) {
			return err
		}

		if attempt >= p.config.MaxAttempts {
			break
		}

		sleep := delay
		if p.config.MaxDelay > 0 && sleep > p.config.MaxDelay {
			sleep = p.config.MaxDelay
		}
		if p.config.Jitter && sleep > 0 {
			// #nosec G404 -- jitter is non-cryptographic timing variance.
			sleep += time.Duration(rand.Float64() * float64(sleep))
		}

		if p.config.OnRetry != nil {
			p.config.OnRetry(p.config.Name, attempt, err, sleep)
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * p.config.BackoffMultiplier)
	}

	return lastErr
}

// Config returns the retry configuration.
func (p *RetryPolicy) Config() RetryConfig {
	return p.config
}

// Retry executes a value-returning function through a retry policy.
func Retry[T any](ctx context.Context, policy *RetryPolicy, fn func(context.Context) (T, error)) (T, error) {
	var result T
	err := policy.Execute(ctx, func(ctx context.Context) error {
		var fnErr error
		result, fnErr = fn(ctx)
		return fnErr
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
