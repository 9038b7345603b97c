package resilience

import (
	"sync"
	"time"
)

// RateLimiterConfig configures a token-bucket rate limiter.
type RateLimiterConfig struct {
	// Name identifies this rate limiter for metrics/logging.
	Name string `mapstructure:"-"`
	// RequestsPerSecond is the token refill rate.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gt=0"`
	// BucketCapacity is the maximum number of tokens, i.e. the burst size.
	BucketCapacity float64 `mapstructure:"bucket_capacity" validate:"gt=0"`
	// OnReject is called when a call is rejected.
	OnReject func(name string) `mapstructure:"-"`
}

// DefaultRateLimiterConfig returns sensible defaults.
func DefaultRateLimiterConfig(name string) RateLimiterConfig {
	return RateLimiterConfig{
		Name:              name,
		RequestsPerSecond: 10.0,
		BucketCapacity:    20.0,
	}
}

// RateLimiter implements a token bucket. Tokens refill continuously at
// RequestsPerSecond up to BucketCapacity; each admitted call consumes one.
// When the bucket is exhausted calls are rejected, never queued.
type RateLimiter struct {
	config RateLimiterConfig

	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// NewRateLimiter creates a new rate limiter with a full bucket.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = 10.0
	}
	if config.BucketCapacity <= 0 {
		config.BucketCapacity = config.RequestsPerSecond
	}

	return &RateLimiter{
		config:     config,
		tokens:     config.BucketCapacity,
		lastRefill: time.Now(),
	}
}

// Allow reports whether a call is admitted, consuming one token if so.
// Refill and consumption happen atomically under the limiter's lock.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refillLocked()

	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}

	if rl.config.OnReject != nil {
		rl.config.OnReject(rl.config.Name)
	}

	return false
}

// Execute runs fn if a token is available, otherwise returns ErrRateLimited
// without invoking fn.
func (rl *RateLimiter) Execute(fn func() error) error {
	if !rl.Allow() {
		return ErrRateLimited
	}
	return fn()
}

// Tokens returns the current token balance after refill.
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refillLocked()
	return rl.tokens
}

// Reset refills the bucket to capacity.
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.tokens = rl.config.BucketCapacity
	rl.lastRefill = time.Now()
}

// refillLocked adds tokens for the time elapsed since the last refill.
// Callers must hold rl.mu.
func (rl *RateLimiter) refillLocked() {
	now := time.Now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	rl.lastRefill = now

	rl.tokens += elapsed * rl.config.RequestsPerSecond
	if rl.tokens > rl.config.BucketCapacity {
		rl.tokens = rl.config.BucketCapacity
	}
}
