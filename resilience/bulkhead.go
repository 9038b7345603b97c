package resilience

import (
	"context"
	"time"
)

// BulkheadConfig configures a bulkhead.
type BulkheadConfig struct {
	// Name identifies this bulkhead for metrics/logging.
	Name string `mapstructure:"-"`
	// MaxConcurrent is the maximum number of concurrent calls.
	MaxConcurrent int `mapstructure:"max_concurrent" validate:"gt=0"`
	// MaxWait is how long to wait for a slot. 0 means fail immediately.
	MaxWait time.Duration `mapstructure:"max_wait" validate:"gte=0"`
	// OnReject is called when a call is rejected.
	OnReject func(name string) `mapstructure:"-"`
}

// DefaultBulkheadConfig returns sensible defaults.
func DefaultBulkheadConfig(name string) BulkheadConfig {
	return BulkheadConfig{
		Name:          name,
		MaxConcurrent: 10,
		MaxWait:       0,
	}
}

// Bulkhead limits the number of calls in flight at once, isolating a
// dependency so it cannot exhaust the caller's resources.
type Bulkhead struct {
	config BulkheadConfig
	sem    chan struct{}
}

// NewBulkhead creates a new bulkhead.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 10
	}

	return &Bulkhead{
		config: config,
		sem:    make(chan struct{}, config.MaxConcurrent),
	}
}

// Execute runs the given function within the bulkhead.
// Returns ErrBulkheadFull or ErrBulkheadTimeout if no slot is available.
func (b *Bulkhead) Execute(ctx context.Context, fn func() error) error {
	if err := b.acquire(ctx); err != nil {
		if b.config.OnReject != nil {
			b.config.OnReject(b.config.Name)
		}
		return err
	}
	defer b.release()

	return fn()
}

func (b *Bulkhead) acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		return nil
	default:
	}

	if b.config.MaxWait <= 0 {
		return ErrBulkheadFull
	}

	timer := time.NewTimer(b.config.MaxWait)
	defer timer.Stop()

	select {
	case b.sem <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrBulkheadTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bulkhead) release() {
	<-b.sem
}

// Available returns the number of free slots.
func (b *Bulkhead) Available() int {
	return b.config.MaxConcurrent - len(b.sem)
}

// InUse returns the number of slots currently in use.
func (b *Bulkhead) InUse() int {
	return len(b.sem)
}
