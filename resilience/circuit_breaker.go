package resilience

import (
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed allows requests to pass through.
	StateClosed State = iota
	// StateOpen blocks all requests.
	StateOpen
	// StateHalfOpen allows trial requests to test recovery.
	StateHalfOpen
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures a circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies this circuit breaker for metrics/logging.
	Name string `mapstructure:"-"`
	// FailureThreshold is the number of consecutive failures before opening
	// the circuit.
	FailureThreshold int `mapstructure:"failure_threshold" validate:"gt=0"`
	// SuccessThreshold is the number of consecutive successes in half-open
	// state required to close the circuit.
	SuccessThreshold int `mapstructure:"success_threshold" validate:"gt=0"`
	// Timeout is how long the circuit stays open before admitting probes.
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
	// OnStateChange is called when state changes.
	OnStateChange func(name string, from, to State) `mapstructure:"-"`
	// IsFailure determines if an error should count as a failure.
	// Default: all non-nil errors are failures.
	IsFailure func(err error) bool `mapstructure:"-"`
}

// DefaultCircuitBreakerConfig returns sensible defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
	}
}

// CircuitBreaker implements the circuit breaker pattern.
// It prevents cascading failures by failing fast when a dependency is
// unhealthy.
//
// States:
//   - Closed: Normal operation, requests pass through
//   - Open: Dependency is unhealthy, requests fail immediately
//   - Half-Open: Testing if the dependency recovered
//
// While half-open the breaker admits any number of probes; SuccessThreshold
// consecutive successes close the circuit and a single failure reopens it.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu           sync.Mutex
	state        State
	failureCount int
	successCount int
	openedAt     time.Time
}

// BreakerSnapshot is a read-only view of a breaker's state and counters.
type BreakerSnapshot struct {
	State        State  `json:"-"`
	StateName    string `json:"state"`
	FailureCount int    `json:"failure_count"`
	SuccessCount int    `json:"success_count"`
}

// NewCircuitBreaker creates a new circuit breaker in the closed state.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 2
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return err != nil }
	}

	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
	}
}

// Execute runs the given function through the circuit breaker.
//
// If the circuit is open and its timeout has not elapsed, ErrCircuitOpen is
// returned and fn is never invoked. Otherwise fn runs and its error, if any,
// is returned to the caller unchanged.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.beforeCall(); err != nil {
		return err
	}

	err := fn()
	cb.afterCall(err)
	return err
}

// State returns the current circuit breaker state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Snapshot returns the current state and counters. Repeated calls without
// intervening Execute calls return identical snapshots.
func (cb *CircuitBreaker) Snapshot() BreakerSnapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return BreakerSnapshot{
		State:        cb.state,
		StateName:    cb.state.String(),
		FailureCount: cb.failureCount,
		SuccessCount: cb.successCount,
	}
}

// Reset returns the breaker to the closed state with zero counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.setState(StateClosed)
	cb.failureCount = 0
	cb.successCount = 0
}

// beforeCall decides whether the call may proceed, handling the timed
// open to half-open transition.
func (cb *CircuitBreaker) beforeCall() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if time.Since(cb.openedAt) < cb.config.Timeout {
			return ErrCircuitOpen
		}
		cb.setState(StateHalfOpen)
	}

	return nil
}

// afterCall records the outcome of an admitted call.
func (cb *CircuitBreaker) afterCall(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	failed := cb.config.IsFailure(err)

	switch cb.state {
	case StateClosed:
		if failed {
			cb.failureCount++
			if cb.failureCount >= cb.config.FailureThreshold {
				cb.openedAt = time.Now()
				cb.setState(StateOpen)
			}
		} else {
			cb.failureCount = 0
		}

	case StateHalfOpen:
		if failed {
			cb.successCount = 0
			cb.openedAt = time.Now()
			cb.setState(StateOpen)
		} else {
			cb.successCount++
			if cb.successCount >= cb.config.SuccessThreshold {
				cb.setState(StateClosed)
				cb.failureCount = 0
				cb.successCount = 0
			}
		}

	case StateOpen:
		// A probe admitted while half-open finished after another probe
		// reopened the circuit. Its outcome is stale; ignore it.
	}
}

// setState transitions to a new state and fires the change hook.
// Callers must hold cb.mu. Hooks must not call back into the breaker.
func (cb *CircuitBreaker) setState(to State) {
	if cb.state == to {
		return
	}

	from := cb.state
	cb.state = to

	if to == StateHalfOpen {
		cb.successCount = 0
	}

	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, from, to)
	}
}
