package resilience

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/kbukum/resilkit/logger"
	"github.com/kbukum/resilkit/observability"
)

// RegistryDefaults carries per-name configurations applied when the registry
// lazily creates an instance and the caller supplied no config. Typically
// built from a loaded config file.
type RegistryDefaults struct {
	CircuitBreakers map[string]CircuitBreakerConfig
	RetryPolicies   map[string]RetryConfig
	RateLimiters    map[string]RateLimiterConfig
	ErrorBudgets    map[string]ErrorBudgetConfig
	Bulkheads       map[string]BulkheadConfig
}

// Registry hands out named, lazily-created singleton instances of each
// primitive. A name maps to exactly one instance per kind; the config is
// honored only at first creation and later calls with a different config
// still return the original instance. Reset clears every instance, which is
// how tests obtain a clean state.
type Registry struct {
	mu        sync.RWMutex
	breakers  map[string]*CircuitBreaker
	policies  map[string]*RetryPolicy
	limiters  map[string]*RateLimiter
	budgets   map[string]*ErrorBudgetMonitor
	bulkheads map[string]*Bulkhead

	defaults RegistryDefaults
	log      *logger.Logger
	metrics  *engineMetrics
}

// MetricsSnapshot is a nested view of every live circuit breaker's state and
// every error-budget monitor's metrics, keyed by name.
type MetricsSnapshot struct {
	CircuitBreakers map[string]BreakerSnapshot `json:"circuit_breakers"`
	ErrorBudgets    map[string]BudgetMetrics   `json:"error_budgets"`
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithDefaults seeds per-name configurations for lazily-created instances.
func WithDefaults(defaults RegistryDefaults) RegistryOption {
	return func(r *Registry) {
		r.defaults = defaults
	}
}

// WithLogger sets the logger used for engine events.
func WithLogger(l *logger.Logger) RegistryOption {
	return func(r *Registry) {
		r.log = l
	}
}

// WithMeter sets the meter the engine instruments are created on.
// By default the global meter provider is used, which is a no-op until an
// SDK is installed.
func WithMeter(meter metric.Meter) RegistryOption {
	return func(r *Registry) {
		if m, err := newEngineMetrics(meter); err == nil {
			r.metrics = m
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		breakers:  make(map[string]*CircuitBreaker),
		policies:  make(map[string]*RetryPolicy),
		limiters:  make(map[string]*RateLimiter),
		budgets:   make(map[string]*ErrorBudgetMonitor),
		bulkheads: make(map[string]*Bulkhead),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Get("resilience")
	}
	if r.metrics == nil {
		if m, err := newEngineMetrics(globalMeter()); err == nil {
			r.metrics = m
		}
	}
	return r
}

// GetCircuitBreaker returns the breaker registered under name, creating it
// on first use. An explicit config wins over registry defaults; both are
// ignored if the name already exists.
func (r *Registry) GetCircuitBreaker(name string, cfg ...CircuitBreakerConfig) *CircuitBreaker {
	r.mu.RLock()
	cb, ok := r.breakers[name]
	r.mu.RUnlock()
	if ok {
		return cb
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cb, ok := r.breakers[name]; ok {
		return cb
	}

	config := DefaultCircuitBreakerConfig(name)
	if len(cfg) > 0 {
		config = cfg[0]
	} else if c, ok := r.defaults.CircuitBreakers[name]; ok {
		config = c
	}
	config.Name = name

	userHook := config.OnStateChange
	config.OnStateChange = func(name string, from, to State) {
		fields := logger.Fields(logger.FieldBreaker, name, "from", from.String(), "to", to.String())
		if to == StateOpen {
			r.log.Warn("circuit opened", fields)
		} else {
			r.log.Info("circuit state changed", fields)
		}
		r.metrics.recordTransition(name, from, to)
		if userHook != nil {
			userHook(name, from, to)
		}
	}

	cb = NewCircuitBreaker(config)
	r.breakers[name] = cb
	return cb
}

// GetRetryPolicy returns the retry policy registered under name, creating it
// on first use.
func (r *Registry) GetRetryPolicy(name string, cfg ...RetryConfig) *RetryPolicy {
	r.mu.RLock()
	p, ok := r.policies[name]
	r.mu.RUnlock()
	if ok {
		return p
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.policies[name]; ok {
		return p
	}

	config := DefaultRetryConfig(name)
	if len(cfg) > 0 {
		config = cfg[0]
	} else if c, ok := r.defaults.RetryPolicies[name]; ok {
		config = c
	}
	config.Name = name

	userHook := config.OnRetry
	config.OnRetry = func(name string, attempt int, err error, delay time.Duration) {
		r.log.Debug("retrying call", logger.Fields(
			logger.FieldPolicy, name,
			logger.FieldAttempt, attempt,
			logger.FieldError, err.Error(),
			logger.FieldDelay, delay.Milliseconds(),
		))
		r.metrics.recordRetry(name)
		if userHook != nil {
			userHook(name, attempt, err, delay)
		}
	}

	p = NewRetryPolicy(config)
	r.policies[name] = p
	return p
}

// GetRateLimiter returns the rate limiter registered under name, creating it
// on first use.
func (r *Registry) GetRateLimiter(name string, cfg ...RateLimiterConfig) *RateLimiter {
	r.mu.RLock()
	rl, ok := r.limiters[name]
	r.mu.RUnlock()
	if ok {
		return rl
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if rl, ok := r.limiters[name]; ok {
		return rl
	}

	config := DefaultRateLimiterConfig(name)
	if len(cfg) > 0 {
		config = cfg[0]
	} else if c, ok := r.defaults.RateLimiters[name]; ok {
		config = c
	}
	config.Name = name

	userHook := config.OnReject
	config.OnReject = func(name string) {
		r.log.Debug("rate limit exceeded", logger.Fields(logger.FieldLimiter, name))
		r.metrics.recordRejection("rate_limiter", name)
		if userHook != nil {
			userHook(name)
		}
	}

	rl = NewRateLimiter(config)
	r.limiters[name] = rl
	return rl
}

// GetErrorBudgetMonitor returns the monitor registered under name, creating
// it on first use.
func (r *Registry) GetErrorBudgetMonitor(name string, cfg ...ErrorBudgetConfig) *ErrorBudgetMonitor {
	r.mu.RLock()
	m, ok := r.budgets[name]
	r.mu.RUnlock()
	if ok {
		return m
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.budgets[name]; ok {
		return m
	}

	config := DefaultErrorBudgetConfig(name)
	if len(cfg) > 0 {
		config = cfg[0]
	} else if c, ok := r.defaults.ErrorBudgets[name]; ok {
		config = c
	}
	config.Name = name

	userHook := config.OnViolation
	config.OnViolation = func(name string, metrics BudgetMetrics) {
		r.log.Warn("error budget exhausted", logger.Fields(
			logger.FieldBudget, name,
			"success_rate", metrics.SuccessRate,
			"budget_consumed", metrics.BudgetConsumed,
		))
		if userHook != nil {
			userHook(name, metrics)
		}
	}

	m = NewErrorBudgetMonitor(config)
	r.budgets[name] = m
	return m
}

// GetBulkhead returns the bulkhead registered under name, creating it on
// first use.
func (r *Registry) GetBulkhead(name string, cfg ...BulkheadConfig) *Bulkhead {
	r.mu.RLock()
	b, ok := r.bulkheads[name]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.bulkheads[name]; ok {
		return b
	}

	config := DefaultBulkheadConfig(name)
	if len(cfg) > 0 {
		config = cfg[0]
	} else if c, ok := r.defaults.Bulkheads[name]; ok {
		config = c
	}
	config.Name = name

	userHook := config.OnReject
	config.OnReject = func(name string) {
		r.log.Debug("bulkhead rejected call", logger.Fields("bulkhead", name))
		r.metrics.recordRejection("bulkhead", name)
		if userHook != nil {
			userHook(name)
		}
	}

	b = NewBulkhead(config)
	r.bulkheads[name] = b
	return b
}

// AllMetrics returns a snapshot of every live breaker and budget monitor.
func (r *Registry) AllMetrics() MetricsSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := MetricsSnapshot{
		CircuitBreakers: make(map[string]BreakerSnapshot, len(r.breakers)),
		ErrorBudgets:    make(map[string]BudgetMetrics, len(r.budgets)),
	}
	for name, cb := range r.breakers {
		snapshot.CircuitBreakers[name] = cb.Snapshot()
	}
	for name, m := range r.budgets {
		snapshot.ErrorBudgets[name] = m.Metrics()
	}
	return snapshot
}

// Reset discards every registered instance. The next Get call for any name
// creates a fresh instance.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.breakers = make(map[string]*CircuitBreaker)
	r.policies = make(map[string]*RetryPolicy)
	r.limiters = make(map[string]*RateLimiter)
	r.budgets = make(map[string]*ErrorBudgetMonitor)
	r.bulkheads = make(map[string]*Bulkhead)
}

// CheckHealth reports the registry as degraded when any circuit is open or
// any error budget is violated.
func (r *Registry) CheckHealth(ctx context.Context) observability.Health {
	snapshot := r.AllMetrics()

	health := observability.Health{
		Name:    "resilience",
		Status:  observability.HealthStatusUp,
		Details: make(map[string]string),
	}

	for name, cb := range snapshot.CircuitBreakers {
		if cb.State == StateOpen {
			health.Status = observability.HealthStatusDegraded
			health.Details["breaker:"+name] = "open"
		}
	}
	for name, m := range snapshot.ErrorBudgets {
		if !m.SLOCompliant {
			health.Status = observability.HealthStatusDegraded
			health.Details["budget:"+name] = "slo violated"
		}
	}

	if health.Status != observability.HealthStatusUp {
		health.Message = "one or more dependencies are unhealthy"
	}
	return health
}

// --- Default registry ---

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry used by the package-level
// functions.
func Default() *Registry {
	return defaultRegistry
}

// GetCircuitBreaker returns a named breaker from the default registry.
func GetCircuitBreaker(name string, cfg ...CircuitBreakerConfig) *CircuitBreaker {
	return defaultRegistry.GetCircuitBreaker(name, cfg...)
}

// GetRetryPolicy returns a named retry policy from the default registry.
func GetRetryPolicy(name string, cfg ...RetryConfig) *RetryPolicy {
	return defaultRegistry.GetRetryPolicy(name, cfg...)
}

// GetRateLimiter returns a named rate limiter from the default registry.
func GetRateLimiter(name string, cfg ...RateLimiterConfig) *RateLimiter {
	return defaultRegistry.GetRateLimiter(name, cfg...)
}

// GetErrorBudgetMonitor returns a named budget monitor from the default registry.
func GetErrorBudgetMonitor(name string, cfg ...ErrorBudgetConfig) *ErrorBudgetMonitor {
	return defaultRegistry.GetErrorBudgetMonitor(name, cfg...)
}

// GetBulkhead returns a named bulkhead from the default registry.
func GetBulkhead(name string, cfg ...BulkheadConfig) *Bulkhead {
	return defaultRegistry.GetBulkhead(name, cfg...)
}

// AllMetrics returns the default registry's metrics snapshot.
func AllMetrics() MetricsSnapshot {
	return defaultRegistry.AllMetrics()
}

// ResetAllMetrics clears the default registry, primarily to give tests a
// clean process-wide state.
func ResetAllMetrics() {
	defaultRegistry.Reset()
}
