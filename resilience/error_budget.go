package resilience

import (
	"sync"
	"time"
)

// ErrorBudgetConfig configures a rolling-window error-budget monitor.
type ErrorBudgetConfig struct {
	// Name identifies this monitor for metrics/logging.
	Name string `mapstructure:"-"`
	// SLOTarget is the required success rate, strictly between 0 and 1.
	SLOTarget float64 `mapstructure:"slo_target" validate:"gt=0,lt=1"`
	// Window is the trailing period over which requests are counted.
	Window time.Duration `mapstructure:"window" validate:"gt=0"`
	// OnViolation is called once each time compliance flips from met to
	// violated.
	OnViolation func(name string, metrics BudgetMetrics) `mapstructure:"-"`
}

// DefaultErrorBudgetConfig returns sensible defaults.
func DefaultErrorBudgetConfig(name string) ErrorBudgetConfig {
	return ErrorBudgetConfig{
		Name:      name,
		SLOTarget: 0.99,
		Window:    5 * time.Minute,
	}
}

// BudgetMetrics is a point-in-time view of SLO compliance over the window.
type BudgetMetrics struct {
	// SuccessRate is the fraction of successful requests in the window.
	// 1.0 when the window is empty.
	SuccessRate float64 `json:"success_rate"`
	// TotalRequests is the number of requests still inside the window.
	TotalRequests int `json:"total_requests"`
	// SLOCompliant reports whether SuccessRate meets the target.
	SLOCompliant bool `json:"slo_compliance"`
	// BudgetConsumed is the observed error rate relative to the allowed
	// error rate, (1-SuccessRate)/(1-SLOTarget). Values above 1.0 mean the
	// budget is exhausted and the SLO is violated; it doubles as the burn
	// rate over the window.
	BudgetConsumed float64 `json:"error_budget_consumed"`
}

type budgetEvent struct {
	at      time.Time
	success bool
}

// ErrorBudgetMonitor counts request outcomes over a trailing window and
// produces an SLO-compliance verdict. Events older than the window are
// evicted lazily on every read and write, so metrics are always "as of now".
type ErrorBudgetMonitor struct {
	config ErrorBudgetConfig

	mu        sync.Mutex
	events    []budgetEvent
	compliant bool
}

// NewErrorBudgetMonitor creates a new monitor with an empty window.
func NewErrorBudgetMonitor(config ErrorBudgetConfig) *ErrorBudgetMonitor {
	if config.SLOTarget <= 0 || config.SLOTarget >= 1 {
		config.SLOTarget = 0.99
	}
	if config.Window <= 0 {
		config.Window = 5 * time.Minute
	}

	return &ErrorBudgetMonitor{
		config:    config,
		compliant: true,
	}
}

// Record registers the outcome of one request.
func (m *ErrorBudgetMonitor) Record(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.evictLocked(now)
	m.events = append(m.events, budgetEvent{at: now, success: success})

	metrics := m.metricsLocked()
	if m.compliant && !metrics.SLOCompliant {
		m.compliant = false
		if m.config.OnViolation != nil {
			m.config.OnViolation(m.config.Name, metrics)
		}
	} else if metrics.SLOCompliant {
		m.compliant = true
	}
}

// Metrics returns the current window metrics. Repeated calls without
// intervening Record calls return identical results as long as no events
// age out of the window between them.
func (m *ErrorBudgetMonitor) Metrics() BudgetMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.evictLocked(time.Now())
	return m.metricsLocked()
}

// Config returns the monitor configuration.
func (m *ErrorBudgetMonitor) Config() ErrorBudgetConfig {
	return m.config
}

// evictLocked drops events older than the window. Callers must hold m.mu.
func (m *ErrorBudgetMonitor) evictLocked(now time.Time) {
	cutoff := now.Add(-m.config.Window)
	i := 0
	for i < len(m.events) && m.events[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		m.events = m.events[:copy(m.events, m.events[i:])]
	}
}

// metricsLocked computes metrics over the surviving events.
// Callers must hold m.mu.
func (m *ErrorBudgetMonitor) metricsLocked() BudgetMetrics {
	total := len(m.events)
	if total == 0 {
		return BudgetMetrics{
			SuccessRate:    1.0,
			TotalRequests:  0,
			SLOCompliant:   true,
			BudgetConsumed: 0,
		}
	}

	successes := 0
	for _, e := range m.events {
		if e.success {
			successes++
		}
	}

	rate := float64(successes) / float64(total)
	return BudgetMetrics{
		SuccessRate:    rate,
		TotalRequests:  total,
		SLOCompliant:   rate >= m.config.SLOTarget,
		BudgetConsumed: (1 - rate) / (1 - m.config.SLOTarget),
	}
}
