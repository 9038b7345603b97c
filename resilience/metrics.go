package resilience

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/kbukum/resilkit/resilience"

// engineMetrics holds the OpenTelemetry instruments the engine records to.
// The instruments are no-ops unless the caller installed a meter provider,
// so recording never performs I/O of its own.
type engineMetrics struct {
	calls        metric.Int64Counter
	callDuration metric.Float64Histogram
	rejections   metric.Int64Counter
	transitions  metric.Int64Counter
	retries      metric.Int64Counter
}

// newEngineMetrics creates the engine instruments on the given meter.
func newEngineMetrics(meter metric.Meter) (*engineMetrics, error) {
	calls, err := meter.Int64Counter("resilience.calls.total",
		metric.WithDescription("Total calls executed through the facade"),
	)
	if err != nil {
		return nil, err
	}

	callDuration, err := meter.Float64Histogram("resilience.call.duration",
		metric.WithDescription("Duration of facade calls in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	rejections, err := meter.Int64Counter("resilience.rejections.total",
		metric.WithDescription("Calls rejected by a breaker, limiter, or bulkhead"),
	)
	if err != nil {
		return nil, err
	}

	transitions, err := meter.Int64Counter("resilience.breaker.transitions.total",
		metric.WithDescription("Circuit breaker state transitions"),
	)
	if err != nil {
		return nil, err
	}

	retries, err := meter.Int64Counter("resilience.retries.total",
		metric.WithDescription("Retry attempts after a failed call"),
	)
	if err != nil {
		return nil, err
	}

	return &engineMetrics{
		calls:        calls,
		callDuration: callDuration,
		rejections:   rejections,
		transitions:  transitions,
		retries:      retries,
	}, nil
}

func (m *engineMetrics) recordCall(ctx context.Context, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.calls.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	m.callDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *engineMetrics) recordRejection(kind, name string) {
	if m == nil {
		return
	}
	m.rejections.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("name", name),
	))
}

func (m *engineMetrics) recordTransition(name string, from, to State) {
	if m == nil {
		return
	}
	m.transitions.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("breaker", name),
		attribute.String("from", from.String()),
		attribute.String("to", to.String()),
	))
}

func (m *engineMetrics) recordRetry(name string) {
	if m == nil {
		return
	}
	m.retries.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("policy", name),
	))
}

// globalMeter returns the engine meter from the global provider.
func globalMeter() metric.Meter {
	return otel.Meter(instrumentationName)
}
