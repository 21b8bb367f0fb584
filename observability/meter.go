package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the OpenTelemetry instruments for pipeline invocations.
type Metrics struct {
	invocations metric.Int64Counter
	duration    metric.Float64Histogram
	active      metric.Int64UpDownCounter
	errors      metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	invocations, err := meter.Int64Counter("gohost.pipeline.invocations",
		metric.WithDescription("Total number of pipeline stage invocations"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating gohost.pipeline.invocations counter: %w", err)
	}

	duration, err := meter.Float64Histogram("gohost.pipeline.duration",
		metric.WithDescription("Duration of pipeline stage invocations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating gohost.pipeline.duration histogram: %w", err)
	}

	active, err := meter.Int64UpDownCounter("gohost.pipeline.active",
		metric.WithDescription("Number of pipeline stage invocations in progress"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating gohost.pipeline.active gauge: %w", err)
	}

	errs, err := meter.Int64Counter("gohost.errors",
		metric.WithDescription("Total errors by type and component"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating gohost.errors counter: %w", err)
	}

	return &Metrics{
		invocations: invocations,
		duration:    duration,
		active:      active,
		errors:      errs,
	}, nil
}

// RecordStart increments the in-progress count.
func (m *Metrics) RecordStart(ctx context.Context) {
	m.active.Add(ctx, 1)
}

// RecordEnd decrements the in-progress count and records the completed invocation.
func (m *Metrics) RecordEnd(ctx context.Context, stage, status string, d time.Duration) {
	m.active.Add(ctx, -1)
	m.invocations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("status", status),
	))
	m.duration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("stage", stage),
	))
}

// RecordError records an error by type and component.
func (m *Metrics) RecordError(ctx context.Context, errType, component string) {
	m.errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", errType),
		attribute.String("component", component),
	))
}
