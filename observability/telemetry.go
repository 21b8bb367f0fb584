package observability

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/gohost/logger"
)

// Telemetry owns a tracer provider and a meter provider. Register it as a
// singleton so the host flushes and shuts both down during disposal.
type Telemetry struct {
	cfg            Config
	log            *logger.Logger
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	metrics        *Metrics
}

// Option customizes Telemetry.
type Option func(*telemetryOptions)

type telemetryOptions struct {
	log           *logger.Logger
	spanProcessor sdktrace.SpanProcessor
	metricReader  sdkmetric.Reader
	setGlobal     bool
}

// WithLogger sets the logger used for lifecycle messages.
func WithLogger(l *logger.Logger) Option {
	return func(o *telemetryOptions) { o.log = l }
}

// WithSpanProcessor replaces the OTLP exporter with p.
func WithSpanProcessor(p sdktrace.SpanProcessor) Option {
	return func(o *telemetryOptions) { o.spanProcessor = p }
}

// WithMetricReader replaces the OTLP periodic reader with r.
func WithMetricReader(r sdkmetric.Reader) Option {
	return func(o *telemetryOptions) { o.metricReader = r }
}

// WithGlobal installs the providers and the W3C propagators as the otel
// globals.
func WithGlobal() Option {
	return func(o *telemetryOptions) { o.setGlobal = true }
}

// New creates the tracer and meter providers. With an endpoint set, spans and
// metrics are exported over OTLP HTTP.
func New(ctx context.Context, cfg Config, opts ...Option) (*Telemetry, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &telemetryOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logger.WithComponent("telemetry")
	}

	res, err := newResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(newSampler(cfg.SampleRate)),
	}
	switch {
	case o.spanProcessor != nil:
		tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(o.spanProcessor))
	case cfg.Endpoint != "":
		exporter, err := newTraceExporter(ctx, cfg)
		if err != nil {
			return nil, err
		}
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exporter))
	}

	mpOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	switch {
	case o.metricReader != nil:
		mpOpts = append(mpOpts, sdkmetric.WithReader(o.metricReader))
	case cfg.Endpoint != "":
		exporter, err := newMetricExporter(ctx, cfg)
		if err != nil {
			return nil, err
		}
		mpOpts = append(mpOpts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.Interval)),
		))
	}

	t := &Telemetry{
		cfg:            cfg,
		log:            o.log,
		tracerProvider: sdktrace.NewTracerProvider(tpOpts...),
		meterProvider:  sdkmetric.NewMeterProvider(mpOpts...),
	}

	t.metrics, err = NewMetrics(t.Meter())
	if err != nil {
		_ = t.Close(ctx)
		return nil, err
	}

	if o.setGlobal {
		otel.SetTracerProvider(t.tracerProvider)
		otel.SetMeterProvider(t.meterProvider)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
	}

	t.log.Info("Telemetry initialized", logger.Fields(
		"service", cfg.ServiceName,
		"endpoint", cfg.Endpoint,
		"sample_rate", cfg.SampleRate,
	))
	return t, nil
}

func newSampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1.0:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

func newTraceExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}
	return exporter, nil
}

func newMetricExporter(ctx context.Context, cfg Config) (sdkmetric.Exporter, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}
	return exporter, nil
}

// Tracer returns the service tracer.
func (t *Telemetry) Tracer() trace.Tracer {
	return t.tracerProvider.Tracer(defaultTracerName)
}

// Meter returns the service meter.
func (t *Telemetry) Meter() metric.Meter {
	return t.meterProvider.Meter(defaultTracerName)
}

// Metrics returns the pipeline instruments.
func (t *Telemetry) Metrics() *Metrics {
	return t.metrics
}

// Close flushes and shuts down both providers.
func (t *Telemetry) Close(ctx context.Context) error {
	err := errors.Join(
		t.tracerProvider.Shutdown(ctx),
		t.meterProvider.Shutdown(ctx),
	)
	if err != nil {
		return fmt.Errorf("telemetry shutdown: %w", err)
	}
	t.log.Debug("Telemetry shut down")
	return nil
}
