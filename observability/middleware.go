package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/gohost/pipeline"
)

// Tracing returns middleware that runs the rest of the pipeline inside a span
// named "pipeline.invoke.{stage}".
func Tracing(tracer trace.Tracer, stage string) pipeline.Middleware {
	spanName := SpanPipelineInvoke + "." + stage
	return func(next pipeline.Handler) pipeline.Handler {
		return func(ctx context.Context) error {
			ctx, span := tracer.Start(ctx, spanName)
			defer span.End()

			span.SetAttributes(attribute.String(AttrStage, stage))
			err := next(ctx)
			if err != nil {
				SetSpanError(ctx, err)
			}
			return err
		}
	}
}

// Instrument returns middleware that records invocation count, duration and
// errors for the rest of the pipeline.
func Instrument(metrics *Metrics, stage string) pipeline.Middleware {
	return func(next pipeline.Handler) pipeline.Handler {
		return func(ctx context.Context) error {
			metrics.RecordStart(ctx)
			start := time.Now()
			err := next(ctx)

			status := "ok"
			if err != nil {
				status = "error"
				metrics.RecordError(ctx, "pipeline", stage)
			}
			metrics.RecordEnd(ctx, stage, status, time.Since(start))
			return err
		}
	}
}

// Middleware combines Tracing and Instrument using this Telemetry's providers.
func (t *Telemetry) Middleware(stage string) pipeline.Middleware {
	return pipeline.Chain(Tracing(t.Tracer(), stage), Instrument(t.metrics, stage))
}
