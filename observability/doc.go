// Package observability provides OpenTelemetry tracing and metrics for hosted
// applications.
//
// Telemetry owns both providers and implements Close(ctx), so registering it
// as a singleton lets the host flush it during disposal:
//
//	reg.AddSingleton("telemetry", func() (*observability.Telemetry, error) {
//	    return observability.New(ctx, observability.DefaultConfig("orders"), observability.WithGlobal())
//	})
//
// Pipeline instrumentation:
//
//	b.Use(telemetry.Middleware("app"))
//
// Ad-hoc spans use the global provider:
//
//	ctx, span := observability.StartSpan(ctx, "orders.sync")
//	defer span.End()
package observability
