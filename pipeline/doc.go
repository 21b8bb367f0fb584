// Package pipeline composes the host application from middleware.
//
// The application is a single Handler the host invokes once after startup.
// Middleware wrap it; the first one added is the outermost and runs first.
// A Builder collects middleware and a terminal handler during configuration
// and folds them into one Handler on Compile.
//
// # Usage
//
//	b.Use(func(next pipeline.Handler) pipeline.Handler {
//	    return func(ctx context.Context) error {
//	        log.Info("configuring routes")
//	        return next(ctx)
//	    }
//	})
//	b.Run(func(ctx context.Context) error {
//	    return registerRoutes(di.MustResolve[*server.Server](b.Services(), "http"))
//	})
//
// The host compiles and invokes the pipeline; code outside the host rarely
// calls Compile or Invoke directly.
package pipeline
