package pipeline

import (
	"context"
	"sync"

	"github.com/kbukum/gohost/di"
	apperrors "github.com/kbukum/gohost/errors"
)

// Sentinel errors for errors.Is matching.
var (
	ErrNotCompiled      = apperrors.NotCompiled()
	ErrPipelineCompiled = apperrors.PipelineCompiled()
)

// Handler is the application: run once by the host after startup.
type Handler func(ctx context.Context) error

// Middleware wraps a Handler with additional behavior.
type Middleware func(next Handler) Handler

// Chain composes multiple middleware. The first in the list is the outermost
// (runs first, returns last).
func Chain(middlewares ...Middleware) Middleware {
	return func(final Handler) Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// Builder collects middleware and a terminal handler. It is safe for
// concurrent use.
type Builder struct {
	mu          sync.Mutex
	services    di.Provider
	properties  *Properties
	middlewares []Middleware
	terminal    Handler
	compiled    Handler
}

// NewBuilder creates an empty builder. services may be nil and attached later
// with SetServices, once the resolver exists.
func NewBuilder(services di.Provider) *Builder {
	return &Builder{
		services:   services,
		properties: NewProperties(),
	}
}

// Use appends middleware. A nil middleware is ignored.
func (b *Builder) Use(mw Middleware) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.compiled != nil {
		return apperrors.PipelineCompiled()
	}
	if mw != nil {
		b.middlewares = append(b.middlewares, mw)
	}
	return nil
}

// UseFunc appends middleware written as a single function receiving the next
// handler.
//
//	b.UseFunc(func(ctx context.Context, next pipeline.Handler) error {
//	    start := time.Now()
//	    err := next(ctx)
//	    log.Info("pipeline done", logger.DurationFields("invoke", time.Since(start)))
//	    return err
//	})
func (b *Builder) UseFunc(fn func(ctx context.Context, next Handler) error) error {
	if fn == nil {
		return b.Use(nil)
	}
	return b.Use(func(next Handler) Handler {
		return func(ctx context.Context) error {
			return fn(ctx, next)
		}
	})
}

// Run sets the innermost handler. Without one the pipeline ends in a no-op.
// A later call replaces an earlier one.
func (b *Builder) Run(terminal Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.compiled != nil {
		return apperrors.PipelineCompiled()
	}
	b.terminal = terminal
	return nil
}

// Compile folds the middleware around the terminal handler. Later calls
// return the same handler; after Compile the builder rejects changes.
func (b *Builder) Compile() (Handler, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.compiled != nil {
		return b.compiled, nil
	}

	terminal := b.terminal
	if terminal == nil {
		terminal = func(context.Context) error { return nil }
	}
	b.compiled = Chain(b.middlewares...)(terminal)
	return b.compiled, nil
}

// Compiled reports whether Compile has run.
func (b *Builder) Compiled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.compiled != nil
}

// Invoke runs the compiled application.
func (b *Builder) Invoke(ctx context.Context) error {
	b.mu.Lock()
	app := b.compiled
	b.mu.Unlock()
	if app == nil {
		return apperrors.NotCompiled()
	}
	return app(ctx)
}

// Len returns the number of middleware added so far.
func (b *Builder) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.middlewares)
}

// Services returns the live service provider.
func (b *Builder) Services() di.Provider {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.services == nil {
		return noServices{}
	}
	return b.services
}

// SetServices attaches the provider returned by Services.
func (b *Builder) SetServices(p di.Provider) {
	b.mu.Lock()
	b.services = p
	b.mu.Unlock()
}

// Properties returns the key/value bag shared by everything configuring the
// pipeline.
func (b *Builder) Properties() *Properties {
	return b.properties
}

type noServices struct{}

func (noServices) Resolve(key string) (interface{}, error) {
	return nil, apperrors.UnresolvedCapability(key)
}
