package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/gohost/logger"
)

// Logging returns middleware that logs how long the rest of the pipeline took
// and whether it failed.
func Logging(log *logger.Logger, stage string) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context) error {
			start := time.Now()
			err := next(ctx)

			fields := map[string]interface{}{
				"stage":              stage,
				logger.FieldDuration: time.Since(start).Milliseconds(),
			}
			if err != nil {
				log.Error("Pipeline stage failed", logger.MergeWithError(fields, err))
			} else {
				log.Debug("Pipeline stage completed", fields)
			}
			return err
		}
	}
}

// Recover returns middleware that turns a panic in the rest of the pipeline
// into an error.
func Recover() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &PanicError{Value: r}
				}
			}()
			return next(ctx)
		}
	}
}

// PanicError wraps a value recovered from a panicking handler.
type PanicError struct {
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("pipeline panic: %v", e.Value)
}
