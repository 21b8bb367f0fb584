package di

import (
	"fmt"

	apperrors "github.com/kbukum/gohost/errors"
)

// MustResolve resolves a service with type safety, panics on error.
// Use this in pipeline setup where a missing service is a programming error.
//
// Example:
//
//	counter := di.MustResolve[*Counter](b.Services(), di.KeyOf[*Counter]())
func MustResolve[T any](p Provider, key string) T {
	result, err := Resolve[T](p, key)
	if err != nil {
		panic(fmt.Sprintf("di: %v", err))
	}
	return result
}

// Resolve resolves a service with type safety, returns error on failure.
//
// Example:
//
//	store, err := di.Resolve[Store](p, "store")
//	if err != nil {
//	    return nil, fmt.Errorf("orders: %w", err)
//	}
func Resolve[T any](p Provider, key string) (T, error) {
	var zero T
	instance, err := p.Resolve(key)
	if err != nil {
		return zero, err
	}
	result, ok := instance.(T)
	if !ok {
		return zero, apperrors.TypeMismatch(key, instance, zero)
	}
	return result, nil
}

// TryResolve resolves a service, returns zero value and false if it cannot be
// resolved or has another type. Use this when a dependency is optional.
//
// Example:
//
//	if meter, ok := di.TryResolve[metric.Meter](p, "meter"); ok {
//	    ...
//	}
func TryResolve[T any](p Provider, key string) (T, bool) {
	result, err := Resolve[T](p, key)
	if err != nil {
		var zero T
		return zero, false
	}
	return result, true
}
