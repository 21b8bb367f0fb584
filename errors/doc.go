// Package errors provides the structured error type shared by every gohost
// package.
//
// Each failure the host can report during configuration, resolution or
// pipeline compilation carries a machine-readable ErrorCode. Packages export
// sentinel values built from these codes, and AppError.Is matches on the code
// so callers can use the standard library:
//
//	if errors.Is(err, di.ErrCyclicDependency) {
//	    ...
//	}
package errors
