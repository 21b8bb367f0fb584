package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// AppError is the unified gohost error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Fatal indicates the error aborts host configuration.
	Fatal bool `json:"fatal"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// Is reports whether target is an AppError carrying the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic fatal detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Fatal:   IsFatalCode(code),
	}
}

// --- Startup selection ---

// StartupNotFound creates an AppError for a host without any Startup.
func StartupNotFound() *AppError {
	return New(ErrCodeStartupNotFound, "no startup was supplied or registered")
}

// StartupConstruction creates an AppError for a Startup that cannot be constructed.
func StartupConstruction(name, reason string) *AppError {
	return New(ErrCodeStartupConstruction, fmt.Sprintf("startup %q cannot be constructed: %s", name, reason)).
		WithDetail("startup", name)
}

// AmbiguousStartup creates an AppError listing the competing Startup names.
func AmbiguousStartup(names []string) *AppError {
	return New(ErrCodeAmbiguousStartup,
		fmt.Sprintf("%d startups registered (%s); select one explicitly", len(names), strings.Join(names, ", "))).
		WithDetail("candidates", names)
}

// --- Service registry ---

// DuplicateRegistration creates an AppError for a key registered twice.
func DuplicateRegistration(key string) *AppError {
	return New(ErrCodeDuplicateRegistration, fmt.Sprintf("capability %q is already registered", key)).
		WithDetail("key", key)
}

// RegistryFrozen creates an AppError for a registration after Build.
func RegistryFrozen(key string) *AppError {
	return New(ErrCodeRegistryFrozen, fmt.Sprintf("cannot register %q: registry is frozen", key)).
		WithDetail("key", key)
}

// UnresolvedCapability creates an AppError for a key without a binding.
func UnresolvedCapability(key string) *AppError {
	return New(ErrCodeUnresolvedCapability, fmt.Sprintf("capability not registered: %s", key)).
		WithDetail("key", key)
}

// CyclicDependency creates an AppError describing the dependency loop.
func CyclicDependency(chain []string) *AppError {
	return New(ErrCodeCyclicDependency, "dependency cycle: "+strings.Join(chain, " -> ")).
		WithDetail("chain", chain)
}

// ConstructionFailed creates an AppError wrapping a constructor failure.
func ConstructionFailed(key string, cause error) *AppError {
	return New(ErrCodeConstructionFailed, fmt.Sprintf("failed to construct %q", key)).
		WithDetail("key", key).WithCause(cause)
}

// InvalidConstructor creates an AppError for an unsupported constructor shape.
func InvalidConstructor(key, reason string) *AppError {
	return New(ErrCodeInvalidConstructor, fmt.Sprintf("invalid constructor for %q: %s", key, reason)).
		WithDetail("key", key)
}

// TypeMismatch creates an AppError for a resolved instance of the wrong type.
func TypeMismatch(key string, got, expected any) *AppError {
	return New(ErrCodeTypeMismatch, fmt.Sprintf("component %s is %T, expected %T", key, got, expected)).
		WithDetail("key", key)
}

// ResolverClosed creates an AppError for a resolution after disposal.
func ResolverClosed(key string) *AppError {
	return New(ErrCodeResolverClosed, fmt.Sprintf("cannot resolve %q: resolver is closed", key)).
		WithDetail("key", key)
}

// DisposalFailed creates an AppError wrapping a singleton Close failure.
func DisposalFailed(key string, cause error) *AppError {
	return New(ErrCodeDisposalFailed, fmt.Sprintf("failed to dispose %q", key)).
		WithDetail("key", key).WithCause(cause)
}

// --- Pipeline ---

// NotCompiled creates an AppError for invoking an uncompiled pipeline.
func NotCompiled() *AppError {
	return New(ErrCodeNotCompiled, "pipeline must be compiled before it is invoked")
}

// PipelineCompiled creates an AppError for mutating a compiled pipeline.
func PipelineCompiled() *AppError {
	return New(ErrCodePipelineCompiled, "pipeline is already compiled")
}

// --- Host lifecycle ---

// NotConfigured creates an AppError for running an unconfigured host.
func NotConfigured() *AppError {
	return New(ErrCodeNotConfigured, "host must be configured before it is run")
}

// AlreadyConfigured creates an AppError for configuring a host twice.
func AlreadyConfigured() *AppError {
	return New(ErrCodeAlreadyConfigured, "host is already configured")
}

// InvalidState creates an AppError for an operation the current state forbids.
func InvalidState(op, state string) *AppError {
	return New(ErrCodeInvalidState, fmt.Sprintf("cannot %s while host is %s", op, state)).
		WithDetails(map[string]any{"operation": op, "state": state})
}

// InvalidConfig creates an AppError for a configuration validation failure.
func InvalidConfig(cause error) *AppError {
	return New(ErrCodeInvalidConfig, "invalid host configuration").WithCause(cause)
}

// Internal creates an AppError for an unexpected failure.
func Internal(cause error) *AppError {
	return New(ErrCodeInternal, "an unexpected error occurred").WithCause(cause)
}

// --- Helpers ---

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Wrap returns err as an AppError, wrapping plain errors as internal errors.
func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return Internal(err)
}

// IsFatal reports whether err carries a code that aborts host configuration.
func IsFatal(err error) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Fatal
}
