package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Startup selection errors
const (
	// ErrCodeStartupNotFound indicates no Startup was supplied or registered.
	ErrCodeStartupNotFound ErrorCode = "STARTUP_NOT_FOUND"
	// ErrCodeStartupConstruction indicates the Startup constructor has an unsupported shape or failed.
	ErrCodeStartupConstruction ErrorCode = "STARTUP_CONSTRUCTION"
	// ErrCodeAmbiguousStartup indicates several Startups are registered and none was selected.
	ErrCodeAmbiguousStartup ErrorCode = "AMBIGUOUS_STARTUP"
)

// Service registry errors
const (
	// ErrCodeDuplicateRegistration indicates a capability key was registered twice.
	ErrCodeDuplicateRegistration ErrorCode = "DUPLICATE_REGISTRATION"
	// ErrCodeRegistryFrozen indicates a registration after the registry was built.
	ErrCodeRegistryFrozen ErrorCode = "REGISTRY_FROZEN"
	// ErrCodeUnresolvedCapability indicates no binding exists for a capability key.
	ErrCodeUnresolvedCapability ErrorCode = "UNRESOLVED_CAPABILITY"
	// ErrCodeCyclicDependency indicates a dependency chain that loops back on itself.
	ErrCodeCyclicDependency ErrorCode = "CYCLIC_DEPENDENCY"
	// ErrCodeConstructionFailed indicates a service constructor returned an error.
	ErrCodeConstructionFailed ErrorCode = "CONSTRUCTION_FAILED"
	// ErrCodeInvalidConstructor indicates a constructor with an unsupported signature.
	ErrCodeInvalidConstructor ErrorCode = "INVALID_CONSTRUCTOR"
	// ErrCodeTypeMismatch indicates a resolved instance is not of the requested type.
	ErrCodeTypeMismatch ErrorCode = "TYPE_MISMATCH"
	// ErrCodeResolverClosed indicates a resolution after the resolver was disposed.
	ErrCodeResolverClosed ErrorCode = "RESOLVER_CLOSED"
	// ErrCodeDisposalFailed indicates a singleton failed to release its resources.
	ErrCodeDisposalFailed ErrorCode = "DISPOSAL_FAILED"
)

// Pipeline errors
const (
	// ErrCodeNotCompiled indicates the pipeline was invoked before Compile.
	ErrCodeNotCompiled ErrorCode = "NOT_COMPILED"
	// ErrCodePipelineCompiled indicates a mutation after Compile.
	ErrCodePipelineCompiled ErrorCode = "PIPELINE_COMPILED"
)

// Host lifecycle errors
const (
	// ErrCodeNotConfigured indicates Run was called before Configure.
	ErrCodeNotConfigured ErrorCode = "NOT_CONFIGURED"
	// ErrCodeAlreadyConfigured indicates Configure was called twice.
	ErrCodeAlreadyConfigured ErrorCode = "ALREADY_CONFIGURED"
	// ErrCodeInvalidState indicates an operation not permitted in the current host state.
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"
	// ErrCodeInvalidConfig indicates configuration validation failed.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	// ErrCodeInternal indicates an unexpected failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// fatalCodes lists the codes that abort configuration; they are never retried.
var fatalCodes = map[ErrorCode]bool{
	ErrCodeStartupNotFound:       true,
	ErrCodeStartupConstruction:   true,
	ErrCodeAmbiguousStartup:      true,
	ErrCodeDuplicateRegistration: true,
	ErrCodeUnresolvedCapability:  true,
	ErrCodeCyclicDependency:      true,
	ErrCodeInvalidConstructor:    true,
	ErrCodeNotConfigured:         true,
	ErrCodeNotCompiled:           true,
	ErrCodeInvalidConfig:         true,
}

// IsFatalCode returns true if the error code aborts host configuration.
func IsFatalCode(code ErrorCode) bool {
	return fatalCodes[code]
}
