package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Resolution errors
const (
	// ErrCodeUnregisteredCapability indicates no registration matches the requested capability.
	ErrCodeUnregisteredCapability ErrorCode = "UNREGISTERED_CAPABILITY"
	// ErrCodeCyclicDependency indicates a factory requested a capability that is still under construction.
	ErrCodeCyclicDependency ErrorCode = "CYCLIC_DEPENDENCY"
	// ErrCodeConstructionFailed indicates a factory returned an error or panicked.
	ErrCodeConstructionFailed ErrorCode = "CONSTRUCTION_FAILED"
	// ErrCodeTypeMismatch indicates a resolved instance is not of the requested type.
	ErrCodeTypeMismatch ErrorCode = "TYPE_MISMATCH"
)

// Registration errors
const (
	// ErrCodeInvalidRegistration indicates a registration request is malformed.
	ErrCodeInvalidRegistration ErrorCode = "INVALID_REGISTRATION"
	// ErrCodeContainerClosed indicates the container has been closed.
	ErrCodeContainerClosed ErrorCode = "CONTAINER_CLOSED"
)

// Validation errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Internal errors
const (
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// A failed construction leaves the registration empty, so the next
// resolution runs the factory again.
var retryableCodes = map[ErrorCode]bool{
	ErrCodeConstructionFailed: true,
	ErrCodeInternal:           false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
