package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the status code used when the error is served over HTTP.
	HTTPStatus int `json:"-"`
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

// Is reports whether target is an AppError with the same code, so callers can
// match against the exported sentinels with errors.Is.
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

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// Sentinels for errors.Is matching. Only the code is compared.
var (
	ErrUnregisteredCapability = &AppError{Code: ErrCodeUnregisteredCapability}
	ErrCyclicDependency       = &AppError{Code: ErrCodeCyclicDependency}
	ErrConstructionFailed     = &AppError{Code: ErrCodeConstructionFailed}
	ErrTypeMismatch           = &AppError{Code: ErrCodeTypeMismatch}
	ErrInvalidRegistration    = &AppError{Code: ErrCodeInvalidRegistration}
	ErrContainerClosed        = &AppError{Code: ErrCodeContainerClosed}
)

// --- Container Error Constructors ---

// UnregisteredCapability creates a new AppError for a capability with no registration.
func UnregisteredCapability(key string) *AppError {
	return &AppError{
		Code: ErrCodeUnregisteredCapability, Message: fmt.Sprintf("No registration for capability %q.", key),
		HTTPStatus: http.StatusNotFound, Retryable: false,
		Details: map[string]any{"capability": key},
	}
}

// CyclicDependency creates a new AppError for a construction cycle.
// The chain starts and ends with the capability that was requested twice.
func CyclicDependency(chain []string) *AppError {
	return &AppError{
		Code: ErrCodeCyclicDependency, Message: fmt.Sprintf("Cyclic dependency: %s", strings.Join(chain, " -> ")),
		HTTPStatus: http.StatusInternalServerError, Retryable: false,
		Details: map[string]any{"chain": chain},
	}
}

// ConstructionFailed creates a new AppError for a factory that failed.
func ConstructionFailed(key string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeConstructionFailed, Message: fmt.Sprintf("Failed to construct capability %q.", key),
		HTTPStatus: http.StatusInternalServerError, Retryable: true,
		Details: map[string]any{"capability": key}, Cause: cause,
	}
}

// TypeMismatch creates a new AppError for a resolved instance of the wrong type.
func TypeMismatch(key, gotType, wantType string) *AppError {
	return &AppError{
		Code: ErrCodeTypeMismatch, Message: fmt.Sprintf("Capability %q is %s, expected %s.", key, gotType, wantType),
		HTTPStatus: http.StatusInternalServerError, Retryable: false,
		Details: map[string]any{"capability": key, "got": gotType, "want": wantType},
	}
}

// InvalidRegistration creates a new AppError for a malformed registration.
func InvalidRegistration(key, reason string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidRegistration, Message: fmt.Sprintf("Invalid registration for %q: %s", key, reason),
		HTTPStatus: http.StatusBadRequest, Retryable: false,
		Details: map[string]any{"capability": key},
	}
}

// ContainerClosed creates a new AppError for an operation on a closed container.
func ContainerClosed() *AppError {
	return &AppError{
		Code: ErrCodeContainerClosed, Message: "The container has been closed.",
		HTTPStatus: http.StatusServiceUnavailable, Retryable: false,
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
		HTTPStatus: http.StatusBadRequest, Retryable: false,
	}
}

// Internal creates a new AppError for an internal error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}

// Wrap converts any error into an AppError. AppErrors anywhere in the chain
// are returned as-is; everything else becomes an internal error.
func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}
