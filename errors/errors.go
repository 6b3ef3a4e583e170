package errors

import (
	"fmt"
	"net/http"
	"time"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
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

// Is reports whether target is an *AppError carrying the same code, so
// package-level sentinels match freshly constructed errors with errors.Is.
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

// --- Precondition errors ---

// InvalidCapacity creates a new AppError for a non-positive capacity.
func InvalidCapacity(capacity int) *AppError {
	return &AppError{
		Code: ErrCodeInvalidCapacity, Message: fmt.Sprintf("Capacity must be a positive integer (got: %d).", capacity),
		HTTPStatus: http.StatusBadRequest, Retryable: false,
		Details: map[string]any{"capacity": capacity},
	}
}

// InvalidTimeout creates a new AppError for a negative timeout.
func InvalidTimeout(timeout time.Duration) *AppError {
	return &AppError{
		Code: ErrCodeInvalidTimeout, Message: fmt.Sprintf("Timeout must be non-negative (got: %s).", timeout),
		HTTPStatus: http.StatusBadRequest, Retryable: false,
		Details: map[string]any{"timeout": timeout.String()},
	}
}

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		HTTPStatus: http.StatusBadRequest, Retryable: false, Details: details,
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
		HTTPStatus: http.StatusBadRequest, Retryable: false,
	}
}

// --- Task state errors ---

// AlreadyRunning creates a new AppError for starting a task that is running.
func AlreadyRunning(name string) *AppError {
	return &AppError{
		Code: ErrCodeAlreadyRunning, Message: fmt.Sprintf("Task %s is already running.", name),
		HTTPStatus: http.StatusConflict, Retryable: false,
		Details: map[string]any{"task": name},
	}
}

// NotRunning creates a new AppError for stopping a task that is not running.
func NotRunning(name string) *AppError {
	return &AppError{
		Code: ErrCodeNotRunning, Message: fmt.Sprintf("Task %s is not running.", name),
		HTTPStatus: http.StatusConflict, Retryable: false,
		Details: map[string]any{"task": name},
	}
}

// --- Collaborator errors ---

// OpenFailed creates a new AppError for a source that could not be opened.
func OpenFailed(descriptor string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeOpenFailed, Message: fmt.Sprintf("Unable to open source %s.", descriptor),
		HTTPStatus: http.StatusBadGateway, Retryable: true,
		Details: map[string]any{"source": descriptor}, Cause: cause,
	}
}

// ReadFailed creates a new AppError for a failed source read.
func ReadFailed(descriptor string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeReadFailed, Message: fmt.Sprintf("Unable to read from source %s.", descriptor),
		HTTPStatus: http.StatusBadGateway, Retryable: true,
		Details: map[string]any{"source": descriptor}, Cause: cause,
	}
}

// InferenceFailed creates a new AppError for a failed model prediction.
func InferenceFailed(model string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeInferenceFailed, Message: fmt.Sprintf("Model %s failed to predict.", model),
		HTTPStatus: http.StatusInternalServerError, Retryable: false,
		Details: map[string]any{"model": model}, Cause: cause,
	}
}

// EncodeFailed creates a new AppError for a payload encoding failure.
func EncodeFailed(format string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeEncodeFailed, Message: fmt.Sprintf("Failed to encode %s payload.", format),
		HTTPStatus: http.StatusInternalServerError, Retryable: false,
		Details: map[string]any{"format": format}, Cause: cause,
	}
}

// --- Service errors ---

// NotFound creates a new AppError for a resource that was not found.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("The requested %s was not found.", resource),
		HTTPStatus: http.StatusNotFound, Retryable: false, Details: details,
	}
}

// Unauthorized creates a new AppError for unauthorized access.
func Unauthorized(reason string) *AppError {
	if reason == "" {
		reason = "Authentication required."
	}
	return &AppError{
		Code: ErrCodeUnauthorized, Message: reason,
		HTTPStatus: http.StatusUnauthorized, Retryable: false,
	}
}

// ServiceUnavailable creates a new AppError for a service that is temporarily unavailable.
func ServiceUnavailable(service string) *AppError {
	return &AppError{
		Code: ErrCodeServiceUnavailable, Message: fmt.Sprintf("The %s is temporarily unavailable. Please try again.", service),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Details: map[string]any{"service": service},
	}
}

// Internal creates a new AppError for an internal server error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}
