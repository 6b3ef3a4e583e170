package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Precondition errors, always returned synchronously to the caller.
const (
	// ErrCodeInvalidCapacity indicates a non-positive buffer capacity.
	ErrCodeInvalidCapacity ErrorCode = "INVALID_CAPACITY"
	// ErrCodeInvalidTimeout indicates a negative wait timeout.
	ErrCodeInvalidTimeout ErrorCode = "INVALID_TIMEOUT"
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Task state-machine misuse.
const (
	// ErrCodeAlreadyRunning indicates Start was called on a running task.
	ErrCodeAlreadyRunning ErrorCode = "ALREADY_RUNNING"
	// ErrCodeNotRunning indicates Stop was called on an idle task.
	ErrCodeNotRunning ErrorCode = "NOT_RUNNING"
)

// Buffer wait expiry. These are control-flow signals, not failures.
const (
	// ErrCodeBufferEmpty indicates a Get timed out on an empty buffer.
	ErrCodeBufferEmpty ErrorCode = "BUFFER_EMPTY"
	// ErrCodeBufferFull indicates a Put timed out on a full buffer.
	ErrCodeBufferFull ErrorCode = "BUFFER_FULL"
)

// Collaborator errors raised inside a running stage.
const (
	// ErrCodeOpenFailed indicates a frame source could not be opened.
	ErrCodeOpenFailed ErrorCode = "OPEN_FAILED"
	// ErrCodeReadFailed indicates a frame source read failed.
	ErrCodeReadFailed ErrorCode = "READ_FAILED"
	// ErrCodeInferenceFailed indicates a model prediction failed.
	ErrCodeInferenceFailed ErrorCode = "INFERENCE_FAILED"
	// ErrCodeEncodeFailed indicates a payload could not be encoded or decoded.
	ErrCodeEncodeFailed ErrorCode = "ENCODE_FAILED"
)

// Service errors.
const (
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeUnauthorized indicates the request is unauthorized.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeRateLimited indicates the caller exceeded its request rate.
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
	// ErrCodeServiceUnavailable indicates the service is temporarily unavailable.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeBufferEmpty:        true,
	ErrCodeBufferFull:         true,
	ErrCodeOpenFailed:         true,
	ErrCodeReadFailed:         true,
	ErrCodeServiceUnavailable: true,
	ErrCodeRateLimited:        true,
	ErrCodeInternal:           false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
