package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestAppError_New_Success(t *testing.T) {
	err := New(ErrCodeNotFound, "not found", http.StatusNotFound)
	if err.Code != ErrCodeNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeNotFound, err.Code)
	}
	if err.Message != "not found" {
		t.Errorf("expected message 'not found', got %q", err.Message)
	}
	if err.HTTPStatus != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, err.HTTPStatus)
	}
	if err.Retryable {
		t.Error("NOT_FOUND should not be retryable")
	}
}

func TestAppError_New_Retryable(t *testing.T) {
	err := New(ErrCodeBufferEmpty, "empty", http.StatusServiceUnavailable)
	if !err.Retryable {
		t.Error("BUFFER_EMPTY should be retryable")
	}
}

func TestAppError_InvalidCapacity_Details(t *testing.T) {
	err := InvalidCapacity(-2)
	if err.Code != ErrCodeInvalidCapacity {
		t.Errorf("expected INVALID_CAPACITY, got %s", err.Code)
	}
	if err.Details["capacity"] != -2 {
		t.Errorf("expected capacity=-2 in details, got %v", err.Details["capacity"])
	}
	if !strings.Contains(err.Error(), "-2") {
		t.Errorf("expected message to mention the capacity, got %q", err.Error())
	}
}

func TestAppError_InvalidTimeout_Details(t *testing.T) {
	err := InvalidTimeout(-time.Second)
	if err.Details["timeout"] != "-1s" {
		t.Errorf("expected timeout=-1s, got %v", err.Details["timeout"])
	}
}

func TestAppError_Is_MatchesByCode(t *testing.T) {
	sentinel := New(ErrCodeNotRunning, "not running", http.StatusConflict)

	if !stderrors.Is(NotRunning("capture"), sentinel) {
		t.Error("expected fresh NOT_RUNNING error to match sentinel")
	}
	if stderrors.Is(AlreadyRunning("capture"), sentinel) {
		t.Error("expected ALREADY_RUNNING not to match NOT_RUNNING sentinel")
	}

	wrapped := fmt.Errorf("stage stop: %w", NotRunning("capture"))
	if !stderrors.Is(wrapped, sentinel) {
		t.Error("expected wrapped error to match sentinel")
	}
	if stderrors.Is(fmt.Errorf("plain"), sentinel) {
		t.Error("expected plain error not to match")
	}
}

func TestAppError_CauseChain(t *testing.T) {
	root := fmt.Errorf("device busy")
	err := OpenFailed("rtsp://cam", root)
	if !stderrors.Is(err, root) {
		t.Error("expected errors.Is to find the cause")
	}
	if err.Unwrap() != root {
		t.Error("Unwrap should return the cause")
	}
	if !strings.Contains(err.Error(), "device busy") {
		t.Errorf("expected error string to contain cause, got %q", err.Error())
	}
}

func TestAppError_WithDetails_Merge(t *testing.T) {
	err := ReadFailed("gen", nil)
	err.WithDetails(map[string]any{"seq": 7, "source": "override"})

	if err.Details["seq"] != 7 {
		t.Errorf("expected seq=7, got %v", err.Details["seq"])
	}
	if err.Details["source"] != "override" {
		t.Errorf("expected source=override, got %v", err.Details["source"])
	}
}

func TestAppError_WithDetail_NilMap(t *testing.T) {
	err := New(ErrCodeInternal, "boom", http.StatusInternalServerError)
	err.WithDetail("stage", "inference")
	if err.Details["stage"] != "inference" {
		t.Errorf("expected stage=inference, got %v", err.Details["stage"])
	}
}

func TestAppError_WithCause_Chain(t *testing.T) {
	cause := fmt.Errorf("root")
	err := New(ErrCodeInternal, "outer", http.StatusInternalServerError).WithCause(cause)
	if err.Cause != cause {
		t.Error("expected cause to be set")
	}
}

func TestAppError_Constructors_Table(t *testing.T) {
	tests := []struct {
		name      string
		err       *AppError
		code      ErrorCode
		status    int
		retryable bool
	}{
		{"InvalidCapacity", InvalidCapacity(0), ErrCodeInvalidCapacity, http.StatusBadRequest, false},
		{"InvalidTimeout", InvalidTimeout(-1), ErrCodeInvalidTimeout, http.StatusBadRequest, false},
		{"AlreadyRunning", AlreadyRunning("t"), ErrCodeAlreadyRunning, http.StatusConflict, false},
		{"NotRunning", NotRunning("t"), ErrCodeNotRunning, http.StatusConflict, false},
		{"OpenFailed", OpenFailed("cam", nil), ErrCodeOpenFailed, http.StatusBadGateway, true},
		{"ReadFailed", ReadFailed("cam", nil), ErrCodeReadFailed, http.StatusBadGateway, true},
		{"InferenceFailed", InferenceFailed("motion", nil), ErrCodeInferenceFailed, http.StatusInternalServerError, false},
		{"EncodeFailed", EncodeFailed("jpeg", nil), ErrCodeEncodeFailed, http.StatusInternalServerError, false},
		{"NotFound", NotFound("stage", "x"), ErrCodeNotFound, http.StatusNotFound, false},
		{"Unauthorized", Unauthorized(""), ErrCodeUnauthorized, http.StatusUnauthorized, false},
		{"ServiceUnavailable", ServiceUnavailable("stream"), ErrCodeServiceUnavailable, http.StatusServiceUnavailable, true},
		{"Internal", Internal(nil), ErrCodeInternal, http.StatusInternalServerError, false},
		{"Validation", Validation("bad input"), ErrCodeInvalidInput, http.StatusBadRequest, false},
		{"InvalidInput", InvalidInput("capacity", "too small"), ErrCodeInvalidInput, http.StatusBadRequest, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.err.Code != tc.code {
				t.Errorf("expected code %s, got %s", tc.code, tc.err.Code)
			}
			if tc.err.HTTPStatus != tc.status {
				t.Errorf("expected status %d, got %d", tc.status, tc.err.HTTPStatus)
			}
			if tc.err.Retryable != tc.retryable {
				t.Errorf("expected retryable=%v, got %v", tc.retryable, tc.err.Retryable)
			}
		})
	}
}

func TestAppError_ToResponse_Success(t *testing.T) {
	err := NotFound("stage", "capture")
	resp := err.ToResponse()
	if resp.Error.Code != ErrCodeNotFound {
		t.Errorf("expected code NOT_FOUND in response, got %s", resp.Error.Code)
	}
	if resp.Error.Details["id"] != "capture" {
		t.Error("expected id=capture in response details")
	}
}

func TestAppError_AsAppError_Success(t *testing.T) {
	wrapped := fmt.Errorf("wrap: %w", Internal(nil))

	got, ok := AsAppError(wrapped)
	if !ok {
		t.Fatal("expected AsAppError to succeed for wrapped AppError")
	}
	if got.Code != ErrCodeInternal {
		t.Errorf("expected INTERNAL_ERROR, got %s", got.Code)
	}
	if _, ok := AsAppError(fmt.Errorf("not an app error")); ok {
		t.Error("expected AsAppError to return false for non-AppError")
	}
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("stage: %w", ReadFailed("cam", nil))
	if !IsCode(err, ErrCodeReadFailed) {
		t.Error("expected IsCode to find READ_FAILED through wrapping")
	}
	if IsCode(err, ErrCodeOpenFailed) {
		t.Error("expected IsCode to reject a different code")
	}
	if IsCode(nil, ErrCodeReadFailed) {
		t.Error("expected IsCode(nil) to be false")
	}
}

func TestFrom(t *testing.T) {
	busy := ServiceUnavailable("stream")
	if got := From(fmt.Errorf("accept: %w", busy)); got != busy {
		t.Errorf("expected the wrapped AppError back, got %v", got)
	}

	cause := fmt.Errorf("disk full")
	got := From(cause)
	if got.Code != ErrCodeInternal || got.HTTPStatus != http.StatusInternalServerError {
		t.Errorf("expected an internal error, got %s/%d", got.Code, got.HTTPStatus)
	}
	if got.Unwrap() != cause {
		t.Error("expected the plain error to be kept as cause")
	}
}
