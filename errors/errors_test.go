package errors

import (
	"errors"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	err := New(ErrCodeTimeout, "took too long", 504)
	if err.Error() != "TIMEOUT: took too long" {
		t.Errorf("unexpected error string: %s", err.Error())
	}
}

func TestAppError_ErrorWithCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := ConnectionFailed("billing").WithCause(cause)

	if err.Unwrap() != cause {
		t.Error("expected Unwrap to return the cause")
	}
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
}

func TestNew_SetsRetryableFromCode(t *testing.T) {
	tests := []struct {
		code      ErrorCode
		retryable bool
	}{
		{ErrCodeServiceUnavailable, true},
		{ErrCodeConnectionFailed, true},
		{ErrCodeTimeout, true},
		{ErrCodeExternalService, true},
		{ErrCodeRateLimited, false},
		{ErrCodeCircuitOpen, false},
		{ErrCodeInternal, false},
		{ErrCodeInvalidInput, false},
	}

	for _, tt := range tests {
		err := New(tt.code, "msg", 500)
		if err.Retryable != tt.retryable {
			t.Errorf("code %s: expected retryable=%v, got %v", tt.code, tt.retryable, err.Retryable)
		}
	}
}

func TestRejectionConstructorsAreNotRetryable(t *testing.T) {
	if RateLimited("api").Retryable {
		t.Error("rate-limited errors must not be retryable")
	}
	if CircuitOpen("db").Retryable {
		t.Error("circuit-open errors must not be retryable")
	}
}

func TestWithDetail(t *testing.T) {
	err := Validation("bad config").WithDetail("field", "slo_target")
	if err.Details["field"] != "slo_target" {
		t.Errorf("expected detail to be set, got %v", err.Details)
	}
}

func TestErrorsAs(t *testing.T) {
	var wrapped error = Timeout("fetch")

	var appErr *AppError
	if !errors.As(wrapped, &appErr) {
		t.Fatal("expected errors.As to match *AppError")
	}
	if appErr.Code != ErrCodeTimeout {
		t.Errorf("expected TIMEOUT code, got %s", appErr.Code)
	}
}
