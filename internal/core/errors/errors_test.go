package errors

import (
	"errors"
	"io"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "without cause",
			err:      New(CodeHandleNotFound, "handle 7 not registered"),
			expected: "[HANDLE_NOT_FOUND] handle 7 not registered",
		},
		{
			name:     "with cause",
			err:      Wrap(io.ErrUnexpectedEOF, CodeStreamRead, "short read"),
			expected: "[STREAM_READ] short read: unexpected EOF",
		},
		{
			name:     "formatted message",
			err:      Newf(CodeInvalidParam, "invalid capacity: %d", -1),
			expected: "[INVALID_PARAM] invalid capacity: -1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestError_Is(t *testing.T) {
	err1 := New(CodeOutOfOrder, "unpack called twice")
	err2 := New(CodeOutOfOrder, "process before unpack")
	err3 := New(CodeDataError, "bad data")

	// 相同错误码应该匹配
	if !errors.Is(err1, err2) {
		t.Error("errors with same code should match")
	}

	// 不同错误码不应该匹配
	if errors.Is(err1, err3) {
		t.Error("errors with different code should not match")
	}

	// 使用哨兵错误
	if !errors.Is(err1, ErrOutOfOrder) {
		t.Error("should match sentinel error with same code")
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("original error")
	wrapped := Wrap(cause, CodeInternal, "wrapped")

	if errors.Unwrap(wrapped) != cause {
		t.Error("Unwrap should return the cause")
	}
}

func TestError_WithDetail(t *testing.T) {
	err := New(CodeEngineError, "unpack failed").
		WithDetailInt("status", -100008).
		WithDetailString("source", "IMG_0001.CR2")

	status, ok := err.GetDetailInt("status")
	if !ok || status != -100008 {
		t.Error("detail 'status' should be -100008")
	}
	if err.GetDetailString("source") != "IMG_0001.CR2" {
		t.Error("detail 'source' should be 'IMG_0001.CR2'")
	}

	// 整数转字符串
	if err.GetDetailString("status") != "-100008" {
		t.Error("GetDetailString for int should return '-100008'")
	}

	if _, ok := err.GetDetailInt("missing"); ok {
		t.Error("missing detail should report not found")
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorCode
	}{
		{
			name:     "custom error",
			err:      New(CodeHandleReleased, "released"),
			expected: CodeHandleReleased,
		},
		{
			name:     "wrapped error",
			err:      Wrap(errors.New("eof"), CodeStreamRead, "read"),
			expected: CodeStreamRead,
		},
		{
			name:     "standard error",
			err:      errors.New("standard"),
			expected: CodeInternal,
		},
		{
			name:     "nil error",
			err:      nil,
			expected: CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("GetCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestNewOutOfOrderError(t *testing.T) {
	err := NewOutOfOrderError("unpack", "unpacked")

	if !IsCode(err, CodeOutOfOrder) {
		t.Fatalf("code = %s, want %s", err.Code, CodeOutOfOrder)
	}
	if err.GetDetailString("op") != "unpack" || err.GetDetailString("state") != "unpacked" {
		t.Errorf("details = %v", err.Details)
	}
	if !IsProtocolError(err) {
		t.Error("out-of-order should be a protocol error")
	}
}

func TestClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		stream    bool
		handle    bool
		retryable bool
	}{
		{"stream read", NewStreamError(CodeStreamRead, "read", io.ErrUnexpectedEOF), true, false, true},
		{"stream seek", ErrStreamSeek, true, false, true},
		{"handle released", ErrHandleReleased, false, true, false},
		{"io error", ErrIOError, false, false, true},
		{"data error", ErrDataError, false, false, false},
		{"unsupported", ErrUnsupportedFormat, false, false, false},
		{"nil", nil, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsStreamError(tt.err); got != tt.stream {
				t.Errorf("IsStreamError() = %v, want %v", got, tt.stream)
			}
			if got := IsHandleError(tt.err); got != tt.handle {
				t.Errorf("IsHandleError() = %v, want %v", got, tt.handle)
			}
			if got := IsRetryable(tt.err); got != tt.retryable {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.retryable)
			}
		})
	}
}
