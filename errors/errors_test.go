package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// ============================================================================
// 1. Error creation with different codes/categories
// ============================================================================

func TestNew(t *testing.T) {
	tests := []struct {
		name         string
		code         ErrorCode
		message      string
		wantCategory ErrorCategory
	}{
		{"invalid_args", ErrCodeInvalidArgs, "bad remap rule", CategoryUsage},
		{"invalid_domain", ErrCodeInvalidDomain, "domain out of range", CategoryUsage},
		{"invalid_context", ErrCodeInvalidContext, "context shut down", CategoryState},
		{"closed", ErrCodeClosed, "already released", CategoryState},
		{"resource", ErrCodeResource, "connection refused", CategoryResource},
		{"finalize_failed", ErrCodeFinalizeFailed, "finalize failed", CategoryFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message)
			if err.Code() != tt.code {
				t.Errorf("Code() = %v, want %v", err.Code(), tt.code)
			}
			if err.Category() != tt.wantCategory {
				t.Errorf("Category() = %v, want %v", err.Category(), tt.wantCategory)
			}
			if err.Error() != tt.message {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.message)
			}
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(ErrCodeInvalidTopic, "topic %q is empty", "")
	want := `topic "" is empty`
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
}

func TestFromCode(t *testing.T) {
	err := FromCode(ErrCodeInvalidContext)
	if err.Code() != ErrCodeInvalidContext {
		t.Errorf("Code() = %v, want %v", err.Code(), ErrCodeInvalidContext)
	}
	// Should use the default description
	if err.Error() != "context is no longer valid" {
		t.Errorf("Error() = %v, want %v", err.Error(), "context is no longer valid")
	}
}

// ============================================================================
// 2. Recoverable vs fatal errors
// ============================================================================

func TestRecoverable(t *testing.T) {
	tests := []struct {
		name            string
		code            ErrorCode
		wantRecoverable bool
	}{
		{"invalid_args is recoverable", ErrCodeInvalidArgs, true},
		{"invalid_context is recoverable", ErrCodeInvalidContext, true},
		{"resource is recoverable", ErrCodeResource, true},
		{"timeout is recoverable", ErrCodeTimeout, true},
		{"shutdown_failed is fatal", ErrCodeShutdownFailed, false},
		{"finalize_failed is fatal", ErrCodeFinalizeFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, "test")
			if err.Recoverable() != tt.wantRecoverable {
				t.Errorf("Recoverable() = %v, want %v", err.Recoverable(), tt.wantRecoverable)
			}
		})
	}
}

func TestIsFatal(t *testing.T) {
	if !IsFatal(FromCode(ErrCodeFinalizeFailed)) {
		t.Error("expected FINALIZE_FAILED to be fatal")
	}
	if IsFatal(FromCode(ErrCodeInvalidContext)) {
		t.Error("expected INVALID_CONTEXT not to be fatal")
	}
	if IsFatal(errors.New("plain error")) {
		t.Error("expected plain error not to be fatal")
	}
}

// ============================================================================
// 3. Wrapping and chain inspection
// ============================================================================

func TestWrapPreservesCode(t *testing.T) {
	inner := New(ErrCodeInvalidDomain, "domain 70000 out of range")
	wrapped := Wrap(inner, "building context")

	if wrapped.Code() != ErrCodeInvalidDomain {
		t.Errorf("Code() = %v, want %v", wrapped.Code(), ErrCodeInvalidDomain)
	}
	if wrapped.Category() != CategoryUsage {
		t.Errorf("Category() = %v, want %v", wrapped.Category(), CategoryUsage)
	}
	if !errors.Is(wrapped, inner) {
		t.Error("expected wrapped error to match inner via errors.Is")
	}
	want := "building context: domain 70000 out of range"
	if wrapped.Error() != want {
		t.Errorf("Error() = %q, want %q", wrapped.Error(), want)
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "anything") != nil {
		t.Error("expected Wrap(nil) to be nil")
	}
	if WrapWithCode(nil, ErrCodeResource, "anything") != nil {
		t.Error("expected WrapWithCode(nil) to be nil")
	}
}

func TestWrapPlainError(t *testing.T) {
	plain := fmt.Errorf("connection refused")
	wrapped := Wrap(plain, "dialing transport")

	if wrapped.Code() != ErrCodeResource {
		t.Errorf("Code() = %v, want %v", wrapped.Code(), ErrCodeResource)
	}
	if !errors.Is(wrapped, plain) {
		t.Error("expected cause to be reachable via errors.Is")
	}
}

func TestWrapDeadlineExceeded(t *testing.T) {
	wrapped := Wrap(context.DeadlineExceeded, "waiting for graph event")
	if wrapped.Code() != ErrCodeTimeout {
		t.Errorf("Code() = %v, want %v", wrapped.Code(), ErrCodeTimeout)
	}
}

func TestWrapWithCode(t *testing.T) {
	plain := fmt.Errorf("nats: no servers available")
	wrapped := WrapWithCode(plain, ErrCodeResource, "connecting bus")

	if wrapped.Code() != ErrCodeResource {
		t.Errorf("Code() = %v, want %v", wrapped.Code(), ErrCodeResource)
	}
	if wrapped.Unwrap() == nil {
		t.Error("expected cause to be preserved")
	}
}

func TestIs(t *testing.T) {
	err := Wrap(FromCode(ErrCodeClosed), "releasing context")

	if !Is(err, ErrCodeClosed) {
		t.Error("expected Is to find CLOSED in the chain")
	}
	if Is(err, ErrCodeNotFound) {
		t.Error("did not expect NOT_FOUND in the chain")
	}
	if Is(errors.New("plain"), ErrCodeClosed) {
		t.Error("did not expect a code on a plain error")
	}
}

func TestAsMeshError(t *testing.T) {
	inner := FromCode(ErrCodeInvalidContext)
	chained := fmt.Errorf("outer: %w", inner)

	me := AsMeshError(chained)
	if me == nil {
		t.Fatal("expected to extract a MeshError")
	}
	if me.Code() != ErrCodeInvalidContext {
		t.Errorf("Code() = %v, want %v", me.Code(), ErrCodeInvalidContext)
	}

	if AsMeshError(errors.New("plain")) != nil {
		t.Error("expected nil for a plain error")
	}
}

// ============================================================================
// 4. Category overrides
// ============================================================================

func TestWithCategory(t *testing.T) {
	err := New(ErrCodeResource, "buffer exhausted", WithCategory(CategoryFatal))
	if err.Category() != CategoryFatal {
		t.Errorf("Category() = %v, want %v", err.Category(), CategoryFatal)
	}
	if err.Recoverable() {
		t.Error("expected overridden category to drive Recoverable()")
	}
}
