package errors

import (
	"fmt"
)

// MeshError is the interface for all structured errors in meshkit.
// It extends the standard error interface with the code/category contract
// that callers use to decide whether an operation can be retried, must be
// preceded by a state check, or has left the process unrecoverable.
type MeshError interface {
	error

	// Code returns the specific error code identifying the failure type.
	Code() ErrorCode

	// Category returns the error category for recovery decisions.
	Category() ErrorCategory

	// Recoverable returns true if the caller may continue after this error.
	Recoverable() bool

	// Unwrap returns the underlying error, if any.
	Unwrap() error
}

// Error is the concrete implementation of MeshError.
type Error struct {
	code     ErrorCode
	category ErrorCategory
	message  string
	cause    error
}

var _ MeshError = (*Error)(nil)

// Error returns the error message.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Code returns the error code.
func (e *Error) Code() ErrorCode {
	return e.code
}

// Category returns the error category.
func (e *Error) Category() ErrorCategory {
	return e.category
}

// Recoverable returns whether the caller may continue after this error.
func (e *Error) Recoverable() bool {
	return e.category.Recoverable()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// Option is a functional option for configuring an Error.
type Option func(*Error)

// WithCategory overrides the default category for the code.
func WithCategory(cat ErrorCategory) Option {
	return func(e *Error) {
		e.category = cat
	}
}

// WithCause sets the underlying cause.
func WithCause(cause error) Option {
	return func(e *Error) {
		e.cause = cause
	}
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string, opts ...Option) *Error {
	e := &Error{
		code:     code,
		category: code.DefaultCategory(),
		message:  message,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Newf creates a new Error with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// FromCode creates an error with the default description for the code.
func FromCode(code ErrorCode, opts ...Option) *Error {
	return New(code, code.Description(), opts...)
}
