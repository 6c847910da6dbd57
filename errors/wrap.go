package errors

import (
	"context"
	"errors"
	"fmt"
)

// Wrap wraps an error with additional context while preserving the error chain.
// If err is nil, Wrap returns nil.
// If err is already a MeshError, its code and category are preserved.
// Otherwise, it creates a RESOURCE error wrapping the original.
func Wrap(err error, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}

	var meshErr *Error
	if errors.As(err, &meshErr) {
		wrapped := &Error{
			code:     meshErr.code,
			category: meshErr.category,
			message:  message,
			cause:    err,
		}
		for _, opt := range opts {
			opt(wrapped)
		}
		return wrapped
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return New(ErrCodeTimeout, message, append(opts, WithCause(err))...)
	}

	return New(ErrCodeResource, message, append(opts, WithCause(err))...)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WrapWithCode wraps an error with a specific error code.
func WrapWithCode(err error, code ErrorCode, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}
	opts = append(opts, WithCause(err))
	return New(code, message, opts...)
}

// AsMeshError attempts to extract a MeshError from an error chain.
// Returns nil if no MeshError is found.
func AsMeshError(err error) MeshError {
	var meshErr *Error
	if errors.As(err, &meshErr) {
		return meshErr
	}
	return nil
}

// Is checks if any error in the chain has the given error code.
func Is(err error, code ErrorCode) bool {
	var meshErr *Error
	if errors.As(err, &meshErr) {
		return meshErr.code == code
	}
	return false
}

// IsCategory checks if any error in the chain has the given category.
func IsCategory(err error, category ErrorCategory) bool {
	var meshErr *Error
	if errors.As(err, &meshErr) {
		return meshErr.category == category
	}
	return false
}

// IsFatal checks whether the error indicates an unrecoverable native state.
func IsFatal(err error) bool {
	return IsCategory(err, CategoryFatal)
}
