// Package errors provides the structured error taxonomy for meshkit. It
// classifies every failure by code and category so that callers can tell
// apart caller mistakes, lifecycle-state violations, resource failures, and
// fatal native-layer conditions.
//
// # Error Categories
//
// Errors fall into four categories:
//
//   - Usage: caller mistakes that corrected input fixes (bad remap rule, etc.)
//   - State: operations attempted in the wrong lifecycle state (invalid context)
//   - Resource: allocation or transport failures
//   - Fatal: the native layer is in an indeterminate state; do not continue
//
// # Usage
//
// Create a new error:
//
//	err := errors.New(errors.ErrCodeInvalidContext, "context already shut down")
//
// Wrap an existing error with context:
//
//	wrapped := errors.Wrap(err, "creating node")
//
// Check a code anywhere in a chain:
//
//	if errors.Is(err, errors.ErrCodeInvalidContext) {
//	    // re-check ctx.OK() and bail out
//	}
//
// Fatal errors (SHUTDOWN_FAILED, FINALIZE_FAILED) are never returned from the
// public context API; the context panics instead, because the native resource
// cannot be safely used or released after such a failure.
package errors
