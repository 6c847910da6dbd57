package errors

// ErrorCategory classifies errors by how callers should react to them.
type ErrorCategory string

// Error categories define the recovery contract.
const (
	// CategoryUsage indicates a caller mistake that corrected input fixes.
	// Examples: malformed remap rule, bad domain id value.
	CategoryUsage ErrorCategory = "usage"

	// CategoryState indicates an operation attempted in the wrong lifecycle
	// state. Examples: deriving a node from a shut-down context.
	CategoryState ErrorCategory = "state"

	// CategoryResource indicates allocation or transport failures.
	// Examples: middleware connection refused, buffer exhaustion.
	CategoryResource ErrorCategory = "resource"

	// CategoryFatal indicates the native layer is in an indeterminate state
	// and the process must not continue operating on it.
	CategoryFatal ErrorCategory = "fatal"
)

// String returns the string representation of the category.
func (c ErrorCategory) String() string {
	return string(c)
}

// Recoverable returns true if the caller may continue after this error.
func (c ErrorCategory) Recoverable() bool {
	return c != CategoryFatal
}

// ErrorCode identifies specific failure types within categories.
type ErrorCode string

// Error codes for context and endpoint failure scenarios.
const (
	// Usage errors
	ErrCodeInvalidArgs   ErrorCode = "INVALID_ARGS"   // Argument parsing rejected the input
	ErrCodeInvalidDomain ErrorCode = "INVALID_DOMAIN" // Domain id out of range or unparseable
	ErrCodeInvalidTopic  ErrorCode = "INVALID_TOPIC"  // Topic name failed validation

	// State errors
	ErrCodeInvalidContext  ErrorCode = "INVALID_CONTEXT"  // Context already shut down
	ErrCodeAlreadyShutdown ErrorCode = "ALREADY_SHUTDOWN" // Native shutdown called twice
	ErrCodeClosed          ErrorCode = "CLOSED"           // Resource already released
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"        // Entity not present in the graph

	// Resource errors
	ErrCodeResource ErrorCode = "RESOURCE" // Native allocation or connection failure
	ErrCodeTimeout  ErrorCode = "TIMEOUT"  // Blocking operation exceeded its deadline

	// Fatal errors
	ErrCodeShutdownFailed ErrorCode = "SHUTDOWN_FAILED" // Native shutdown reported failure
	ErrCodeFinalizeFailed ErrorCode = "FINALIZE_FAILED" // Native finalize reported failure
)

// String returns the string representation of the error code.
func (c ErrorCode) String() string {
	return string(c)
}

// DefaultCategory returns the default category for an error code.
func (c ErrorCode) DefaultCategory() ErrorCategory {
	switch c {
	case ErrCodeInvalidArgs, ErrCodeInvalidDomain, ErrCodeInvalidTopic:
		return CategoryUsage
	case ErrCodeInvalidContext, ErrCodeAlreadyShutdown, ErrCodeClosed, ErrCodeNotFound:
		return CategoryState
	case ErrCodeResource, ErrCodeTimeout:
		return CategoryResource
	case ErrCodeShutdownFailed, ErrCodeFinalizeFailed:
		return CategoryFatal
	default:
		return CategoryResource
	}
}

// codeDescriptions provides human-readable descriptions for error codes.
var codeDescriptions = map[ErrorCode]string{
	ErrCodeInvalidArgs:     "argument parsing failed",
	ErrCodeInvalidDomain:   "invalid domain id",
	ErrCodeInvalidTopic:    "invalid topic name",
	ErrCodeInvalidContext:  "context is no longer valid",
	ErrCodeAlreadyShutdown: "context already shut down",
	ErrCodeClosed:          "resource already closed",
	ErrCodeNotFound:        "entity not found",
	ErrCodeResource:        "native resource failure",
	ErrCodeTimeout:         "operation timed out",
	ErrCodeShutdownFailed:  "native shutdown failed",
	ErrCodeFinalizeFailed:  "native finalize failed",
}

// Description returns a human-readable description for the error code.
func (c ErrorCode) Description() string {
	if desc, ok := codeDescriptions[c]; ok {
		return desc
	}
	return string(c)
}
