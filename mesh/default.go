package mesh

import (
	"sync"
)

// The process-wide default context. Guarded by defaultOnce for the build
// and defaultMu for the test-only reset.
var (
	defaultMu   sync.Mutex
	defaultOnce *sync.Once = new(sync.Once)
	defaultCtx  *Context
	defaultErr  error
)

// GlobalDefaultContext returns the process-wide shared Context, building it
// from args on the first call.
//
// Only the FIRST caller's arguments are used. Every later call, from any
// goroutine and with any arguments, returns the same instance and silently
// ignores its arguments; the default context cannot be reconfigured after
// first use. Concurrent first callers block until one of them finishes
// construction and then all observe the identical instance.
//
// If the first construction fails, the error is sticky: all callers see it.
func GlobalDefaultContext(args []string) (*Context, error) {
	defaultMu.Lock()
	once := defaultOnce
	defaultMu.Unlock()

	once.Do(func() {
		ctx, err := New(args)
		defaultMu.Lock()
		defaultCtx, defaultErr = ctx, err
		defaultMu.Unlock()
	})

	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultCtx, defaultErr
}

// Init builds the default context from args, discarding the instance. Use
// Default to fetch it afterward. Like GlobalDefaultContext, only the first
// caller's arguments take effect.
func Init(args []string) error {
	_, err := GlobalDefaultContext(args)
	return err
}

// Default returns the default context, or nil when Init (or
// GlobalDefaultContext) has not run or failed.
func Default() *Context {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultCtx
}

// OK reports the validity of the default context. It returns false when
// the default context was never initialized or has shut down.
func OK() bool {
	defaultMu.Lock()
	ctx := defaultCtx
	defaultMu.Unlock()
	if ctx == nil {
		return false
	}
	return ctx.OK()
}

// resetGlobalDefaultContext tears down the singleton so tests can exercise
// first-call semantics repeatedly. Not safe concurrently with
// GlobalDefaultContext; tests only.
func resetGlobalDefaultContext() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultCtx != nil {
		defaultCtx.Close()
	}
	defaultCtx = nil
	defaultErr = nil
	defaultOnce = new(sync.Once)
}
