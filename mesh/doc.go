// Package mesh manages the shared lifecycle of the process's middleware
// context: the handle to command-line configuration, domain partitioning,
// and the message transport from which nodes and endpoints are derived.
//
// # Ownership
//
// A Context is created with one reference. Every entity derived from it
// (a node, a spin loop, the signal handler) takes its own reference via
// Retain and gives it back with Close. The native resources are finalized
// exactly once, when the last reference is released, in whatever order the
// holders go away.
//
//	ctx, err := mesh.New(os.Args)
//	if err != nil {
//	    // typed construction error: bad arguments or transport failure
//	}
//	defer ctx.Close()
//
// # Shutdown
//
// Shutdown transitions the context from valid to permanently invalid. It is
// linearizable: with any number of concurrent callers, exactly one observes
// true. A registered OnShutdown callback runs after the transition, outside
// the context's lock, so it may safely query the context it belongs to.
//
// A failure in the native shutdown or finalize path leaves the middleware
// in an indeterminate state; the package panics rather than continue on a
// half-torn-down handle.
//
// # The default context
//
// GlobalDefaultContext gives every goroutine in the process one shared,
// lazily built Context. Only the first caller's arguments count; arguments
// on every later call are silently ignored. There is no way to reconfigure
// the default context after first use.
package mesh
