package mesh

import (
	gocontext "context"
	"fmt"
	"sync"

	"github.com/robomesh/meshkit/bus"
	"github.com/robomesh/meshkit/errors"
	"github.com/robomesh/meshkit/logging"
	"github.com/robomesh/meshkit/rmw"
	"github.com/robomesh/meshkit/telemetry"
)

// Context is the shared handle to the process's middleware state. All
// methods are safe for concurrent use; the native handle is only ever
// touched under the context's lock, and the lock is never held across a
// user callback.
type Context struct {
	mu         sync.Mutex
	handle     rmw.Handle
	refs       int
	onShutdown func()
	log        *logging.Logger
}

// newContext wraps a handle with one initial reference.
func newContext(handle rmw.Handle, log *logging.Logger) *Context {
	if log == nil {
		log = logging.New()
	}
	return &Context{
		handle: handle,
		refs:   1,
		log:    log.WithComponent("context"),
	}
}

// OK reports whether the context is still valid. It returns false once a
// shutdown, explicit or signal-triggered, has completed.
func (c *Context) OK() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle.IsValid()
}

// DomainID returns the resolved domain id. If the context is no longer
// valid it returns an INVALID_CONTEXT error; callers that checked OK first
// will not see it.
func (c *Context) DomainID() (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.handle.IsValid() {
		return 0, errors.FromCode(errors.ErrCodeInvalidContext)
	}
	return c.handle.DomainID(), nil
}

// OnShutdown registers the callback invoked after a successful shutdown.
// At most one callback is kept; registering again replaces the previous
// one. The callback runs outside the context's lock and may query the
// context (it will observe OK() == false).
func (c *Context) OnShutdown(callback func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onShutdown = callback
}

// Shutdown makes the context permanently invalid. It returns true for the
// one call that performed the transition and false when the context was
// already invalid. A native shutdown failure is fatal: the transport state
// is unknown and the process must not keep using it.
func (c *Context) Shutdown() bool {
	_, span := telemetry.GetTracer().StartSpan(gocontext.Background(), "mesh.context.shutdown")

	c.mu.Lock()
	if !c.handle.IsValid() {
		c.mu.Unlock()
		telemetry.EndSpan(span, nil)
		return false
	}
	err := c.handle.Shutdown()
	callback := c.onShutdown
	c.mu.Unlock()

	if err != nil {
		c.log.Error("native shutdown failed", map[string]interface{}{"error": err.Error()})
		telemetry.EndSpan(span, err)
		panic(fmt.Sprintf("mesh: native shutdown failed: %v", err))
	}

	c.log.Info("context shut down")
	if callback != nil {
		callback()
	}
	telemetry.EndSpan(span, nil)
	return true
}

// Retain takes an additional reference for a new holder. Every Retain must
// be balanced by exactly one Close. Retaining a context whose last
// reference was already released is a bug in the caller.
func (c *Context) Retain() *Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.refs <= 0 {
		panic("mesh: Retain on a released context")
	}
	c.refs++
	return c
}

// Close releases one reference. The last release finalizes the native
// resources, shutting them down first if no explicit Shutdown happened.
// Releasing more references than were taken returns a CLOSED error.
// A finalize failure is fatal for the same reason a shutdown failure is.
func (c *Context) Close() error {
	c.mu.Lock()
	if c.refs <= 0 {
		c.mu.Unlock()
		return errors.New(errors.ErrCodeClosed, "context already released")
	}
	c.refs--
	last := c.refs == 0
	if !last {
		c.mu.Unlock()
		return nil
	}

	err := c.handle.Finalize()
	c.mu.Unlock()

	if err != nil {
		c.log.Error("native finalize failed", map[string]interface{}{"error": err.Error()})
		panic(fmt.Sprintf("mesh: native finalize failed: %v", err))
	}
	c.log.Debug("context finalized")
	return nil
}

// Bus returns the message transport for deriving endpoints. It fails with
// INVALID_CONTEXT once the context has shut down.
func (c *Context) Bus() (bus.MessageBus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.handle.IsValid() {
		return nil, errors.FromCode(errors.ErrCodeInvalidContext)
	}
	return c.handle.Bus(), nil
}

// ResolveTopic applies the remap rules to a topic name and returns its
// domain-scoped subject.
func (c *Context) ResolveTopic(topic string) (string, error) {
	if err := bus.ValidateSubject(topic); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrCodeInvalidTopic,
			fmt.Sprintf("topic %q", topic))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.handle.IsValid() {
		return "", errors.FromCode(errors.ErrCodeInvalidContext)
	}
	if to, ok := c.handle.RemapRules()[topic]; ok {
		topic = to
	}
	return c.handle.TopicSubject(topic), nil
}

// ResolveNodeName applies the remap rules to a node name.
func (c *Context) ResolveNodeName(name string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if to, ok := c.handle.RemapRules()[name]; ok {
		return to
	}
	return name
}

// GraphSubject returns the reserved discovery subject for a node name,
// usable even while shutting down so monitors can drain announcements.
func (c *Context) GraphSubject(node string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle.GraphSubject(node)
}

// Logger returns the logger the context was built with, for derived
// entities that want to share its output.
func (c *Context) Logger() *logging.Logger {
	return c.log
}
