package node

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/robomesh/meshkit/bus"
	"github.com/robomesh/meshkit/errors"
	"github.com/robomesh/meshkit/logging"
	"github.com/robomesh/meshkit/mesh"
)

// Option configures a Node.
type Option func(*options)

type options struct {
	bufferSize int
}

// WithBufferSize sets the dispatch buffer depth for the node's
// subscriptions. Messages arriving while the buffer is full are dropped.
func WithBufferSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.bufferSize = n
		}
	}
}

// Node is a named participant in the mesh graph. It owns a reference to
// its context and a set of endpoints.
type Node struct {
	name string
	gid  string
	ctx  *mesh.Context
	bus  bus.MessageBus
	log  *logging.Logger

	mu     sync.Mutex
	subs   []*Subscription
	topics []string

	dispatch chan delivery
	quit     chan struct{}
	closed   atomic.Bool
}

type delivery struct {
	sub *Subscription
	msg *bus.Message
}

// New creates a node on ctx. The node name is subject to the context's
// remap rules. New fails with INVALID_CONTEXT when the context has already
// shut down; on success the node retains the context until Close.
func New(ctx *mesh.Context, name string, opts ...Option) (*Node, error) {
	if name == "" {
		return nil, errors.New(errors.ErrCodeInvalidArgs, "empty node name")
	}
	if !ctx.OK() {
		return nil, errors.FromCode(errors.ErrCodeInvalidContext)
	}

	o := options{bufferSize: 64}
	for _, opt := range opts {
		opt(&o)
	}

	transport, err := ctx.Bus()
	if err != nil {
		return nil, err
	}

	resolved := ctx.ResolveNodeName(name)
	n := &Node{
		name:     resolved,
		gid:      uuid.NewString(),
		ctx:      ctx.Retain(),
		bus:      transport,
		log:      ctx.Logger().WithComponent("node." + resolved),
		dispatch: make(chan delivery, o.bufferSize),
		quit:     make(chan struct{}),
	}
	n.log.Debug("node created", map[string]interface{}{"gid": n.gid})
	return n, nil
}

// Name returns the node's resolved name.
func (n *Node) Name() string { return n.name }

// GID returns the node's globally unique id.
func (n *Node) GID() string { return n.gid }

// Context returns the owning context. Callers must not Close it; the node
// holds the reference.
func (n *Node) Context() *mesh.Context { return n.ctx }

// Topics returns the topics this node publishes or subscribes to.
func (n *Node) Topics() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.topics))
	copy(out, n.topics)
	return out
}

func (n *Node) addTopic(topic string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, t := range n.topics {
		if t == topic {
			return
		}
	}
	n.topics = append(n.topics, topic)
}

// Close tears down the node's subscriptions and releases its context
// reference. Idempotent.
func (n *Node) Close() error {
	if n.closed.Swap(true) {
		return nil
	}

	n.mu.Lock()
	subs := n.subs
	n.subs = nil
	n.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
	close(n.quit)

	n.log.Debug("node closed")
	return n.ctx.Close()
}
