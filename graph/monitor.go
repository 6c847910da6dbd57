package graph

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robomesh/meshkit/bus"
	"github.com/robomesh/meshkit/errors"
	"github.com/robomesh/meshkit/logging"
	"github.com/robomesh/meshkit/mesh"
)

// Monitor maintains the live set of nodes in a domain by watching the
// reserved graph subjects.
type Monitor struct {
	ctx *mesh.Context
	ttl time.Duration
	log *logging.Logger

	mu       sync.RWMutex
	lastSeen map[string]entry
	goneCBs  []func(NodeInfo)

	running  atomic.Bool
	released atomic.Bool
	sub      bus.Subscription
	stopCh   chan struct{}
	doneCh   chan struct{}
}

type entry struct {
	info NodeInfo
	seen time.Time
}

// MonitorConfig configures a Monitor.
type MonitorConfig struct {
	// TTL is how long a node stays in the live set without a fresh
	// announcement. Default: DefaultTTL.
	TTL time.Duration
}

// NewMonitor creates a monitor on ctx. The monitor retains the context
// until Stop.
func NewMonitor(ctx *mesh.Context, cfg MonitorConfig) (*Monitor, error) {
	if !ctx.OK() {
		return nil, errors.FromCode(errors.ErrCodeInvalidContext)
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Monitor{
		ctx:      ctx.Retain(),
		ttl:      ttl,
		log:      ctx.Logger().WithComponent("graph.monitor"),
		lastSeen: make(map[string]entry),
	}, nil
}

// OnGone registers a callback invoked once when a node leaves the live
// set. Callbacks run on the monitor goroutine.
func (m *Monitor) OnGone(cb func(NodeInfo)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.goneCBs = append(m.goneCBs, cb)
}

// Start subscribes to the domain's graph subjects and begins pruning.
// Starting twice is a no-op.
func (m *Monitor) Start() error {
	if m.running.Swap(true) {
		return nil
	}

	transport, err := m.ctx.Bus()
	if err != nil {
		m.running.Store(false)
		return err
	}
	sub, err := transport.Subscribe(m.ctx.GraphSubject(">"))
	if err != nil {
		m.running.Store(false)
		return errors.Wrap(err, "subscribing to graph subjects")
	}

	m.sub = sub
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	go m.run()
	return nil
}

func (m *Monitor) run() {
	defer close(m.doneCh)

	ticker := time.NewTicker(m.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case msg, ok := <-m.sub.Messages():
			if !ok {
				return
			}
			m.observe(msg)
		case <-ticker.C:
			m.prune()
		}
	}
}

func (m *Monitor) observe(msg *bus.Message) {
	info, err := UnmarshalNodeInfo(msg.Data)
	if err != nil {
		m.log.Warn("malformed announcement", map[string]interface{}{
			"subject": msg.Subject,
			"error":   err.Error(),
		})
		return
	}

	m.mu.Lock()
	_, known := m.lastSeen[info.GID]
	m.lastSeen[info.GID] = entry{info: *info, seen: time.Now()}
	m.mu.Unlock()

	if !known {
		m.log.Debug("node appeared", map[string]interface{}{
			"name": info.Name,
			"gid":  info.GID,
		})
	}
}

func (m *Monitor) prune() {
	cutoff := time.Now().Add(-m.ttl)

	m.mu.Lock()
	var gone []NodeInfo
	for gid, e := range m.lastSeen {
		if e.seen.Before(cutoff) {
			gone = append(gone, e.info)
			delete(m.lastSeen, gid)
		}
	}
	cbs := m.goneCBs
	m.mu.Unlock()

	for _, info := range gone {
		m.log.Debug("node gone", map[string]interface{}{
			"name": info.Name,
			"gid":  info.GID,
		})
		for _, cb := range cbs {
			cb(info)
		}
	}
}

// Snapshot returns the live set ordered by node name.
func (m *Monitor) Snapshot() []NodeInfo {
	m.mu.RLock()
	out := make([]NodeInfo, 0, len(m.lastSeen))
	for _, e := range m.lastSeen {
		out = append(out, e.info)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Stop unsubscribes, halts pruning, and releases the context reference.
// Idempotent.
func (m *Monitor) Stop() {
	if m.running.Swap(false) {
		m.sub.Unsubscribe()
		close(m.stopCh)
		<-m.doneCh
	}
	if !m.released.Swap(true) {
		m.ctx.Close()
	}
}
