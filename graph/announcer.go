package graph

import (
	"sync/atomic"
	"time"

	"github.com/robomesh/meshkit/logging"
	"github.com/robomesh/meshkit/node"
)

// Announcer periodically publishes a node's NodeInfo on its reserved
// graph subject.
type Announcer struct {
	node     *node.Node
	subject  string
	interval time.Duration
	log      *logging.Logger

	running atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// AnnouncerConfig configures an Announcer.
type AnnouncerConfig struct {
	// Interval between announcements. Default: DefaultInterval.
	Interval time.Duration
}

// NewAnnouncer creates an announcer for n.
func NewAnnouncer(n *node.Node, cfg AnnouncerConfig) *Announcer {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Announcer{
		node:     n,
		subject:  n.Context().GraphSubject(n.Name()),
		interval: interval,
		log:      n.Context().Logger().WithComponent("graph.announcer"),
	}
}

// Start begins announcing. The first announcement goes out immediately.
// Starting twice is a no-op.
func (a *Announcer) Start() {
	if a.running.Swap(true) {
		return
	}
	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.run()
}

func (a *Announcer) run() {
	defer close(a.doneCh)

	a.announce()

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stopCh:
			return
		case <-ticker.C:
			if !a.node.Context().OK() {
				return
			}
			a.announce()
		}
	}
}

func (a *Announcer) announce() {
	info := NodeInfo{
		Name:      a.node.Name(),
		GID:       a.node.GID(),
		Topics:    a.node.Topics(),
		Timestamp: time.Now(),
	}
	data, err := info.Marshal()
	if err != nil {
		a.log.Error("encoding announcement", map[string]interface{}{"error": err.Error()})
		return
	}

	transport, err := a.node.Context().Bus()
	if err != nil {
		return
	}
	if err := transport.Publish(a.subject, data); err != nil {
		a.log.Warn("publishing announcement", map[string]interface{}{"error": err.Error()})
	}
}

// Stop halts announcing and waits for the loop to exit. Idempotent.
func (a *Announcer) Stop() {
	if !a.running.Swap(false) {
		return
	}
	close(a.stopCh)
	<-a.doneCh
}
