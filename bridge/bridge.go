package bridge

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/robomesh/meshkit/logging"
	"github.com/robomesh/meshkit/node"
)

// Config holds bridge configuration.
type Config struct {
	// WriteTimeout for write operations. Default: 10s.
	WriteTimeout time.Duration

	// MaxMessageSize limits incoming frame size. Default: 1MB.
	MaxMessageSize int64

	// PingInterval for keepalive pings (negative = disabled). Default: 30s.
	PingInterval time.Duration

	// SendBufferSize per client connection. Frames for a client whose
	// buffer is full are dropped. Default: 64.
	SendBufferSize int
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		WriteTimeout:   10 * time.Second,
		MaxMessageSize: 1024 * 1024,
		PingInterval:   30 * time.Second,
		SendBufferSize: 64,
	}
}

func (c *Config) fillDefaults() {
	d := DefaultConfig()
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = d.MaxMessageSize
	}
	if c.PingInterval == 0 {
		c.PingInterval = d.PingInterval
	}
	if c.SendBufferSize <= 0 {
		c.SendBufferSize = d.SendBufferSize
	}
}

// Bridge serves WebSocket clients backed by one node. It closes every
// client when the node's context shuts down.
type Bridge struct {
	node     *node.Node
	cfg      Config
	upgrader websocket.Upgrader
	log      *logging.Logger

	mu    sync.Mutex
	conns map[*conn]struct{}

	closed atomic.Bool
	quit   chan struct{}
}

// New creates a bridge backed by n and starts watching n's context for
// shutdown.
func New(n *node.Node, cfg Config) *Bridge {
	cfg.fillDefaults()
	b := &Bridge{
		node: n,
		cfg:  cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log:   n.Context().Logger().WithComponent("bridge"),
		conns: make(map[*conn]struct{}),
		quit:  make(chan struct{}),
	}
	go b.watchContext()
	return b
}

// Handler returns the HTTP handler that upgrades requests to bridge
// sessions.
func (b *Bridge) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.closed.Load() {
			http.Error(w, "bridge closed", http.StatusServiceUnavailable)
			return
		}
		ws, err := b.upgrader.Upgrade(w, r, nil)
		if err != nil {
			b.log.Warn("upgrade failed", map[string]interface{}{"error": err.Error()})
			return
		}
		c := newConn(b, ws)
		b.track(c)
		go c.run()
	})
}

func (b *Bridge) track(c *conn) {
	b.mu.Lock()
	b.conns[c] = struct{}{}
	b.mu.Unlock()
}

func (b *Bridge) untrack(c *conn) {
	b.mu.Lock()
	delete(b.conns, c)
	b.mu.Unlock()
}

// watchContext closes the bridge when the node's context stops being OK.
func (b *Bridge) watchContext() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-b.quit:
			return
		case <-ticker.C:
			if !b.node.Context().OK() {
				b.Close()
				return
			}
		}
	}
}

// Close disconnects every client. Idempotent.
func (b *Bridge) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	close(b.quit)

	b.mu.Lock()
	conns := make([]*conn, 0, len(b.conns))
	for c := range b.conns {
		conns = append(conns, c)
	}
	b.mu.Unlock()

	for _, c := range conns {
		c.close()
	}
	b.log.Debug("bridge closed", map[string]interface{}{"clients": len(conns)})
	return nil
}
