package bridge

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/robomesh/meshkit/bus"
	"github.com/robomesh/meshkit/node"
)

// conn is one client session: a read pump handling inbound frames and a
// write pump serializing outbound frames and pings.
type conn struct {
	bridge *Bridge
	ws     *websocket.Conn

	send chan *Frame
	done chan struct{}

	mu     sync.Mutex
	closed bool
	subs   map[string]bus.Subscription
	pubs   map[string]*node.Publisher
}

func newConn(b *Bridge, ws *websocket.Conn) *conn {
	ws.SetReadLimit(b.cfg.MaxMessageSize)
	return &conn{
		bridge: b,
		ws:     ws,
		send:   make(chan *Frame, b.cfg.SendBufferSize),
		done:   make(chan struct{}),
		subs:   make(map[string]bus.Subscription),
		pubs:   make(map[string]*node.Publisher),
	}
}

func (c *conn) run() {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.readLoop()
	}()
	go func() {
		defer wg.Done()
		c.writeLoop()
	}()
	wg.Wait()
	c.bridge.untrack(c)
}

func (c *conn) readLoop() {
	defer c.close()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}

		frame, err := ParseFrame(data)
		if err != nil {
			c.enqueue(errorFrame(err.Error()))
			continue
		}
		c.handle(frame)
	}
}

func (c *conn) handle(f *Frame) {
	switch f.Op {
	case OpSubscribe:
		if err := c.subscribe(f.Topic); err != nil {
			c.enqueue(errorFrame("subscribe " + f.Topic + ": " + err.Error()))
		}
	case OpUnsubscribe:
		c.unsubscribe(f.Topic)
	case OpPublish:
		if err := c.publish(f.Topic, f.Data); err != nil {
			c.enqueue(errorFrame("publish " + f.Topic + ": " + err.Error()))
		}
	}
}

func (c *conn) subscribe(topic string) error {
	ctx := c.bridge.node.Context()
	subject, err := ctx.ResolveTopic(topic)
	if err != nil {
		return err
	}
	transport, err := ctx.Bus()
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	if _, ok := c.subs[topic]; ok {
		c.mu.Unlock()
		return nil
	}
	sub, err := transport.Subscribe(subject)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.subs[topic] = sub
	c.mu.Unlock()

	go func() {
		for msg := range sub.Messages() {
			c.enqueue(messageFrame(topic, msg.Data))
		}
	}()
	return nil
}

func (c *conn) unsubscribe(topic string) {
	c.mu.Lock()
	sub, ok := c.subs[topic]
	delete(c.subs, topic)
	c.mu.Unlock()
	if ok {
		sub.Unsubscribe()
	}
}

func (c *conn) publish(topic string, data []byte) error {
	c.mu.Lock()
	pub, ok := c.pubs[topic]
	c.mu.Unlock()

	if !ok {
		var err error
		pub, err = c.bridge.node.CreatePublisher(topic)
		if err != nil {
			return err
		}
		c.mu.Lock()
		c.pubs[topic] = pub
		c.mu.Unlock()
	}
	// Data is already JSON; RawMessage passes it through unchanged.
	return pub.Publish(json.RawMessage(data))
}

// enqueue queues an outbound frame, dropping when the client is slow.
func (c *conn) enqueue(f *Frame) {
	select {
	case c.send <- f:
	case <-c.done:
	default:
		c.bridge.log.Warn("client send buffer full, dropping frame", map[string]interface{}{
			"op": f.Op,
		})
	}
}

func (c *conn) writeLoop() {
	ticker := c.pingTicker()
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writePing()
		case f := <-c.send:
			c.writeFrame(f)
		}
	}
}

func (c *conn) pingTicker() *time.Ticker {
	if c.bridge.cfg.PingInterval > 0 {
		return time.NewTicker(c.bridge.cfg.PingInterval)
	}
	ticker := time.NewTicker(time.Hour)
	ticker.Stop()
	return ticker
}

func (c *conn) writePing() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second))
}

func (c *conn) writeFrame(f *Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.ws.SetWriteDeadline(time.Now().Add(c.bridge.cfg.WriteTimeout))
	c.ws.WriteJSON(f)
}

func (c *conn) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	close(c.done)
	for _, sub := range subs {
		sub.Unsubscribe()
	}

	c.ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	c.ws.Close()
}
