package node

import (
	gocontext "context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/robomesh/meshkit/bus"
	"github.com/robomesh/meshkit/errors"
	"github.com/robomesh/meshkit/telemetry"
)

// Incoming is a message delivered to a subscription callback.
type Incoming struct {
	Topic   string
	Subject string
	Data    []byte
}

// Decode unmarshals the JSON payload into v.
func (in *Incoming) Decode(v interface{}) error {
	return json.Unmarshal(in.Data, v)
}

// Callback handles one delivered message. Callbacks run on the goroutine
// that called Spin, one at a time.
type Callback func(*Incoming)

// Subscription receives messages for one topic and hands them to a
// callback via the node's dispatch loop.
type Subscription struct {
	node     *Node
	topic    string
	callback Callback
	sub      bus.Subscription
	done     atomic.Bool
}

// CreateSubscription subscribes to topic and registers cb for dispatch.
// Messages are queued until Spin runs; the queue drops when full.
func (n *Node) CreateSubscription(topic string, cb Callback) (*Subscription, error) {
	if cb == nil {
		return nil, errors.New(errors.ErrCodeInvalidArgs, "nil callback")
	}
	subject, err := n.ctx.ResolveTopic(topic)
	if err != nil {
		return nil, err
	}

	raw, err := n.bus.Subscribe(subject)
	if err != nil {
		return nil, errors.Wrap(err, "subscribing to "+subject)
	}

	s := &Subscription{node: n, topic: topic, callback: cb, sub: raw}
	n.mu.Lock()
	n.subs = append(n.subs, s)
	n.mu.Unlock()
	n.addTopic(topic)

	go s.pump()
	return s, nil
}

// Topic returns the topic the subscription was created with.
func (s *Subscription) Topic() string { return s.topic }

// Unsubscribe stops delivery. Idempotent.
func (s *Subscription) Unsubscribe() error {
	if s.done.Swap(true) {
		return nil
	}
	return s.sub.Unsubscribe()
}

// pump forwards bus messages into the node's dispatch queue, dropping
// when the queue is full.
func (s *Subscription) pump() {
	for msg := range s.sub.Messages() {
		select {
		case s.node.dispatch <- delivery{sub: s, msg: msg}:
		default:
			s.node.log.Warn("dispatch queue full, dropping message", map[string]interface{}{
				"topic": s.topic,
			})
		}
	}
}

// Spin dispatches subscription callbacks on the calling goroutine until
// the node's context shuts down or the node is closed.
func Spin(n *Node) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-n.quit:
			return
		case d := <-n.dispatch:
			deliver(n, d)
		case <-ticker.C:
			if !n.ctx.OK() {
				return
			}
		}
	}
}

// SpinOnce dispatches at most one pending message, waiting up to timeout.
// It reports whether a message was dispatched.
func SpinOnce(n *Node, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-n.quit:
		return false
	case d := <-n.dispatch:
		deliver(n, d)
		return true
	case <-timer.C:
		return false
	}
}

func deliver(n *Node, d delivery) {
	if d.sub.done.Load() {
		return
	}
	_, span := telemetry.GetTracer().StartDeliverSpan(gocontext.Background(), n.name, d.sub.topic)
	d.sub.callback(&Incoming{
		Topic:   d.sub.topic,
		Subject: d.msg.Subject,
		Data:    d.msg.Data,
	})
	telemetry.EndSpan(span, nil)
}
