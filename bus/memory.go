package bus

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// MemoryBus implements MessageBus using in-process channels. It is the
// default transport for single-process graphs and the backend used by tests.
type MemoryBus struct {
	config Config

	mu     sync.RWMutex
	subs   []*memorySub
	closed atomic.Bool
}

type memorySub struct {
	pattern string
	queue   string
	ch      chan *Message
	closed  atomic.Bool
	bus     *MemoryBus

	// rr is the queue-group round-robin cursor, owned by the bus.
	rr uint64
}

// NewMemoryBus creates a new in-process message bus.
func NewMemoryBus(cfg Config) *MemoryBus {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}
	return &MemoryBus{config: cfg}
}

// Publish sends a message to all matching subscribers and to one member of
// each matching queue group.
func (b *MemoryBus) Publish(subject string, data []byte) error {
	return b.publish(&Message{Subject: subject, Data: data})
}

func (b *MemoryBus) publish(msg *Message) error {
	if err := ValidateSubject(msg.Subject); err != nil {
		return err
	}
	if b.closed.Load() {
		return ErrClosed
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	// queue -> members matching this subject
	queues := make(map[string][]*memorySub)

	for _, sub := range b.subs {
		if sub.closed.Load() || !matchSubject(sub.pattern, msg.Subject) {
			continue
		}
		if sub.queue != "" {
			queues[sub.queue] = append(queues[sub.queue], sub)
			continue
		}
		sub.deliver(msg)
	}

	for _, members := range queues {
		deliverToOne(members, msg)
	}

	return nil
}

// deliver sends to the subscriber, dropping the message if its buffer is full.
func (s *memorySub) deliver(msg *Message) bool {
	select {
	case s.ch <- msg:
		return true
	default:
		return false
	}
}

// deliverToOne picks one member of a queue group, starting round-robin and
// falling through to any member with buffer space.
func deliverToOne(members []*memorySub, msg *Message) {
	if len(members) == 0 {
		return
	}
	start := int(atomic.AddUint64(&members[0].rr, 1)) % len(members)
	for i := 0; i < len(members); i++ {
		if members[(start+i)%len(members)].deliver(msg) {
			return
		}
	}
}

// Subscribe creates a subscription to a subject pattern.
func (b *MemoryBus) Subscribe(pattern string) (Subscription, error) {
	return b.subscribe(pattern, "")
}

// QueueSubscribe creates a queue subscription.
func (b *MemoryBus) QueueSubscribe(pattern, queue string) (Subscription, error) {
	if queue == "" {
		return nil, ErrInvalidSubject
	}
	return b.subscribe(pattern, queue)
}

func (b *MemoryBus) subscribe(pattern, queue string) (Subscription, error) {
	if err := ValidatePattern(pattern); err != nil {
		return nil, err
	}
	if b.closed.Load() {
		return nil, ErrClosed
	}

	sub := &memorySub{
		pattern: pattern,
		queue:   queue,
		ch:      make(chan *Message, b.config.BufferSize),
		bus:     b,
	}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	return sub, nil
}

// Request publishes data with a unique reply inbox and waits for one reply.
func (b *MemoryBus) Request(subject string, data []byte, timeout time.Duration) (*Message, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}

	inbox := "_INBOX." + uuid.NewString()
	replySub, err := b.Subscribe(inbox)
	if err != nil {
		return nil, err
	}
	defer replySub.Unsubscribe()

	if err := b.publish(&Message{Subject: subject, Data: data, Reply: inbox}); err != nil {
		return nil, err
	}

	select {
	case reply, ok := <-replySub.Messages():
		if !ok {
			return nil, ErrClosed
		}
		return reply, nil
	case <-time.After(timeout):
		return nil, ErrTimeout
	}
}

// Close shuts down the bus and every subscription. Idempotent.
func (b *MemoryBus) Close() error {
	if b.closed.Swap(true) {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		if !sub.closed.Swap(true) {
			close(sub.ch)
		}
	}
	b.subs = nil

	return nil
}

// Messages returns the message channel.
func (s *memorySub) Messages() <-chan *Message {
	return s.ch
}

// Unsubscribe cancels the subscription. Idempotent.
func (s *memorySub) Unsubscribe() error {
	if s.closed.Swap(true) {
		return nil
	}

	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	for i, sub := range s.bus.subs {
		if sub == s {
			s.bus.subs = append(s.bus.subs[:i], s.bus.subs[i+1:]...)
			break
		}
	}

	close(s.ch)
	return nil
}
