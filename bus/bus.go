// Package bus provides the message transport underneath the middleware
// handle. It exposes pub/sub and request/reply over two backends: an
// in-process bus for single-process graphs and tests, and NATS for
// multi-process graphs. Subjects use NATS conventions: dot-separated
// tokens, `*` matching one token, a trailing `>` matching the rest.
package bus

import (
	"errors"
	"strings"
	"time"
)

// Common errors.
var (
	ErrClosed         = errors.New("bus closed")
	ErrTimeout        = errors.New("request timeout")
	ErrNoResponders   = errors.New("no responders")
	ErrInvalidSubject = errors.New("invalid subject")
)

// Message represents a message received from the bus.
type Message struct {
	// Subject the message was published to.
	Subject string

	// Data is the message payload.
	Data []byte

	// Reply is the reply subject for request/reply exchanges.
	// Empty for regular pub/sub messages.
	Reply string
}

// MessageBus provides pub/sub and request/reply messaging.
type MessageBus interface {
	// Publish sends a message to all subscribers matching a subject.
	Publish(subject string, data []byte) error

	// Subscribe creates a subscription. The subject may contain wildcards.
	Subscribe(subject string) (Subscription, error)

	// QueueSubscribe creates a queue subscription. Messages are delivered
	// to one member of each queue group.
	QueueSubscribe(subject, queue string) (Subscription, error)

	// Request publishes data and waits for a single reply.
	// Returns ErrTimeout if no reply arrives within timeout.
	Request(subject string, data []byte, timeout time.Duration) (*Message, error)

	// Close shuts down the bus. Close is idempotent.
	Close() error
}

// Subscription represents an active subscription.
type Subscription interface {
	// Messages returns the channel for incoming messages.
	// The channel is closed when the subscription ends.
	Messages() <-chan *Message

	// Unsubscribe cancels the subscription. Idempotent.
	Unsubscribe() error
}

// Config holds common bus configuration.
type Config struct {
	// BufferSize for subscription channels. When a subscriber's buffer is
	// full, new messages for it are dropped.
	// Default: 256
	BufferSize int
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BufferSize: 256,
	}
}

// ValidateSubject checks a concrete (publishable) subject: non-empty
// dot-separated tokens, no wildcards.
func ValidateSubject(subject string) error {
	if err := validateTokens(subject); err != nil {
		return err
	}
	if strings.ContainsAny(subject, "*>") {
		return ErrInvalidSubject
	}
	return nil
}

// ValidatePattern checks a subscription pattern. Wildcards are allowed:
// `*` must occupy a whole token, `>` must be the final token.
func ValidatePattern(pattern string) error {
	if err := validateTokens(pattern); err != nil {
		return err
	}
	tokens := strings.Split(pattern, ".")
	for i, tok := range tokens {
		switch tok {
		case ">":
			if i != len(tokens)-1 {
				return ErrInvalidSubject
			}
		case "*":
		default:
			if strings.ContainsAny(tok, "*>") {
				return ErrInvalidSubject
			}
		}
	}
	return nil
}

func validateTokens(subject string) error {
	if subject == "" {
		return ErrInvalidSubject
	}
	for _, tok := range strings.Split(subject, ".") {
		if tok == "" {
			return ErrInvalidSubject
		}
		if strings.ContainsAny(tok, " \t\r\n") {
			return ErrInvalidSubject
		}
	}
	return nil
}

// matchSubject reports whether a concrete subject matches a pattern.
func matchSubject(pattern, subject string) bool {
	pt := strings.Split(pattern, ".")
	st := strings.Split(subject, ".")

	for i, tok := range pt {
		if tok == ">" {
			return i < len(st)
		}
		if i >= len(st) {
			return false
		}
		if tok != "*" && tok != st[i] {
			return false
		}
	}
	return len(pt) == len(st)
}
