// Package bridge exposes a node's topics to external clients over
// WebSocket. Clients exchange JSON frames: subscribe/unsubscribe/publish
// inbound, message/error outbound.
package bridge

import (
	"encoding/json"
	"fmt"
)

// Frame operations.
const (
	OpSubscribe   = "subscribe"
	OpUnsubscribe = "unsubscribe"
	OpPublish     = "publish"
	OpMessage     = "message"
	OpError       = "error"
)

// Frame is one message on the wire, in either direction.
type Frame struct {
	Op    string          `json:"op"`
	Topic string          `json:"topic,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// ParseFrame decodes and validates an inbound frame.
func ParseFrame(data []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}

	switch f.Op {
	case OpSubscribe, OpUnsubscribe:
		if f.Topic == "" {
			return nil, fmt.Errorf("%s frame requires a topic", f.Op)
		}
	case OpPublish:
		if f.Topic == "" {
			return nil, fmt.Errorf("publish frame requires a topic")
		}
		if len(f.Data) == 0 {
			return nil, fmt.Errorf("publish frame requires data")
		}
	default:
		return nil, fmt.Errorf("unknown op %q", f.Op)
	}
	return &f, nil
}

func errorFrame(msg string) *Frame {
	return &Frame{Op: OpError, Error: msg}
}

func messageFrame(topic string, data []byte) *Frame {
	return &Frame{Op: OpMessage, Topic: topic, Data: json.RawMessage(data)}
}
