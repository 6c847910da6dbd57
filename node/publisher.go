package node

import (
	gocontext "context"
	"encoding/json"
	"fmt"

	"github.com/robomesh/meshkit/errors"
	"github.com/robomesh/meshkit/telemetry"
)

// Publisher sends JSON-encoded payloads to one topic.
type Publisher struct {
	node    *Node
	topic   string
	subject string
}

// CreatePublisher resolves topic through the context's remap rules and
// returns a publisher bound to the resulting subject.
func (n *Node) CreatePublisher(topic string) (*Publisher, error) {
	subject, err := n.ctx.ResolveTopic(topic)
	if err != nil {
		return nil, err
	}
	n.addTopic(topic)
	return &Publisher{node: n, topic: topic, subject: subject}, nil
}

// Topic returns the topic the publisher was created with.
func (p *Publisher) Topic() string { return p.topic }

// Publish encodes v as JSON and sends it. It fails with INVALID_CONTEXT
// once the owning context has shut down.
func (p *Publisher) Publish(v interface{}) error {
	if !p.node.ctx.OK() {
		return errors.FromCode(errors.ErrCodeInvalidContext)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrCodeInvalidArgs,
			fmt.Sprintf("encoding payload for %q", p.topic))
	}

	_, span := telemetry.GetTracer().StartPublishSpan(gocontext.Background(), p.node.name, p.topic)
	err = p.node.bus.Publish(p.subject, data)
	telemetry.EndSpan(span, err)
	if err != nil {
		return errors.Wrap(err, fmt.Sprintf("publishing to %q", p.topic))
	}
	return nil
}
