package rmw

import (
	"fmt"
	"sync/atomic"

	"github.com/robomesh/meshkit/bus"
	"github.com/robomesh/meshkit/errors"
)

// Handle states. Transitions only move forward.
const (
	stateValid int32 = iota
	stateShutDown
	stateFinalized
)

// busHandle is the production Handle, backed by a message bus.
type busHandle struct {
	state     atomic.Int32
	domainID  uint32
	args      *ParsedArgs
	transport bus.MessageBus
}

func newBusHandle(domainID uint32, args *ParsedArgs, transport bus.MessageBus) *busHandle {
	return &busHandle{
		domainID:  domainID,
		args:      args,
		transport: transport,
	}
}

// IsValid reports whether the handle is usable.
func (h *busHandle) IsValid() bool {
	return h.state.Load() == stateValid
}

// Shutdown stops the transport and makes the handle permanently invalid.
func (h *busHandle) Shutdown() error {
	if !h.state.CompareAndSwap(stateValid, stateShutDown) {
		return errors.FromCode(errors.ErrCodeAlreadyShutdown)
	}
	if err := h.transport.Close(); err != nil {
		return errors.WrapWithCode(err, errors.ErrCodeShutdownFailed,
			"closing transport")
	}
	return nil
}

// Finalize releases the handle's resources, shutting down first if needed.
func (h *busHandle) Finalize() error {
	switch h.state.Load() {
	case stateFinalized:
		return errors.New(errors.ErrCodeClosed, "handle already finalized")
	case stateValid:
		if err := h.Shutdown(); err != nil {
			return errors.WrapWithCode(err, errors.ErrCodeFinalizeFailed,
				"shutting down during finalize")
		}
	}
	h.state.Store(stateFinalized)
	h.args = nil
	return nil
}

// DomainID returns the resolved domain id.
func (h *busHandle) DomainID() uint32 {
	return h.domainID
}

// RemapRules returns a copy of the parsed remap rules.
func (h *busHandle) RemapRules() map[string]string {
	args := h.args
	if args == nil {
		return nil
	}
	rules := make(map[string]string, len(args.RemapRules))
	for from, to := range args.RemapRules {
		rules[from] = to
	}
	return rules
}

// Bus returns the message transport.
func (h *busHandle) Bus() bus.MessageBus {
	return h.transport
}

// TopicSubject maps a topic into the domain namespace.
func (h *busHandle) TopicSubject(topic string) string {
	return fmt.Sprintf("mesh.%d.%s", h.domainID, topic)
}

// GraphSubject maps a node name into the reserved discovery namespace.
func (h *busHandle) GraphSubject(node string) string {
	return fmt.Sprintf("mesh.%d._graph.%s", h.domainID, node)
}
