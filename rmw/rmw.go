package rmw

import (
	"fmt"
	"os"
	"strconv"

	"github.com/robomesh/meshkit/bus"
	"github.com/robomesh/meshkit/errors"
)

// DomainEnvVar is consulted when no explicit domain override is supplied.
const DomainEnvVar = "MESH_DOMAIN_ID"

// MaxDomainID bounds the domain id range. The bound follows the DDS port
// mapping arithmetic, which runs out of UDP ports above domain 232.
const MaxDomainID = 232

// Handle is the capability to the native middleware resources backing one
// context. Exactly one context owns a handle; derived entities reach it
// only through the context's accessor methods.
type Handle interface {
	// IsValid reports whether the handle is usable. Safe in every state,
	// including after a failed initialization.
	IsValid() bool

	// Shutdown makes the handle permanently invalid and stops the
	// transport. Not idempotent: a second call returns ALREADY_SHUTDOWN.
	Shutdown() error

	// Finalize releases all native resources. Must run exactly once per
	// successfully initialized handle; it shuts down first if the handle
	// is still valid. A second call returns CLOSED.
	Finalize() error

	// DomainID returns the resolved domain id. Only meaningful while the
	// handle is valid; callers check IsValid first.
	DomainID() uint32

	// RemapRules returns the name remap rules parsed from the process
	// arguments, from-name to to-name.
	RemapRules() map[string]string

	// Bus returns the message transport scoped to this handle.
	Bus() bus.MessageBus

	// TopicSubject maps a topic name into this handle's domain namespace.
	TopicSubject(topic string) string

	// GraphSubject maps a node name into the reserved discovery namespace.
	GraphSubject(node string) string
}

// InitOptions configures Init.
type InitOptions struct {
	// Args is the process argument sequence. Arguments after a
	// `--mesh-args` marker are interpreted (see ParseArgs); everything
	// before it is opaque and ignored.
	Args []string

	// DomainID is the explicit domain override. Takes precedence over the
	// MESH_DOMAIN_ID environment variable when HasDomainID is true.
	DomainID    uint32
	HasDomainID bool

	// TransportURL selects the transport. Empty means the in-process bus;
	// a nats:// URL dials a NATS server.
	TransportURL string

	// BufferSize for subscription channels. Zero means the bus default.
	BufferSize int
}

// Init parses arguments, resolves the domain id, and dials the transport.
// All failures are typed construction errors; Init never panics.
func Init(opts InitOptions) (Handle, error) {
	parsed, err := ParseArgs(opts.Args)
	if err != nil {
		return nil, err
	}

	domain, err := resolveDomainID(opts)
	if err != nil {
		return nil, err
	}

	transport, err := dialTransport(opts)
	if err != nil {
		return nil, err
	}

	return newBusHandle(domain, parsed, transport), nil
}

// resolveDomainID applies the precedence explicit override > environment
// variable > default 0.
func resolveDomainID(opts InitOptions) (uint32, error) {
	if opts.HasDomainID {
		if opts.DomainID > MaxDomainID {
			return 0, errors.Newf(errors.ErrCodeInvalidDomain,
				"domain id %d exceeds maximum %d", opts.DomainID, MaxDomainID)
		}
		return opts.DomainID, nil
	}

	raw, ok := os.LookupEnv(DomainEnvVar)
	if !ok || raw == "" {
		return 0, nil
	}

	parsed, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrCodeInvalidDomain,
			fmt.Sprintf("parsing %s=%q", DomainEnvVar, raw))
	}
	if parsed > MaxDomainID {
		return 0, errors.Newf(errors.ErrCodeInvalidDomain,
			"%s=%d exceeds maximum %d", DomainEnvVar, parsed, MaxDomainID)
	}
	return uint32(parsed), nil
}

// dialTransport connects the configured message bus.
func dialTransport(opts InitOptions) (bus.MessageBus, error) {
	cfg := bus.DefaultConfig()
	if opts.BufferSize > 0 {
		cfg.BufferSize = opts.BufferSize
	}

	if opts.TransportURL == "" {
		return bus.NewMemoryBus(cfg), nil
	}

	natsCfg := bus.DefaultNATSConfig()
	natsCfg.Config = cfg
	natsCfg.URL = opts.TransportURL
	b, err := bus.NewNATSBus(natsCfg)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeResource,
			fmt.Sprintf("dialing transport %s", opts.TransportURL))
	}
	return b, nil
}
