package mesh

import (
	gocontext "context"

	"github.com/robomesh/meshkit/config"
	"github.com/robomesh/meshkit/errors"
	"github.com/robomesh/meshkit/logging"
	"github.com/robomesh/meshkit/rmw"
	"github.com/robomesh/meshkit/telemetry"
)

// Builder constructs a Context. A Builder is consumed by Build and carries
// no identity afterward.
type Builder struct {
	args         []string
	domainID     uint32
	hasDomainID  bool
	transportURL string
	bufferSize   int
	logger       *logging.Logger

	// initFn is replaced by tests to inject handle doubles.
	initFn func(rmw.InitOptions) (rmw.Handle, error)
}

// NewBuilder captures the process argument sequence. The domain id is left
// unset, deferring to the environment or platform default at build time.
func NewBuilder(args []string) *Builder {
	return &Builder{args: args, initFn: rmw.Init}
}

// DomainID sets the explicit domain override, the highest priority in the
// resolution order.
func (b *Builder) DomainID(id uint32) *Builder {
	b.domainID = id
	b.hasDomainID = true
	return b
}

// TransportURL selects the transport backend. Empty keeps the in-process
// bus; a nats:// URL dials a NATS server at build time.
func (b *Builder) TransportURL(url string) *Builder {
	b.transportURL = url
	return b
}

// BufferSize sets the subscription buffer depth for derived endpoints.
func (b *Builder) BufferSize(n int) *Builder {
	b.bufferSize = n
	return b
}

// Logger sets the logger shared by the context and its derived entities.
func (b *Builder) Logger(l *logging.Logger) *Builder {
	b.logger = l
	return b
}

// Profile applies a loaded configuration profile. Explicit builder calls
// made after Profile win over the profile's values.
func (b *Builder) Profile(p config.Profile) *Builder {
	if p.DomainID != nil {
		b.domainID = *p.DomainID
		b.hasDomainID = true
	}
	if p.TransportURL != "" {
		b.transportURL = p.TransportURL
	}
	if p.BufferSize > 0 {
		b.bufferSize = p.BufferSize
	}
	if p.LogLevel != "" {
		if b.logger == nil {
			b.logger = logging.New()
		}
		b.logger.SetLevel(logging.ParseLevel(p.LogLevel))
	}
	return b
}

// Build initializes the native layer and wraps it in a Context holding the
// first reference. Failures are typed construction errors: INVALID_ARGS or
// INVALID_DOMAIN for caller mistakes, RESOURCE for transport failures.
// Build never panics.
func (b *Builder) Build() (*Context, error) {
	_, span := telemetry.GetTracer().StartSpan(gocontext.Background(), "mesh.context.build")

	handle, err := b.initFn(rmw.InitOptions{
		Args:         b.args,
		DomainID:     b.domainID,
		HasDomainID:  b.hasDomainID,
		TransportURL: b.transportURL,
		BufferSize:   b.bufferSize,
	})
	if err != nil {
		telemetry.EndSpan(span, err)
		return nil, errors.Wrap(err, "building context")
	}

	ctx := newContext(handle, b.logger)
	ctx.log.Debug("context built", map[string]interface{}{
		"domain": handle.DomainID(),
	})
	telemetry.EndSpan(span, nil)
	return ctx, nil
}

// New is a convenience equivalent to NewBuilder(args).Build().
func New(args []string) (*Context, error) {
	return NewBuilder(args).Build()
}
