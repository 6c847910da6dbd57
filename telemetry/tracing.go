// Package telemetry provides OpenTelemetry tracing for meshkit: context
// lifecycle transitions, endpoint publishes, and callback deliveries. With
// no provider initialized the global tracer is a no-op and instrumentation
// costs nothing observable.
package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Tracer wraps OpenTelemetry tracing with meshkit-specific helpers.
type Tracer struct {
	tracer trace.Tracer
}

var (
	globalTracer *Tracer
	tracerMu     sync.RWMutex
)

// SetGlobalTracer sets the global tracer instance.
func SetGlobalTracer(t *Tracer) {
	tracerMu.Lock()
	defer tracerMu.Unlock()
	globalTracer = t
}

// GetTracer returns the global tracer, or a no-op tracer if not set.
func GetTracer() *Tracer {
	tracerMu.RLock()
	defer tracerMu.RUnlock()
	if globalTracer == nil {
		return &Tracer{tracer: noop.NewTracerProvider().Tracer("")}
	}
	return globalTracer
}

// NewTracer creates a new tracer with the given instrumentation name.
func NewTracer(name string) *Tracer {
	return &Tracer{tracer: otel.Tracer(name)}
}

// StartSpan starts a new span with the given name.
func (t *Tracer) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// EndSpan records err (if any) on the span and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// StartPublishSpan starts a producer span for one topic publish.
func (t *Tracer) StartPublishSpan(ctx context.Context, node, topic string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "mesh.publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("mesh.node", node),
			attribute.String("mesh.topic", topic),
		))
}

// StartDeliverSpan starts a consumer span for one callback delivery.
func (t *Tracer) StartDeliverSpan(ctx context.Context, node, topic string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "mesh.deliver",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("mesh.node", node),
			attribute.String("mesh.topic", topic),
		))
}
