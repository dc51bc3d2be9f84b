package routekit

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/bjaus/routekit"

type otelTracer struct {
	tracer trace.Tracer
}

// NewOTelTracer returns a SpanStarter backed by an OpenTelemetry tracer
// provider. Each dispatched request gets one server span named after its
// method and route pattern.
func NewOTelTracer(tp trace.TracerProvider) SpanStarter {
	return &otelTracer{tracer: tp.Tracer(tracerName)}
}

func (o *otelTracer) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, func()) {
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		kvs = append(kvs, attribute.String(k, v))
	}
	ctx, span := o.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(kvs...),
	)
	return ctx, func() { span.End() }
}
