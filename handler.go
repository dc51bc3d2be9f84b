package routekit

import (
	"context"
	"time"
)

// Handler is the route handler signature. It receives validated input and
// returns the response to write; the router owns serialization. A returned
// error is translated into the failure envelope.
type Handler func(ctx context.Context, req *Request) (*Response, error)

// Observer is notified once per dispatched request.
type Observer interface {
	Observe(method, pattern string, status int, elapsed time.Duration)
}

// SpanStarter is a tracing hook interface for creating spans per request.
// NewOTelTracer adapts an OpenTelemetry tracer provider.
type SpanStarter interface {
	StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, func())
}
