package routekit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
)

// Request is the validated argument bundle handed to a Handler.
type Request struct {
	http   *http.Request
	app    *AppContext
	route  *Route
	router *Router
	logger *slog.Logger

	pathValues map[string]string
	params     map[string]any
	query      map[string]any
	body       any
}

// HTTP returns the underlying *http.Request. Its body has already been
// consumed when the route declares a body schema.
func (r *Request) HTTP() *http.Request { return r.http }

// Context returns the request context.
func (r *Request) Context() context.Context { return r.http.Context() }

// App returns the AppContext of the current epoch. It is nil only for
// exempt routes served while the server is not running.
func (r *Request) App() *AppContext { return r.app }

// Route returns the matched route.
func (r *Request) Route() Route { return *r.route }

// Router returns the router serving the request.
func (r *Request) Router() *Router { return r.router }

// Logger returns the request-scoped logger.
func (r *Request) Logger() *slog.Logger { return r.logger }

// PathValue returns the raw, unvalidated capture for a {name} segment.
func (r *Request) PathValue(name string) string { return r.pathValues[name] }

// Params returns the validated path parameters.
func (r *Request) Params() map[string]any { return maps.Clone(r.params) }

// Param returns one validated path parameter.
func (r *Request) Param(name string) any { return r.params[name] }

// Query returns the validated query values.
func (r *Request) Query() map[string]any { return maps.Clone(r.query) }

// QueryValue returns one validated query value, or nil when absent.
func (r *Request) QueryValue(name string) any { return r.query[name] }

// Body returns the validated body: map[string]any, []any, string, int64,
// float64 or bool depending on the schema. It is nil when the route has no
// body schema.
func (r *Request) Body() any { return r.body }

// Decode converts the validated body into a T.
func Decode[T any](r *Request) (*T, error) {
	return convert[T](r.body)
}

// DecodeParams converts the validated path parameters into a T.
func DecodeParams[T any](r *Request) (*T, error) {
	return convert[T](r.params)
}

// DecodeQuery converts the validated query values into a T.
func DecodeQuery[T any](r *Request) (*T, error) {
	return convert[T](r.query)
}

// convert round-trips an already validated value through JSON. A failure
// means the target type disagrees with the schema, which is a programming
// error and therefore internal.
func convert[T any](v any) (*T, error) {
	out := new(T)
	if v == nil {
		return out, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, Internal(fmt.Errorf("encode validated input: %w", err))
	}
	if err := json.Unmarshal(b, out); err != nil {
		return nil, Internal(fmt.Errorf("decode validated input into %T: %w", out, err))
	}
	return out, nil
}

// flattenQuery decodes the raw query string into a flat map. When a key is
// repeated, the last value wins.
func flattenQuery(rawQuery string) (map[string]string, error) {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return nil, err
	}
	flat := make(map[string]string, len(values))
	for k, vs := range values {
		if len(vs) > 0 {
			flat[k] = vs[len(vs)-1]
		}
	}
	return flat, nil
}

// readBody buffers at most limit bytes of the request body.
func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &Error{
				Kind:    KindTooLarge,
				Message: fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
			}
		}
		return nil, BadRequest("failed to read request body")
	}
	return body, nil
}
