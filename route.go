package routekit

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"
)

// ErrInvalidRoute is returned by NewTable for a malformed route declaration.
var ErrInvalidRoute = errors.New("invalid route")

// ResponseDescriptor documents one response of a route. It is never used to
// check what a handler writes.
type ResponseDescriptor struct {
	Description string
	Content     *Schema
}

// RouteSchema describes the inputs and documented outputs of a route. A nil
// sub-schema means no input of that kind is expected or validated.
type RouteSchema struct {
	Params          *Schema
	Query           *Schema
	Body            *Schema
	BodyContentType string // default: application/json
	Responses       map[int]ResponseDescriptor
}

// Route binds a method and path pattern to a schema and a handler.
type Route struct {
	Method  string
	Pattern string
	Schema  RouteSchema
	Handler Handler

	Summary     string
	Description string
	Tags        []string
	OperationID string
	Deprecated  bool

	// Exempt routes are served even while no AppContext is available.
	Exempt bool
}

// RouteOption configures a route at declaration time.
type RouteOption func(*Route)

// WithParams sets the path parameter schema. It must be an object whose
// fields are exactly the pattern's {name} segments.
func WithParams(s *Schema) RouteOption {
	return func(r *Route) {
		r.Schema.Params = s
	}
}

// WithQuery sets the query string schema.
func WithQuery(s *Schema) RouteOption {
	return func(r *Route) {
		r.Schema.Query = s
	}
}

// WithBody sets the request body schema.
func WithBody(s *Schema) RouteOption {
	return func(r *Route) {
		r.Schema.Body = s
	}
}

// WithBodyContentType overrides the expected request media type.
func WithBodyContentType(ct string) RouteOption {
	return func(r *Route) {
		r.Schema.BodyContentType = ct
	}
}

// WithResponse documents a response for the given status code.
func WithResponse(status int, description string, content *Schema) RouteOption {
	return func(r *Route) {
		if r.Schema.Responses == nil {
			r.Schema.Responses = make(map[int]ResponseDescriptor)
		}
		r.Schema.Responses[status] = ResponseDescriptor{Description: description, Content: content}
	}
}

// WithSummary sets the OpenAPI summary for the route.
func WithSummary(s string) RouteOption {
	return func(r *Route) {
		r.Summary = s
	}
}

// WithDescription sets the OpenAPI description for the route.
func WithDescription(d string) RouteOption {
	return func(r *Route) {
		r.Description = d
	}
}

// WithTags adds OpenAPI tags to the route.
func WithTags(tags ...string) RouteOption {
	return func(r *Route) {
		r.Tags = append(r.Tags, tags...)
	}
}

// WithOperationID sets a custom OpenAPI operationId.
func WithOperationID(id string) RouteOption {
	return func(r *Route) {
		r.OperationID = id
	}
}

// WithDeprecated marks the route as deprecated in the OpenAPI spec.
func WithDeprecated() RouteOption {
	return func(r *Route) {
		r.Deprecated = true
	}
}

// WithExempt serves the route without waiting for an AppContext.
func WithExempt() RouteOption {
	return func(r *Route) {
		r.Exempt = true
	}
}

// NewRoute declares a route.
func NewRoute(method, pattern string, h Handler, opts ...RouteOption) Route {
	r := Route{Method: method, Pattern: pattern, Handler: h}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// Get declares a GET route.
func Get(pattern string, h Handler, opts ...RouteOption) Route {
	return NewRoute(http.MethodGet, pattern, h, opts...)
}

// Post declares a POST route.
func Post(pattern string, h Handler, opts ...RouteOption) Route {
	return NewRoute(http.MethodPost, pattern, h, opts...)
}

// Put declares a PUT route.
func Put(pattern string, h Handler, opts ...RouteOption) Route {
	return NewRoute(http.MethodPut, pattern, h, opts...)
}

// Patch declares a PATCH route.
func Patch(pattern string, h Handler, opts ...RouteOption) Route {
	return NewRoute(http.MethodPatch, pattern, h, opts...)
}

// Delete declares a DELETE route.
func Delete(pattern string, h Handler, opts ...RouteOption) Route {
	return NewRoute(http.MethodDelete, pattern, h, opts...)
}

// Group prefixes every route's pattern and prepends the given tags.
func Group(prefix string, routes []Route, tags ...string) []Route {
	prefix = strings.TrimSuffix(prefix, "/")
	out := make([]Route, len(routes))
	for i, r := range routes {
		r.Pattern = prefix + r.Pattern
		r.Tags = append(slices.Clone(tags), r.Tags...)
		out[i] = r
	}
	return out
}

var knownMethods = []string{
	http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
	http.MethodPatch, http.MethodDelete, http.MethodOptions,
}

// compiledRoute is a Route plus its compiled pattern.
type compiledRoute struct {
	Route
	pattern *pathPattern
}

// Table is an immutable, ordered route table.
type Table struct {
	routes []compiledRoute
}

// NewTable compiles routes in declaration order. When two routes share a
// method and pattern, the first one wins both dispatch and documentation.
func NewTable(routes ...Route) (*Table, error) {
	t := &Table{routes: make([]compiledRoute, 0, len(routes))}

	for _, r := range routes {
		if !slices.Contains(knownMethods, r.Method) {
			return nil, fmt.Errorf("%w: %s %s: unknown method", ErrInvalidRoute, r.Method, r.Pattern)
		}
		if r.Handler == nil {
			return nil, fmt.Errorf("%w: %s %s: nil handler", ErrInvalidRoute, r.Method, r.Pattern)
		}

		p, err := compilePattern(r.Pattern)
		if err != nil {
			return nil, err
		}
		if err := checkParams(r, p); err != nil {
			return nil, err
		}
		if q := r.Schema.Query; q != nil && q.kind != KindObject {
			return nil, fmt.Errorf("%w: %s %s: query schema must be an object", ErrInvalidRoute, r.Method, r.Pattern)
		}

		r.Tags = slices.Clone(r.Tags)
		r.Schema.Responses = maps.Clone(r.Schema.Responses)
		t.routes = append(t.routes, compiledRoute{Route: r, pattern: p})
	}

	return t, nil
}

// checkParams ensures the params schema and the pattern captures agree.
func checkParams(r Route, p *pathPattern) error {
	s := r.Schema.Params
	if s == nil {
		return nil
	}
	if s.kind != KindObject {
		return fmt.Errorf("%w: %s %s: params schema must be an object", ErrInvalidRoute, r.Method, r.Pattern)
	}

	for _, f := range s.fields {
		if !slices.Contains(p.params, f.Name) {
			return fmt.Errorf("%w: %s %s: params field %q is not in the pattern", ErrInvalidRoute, r.Method, r.Pattern, f.Name)
		}
		if f.Schema.IsOptional() {
			return fmt.Errorf("%w: %s %s: path parameter %q cannot be optional", ErrInvalidRoute, r.Method, r.Pattern, f.Name)
		}
	}
	for _, name := range p.params {
		if !hasField(s, name) {
			return fmt.Errorf("%w: %s %s: path parameter %q missing from params schema", ErrInvalidRoute, r.Method, r.Pattern, name)
		}
	}
	return nil
}

// Routes returns the routes in declaration order.
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	for i := range t.routes {
		out[i] = t.routes[i].Route
	}
	return out
}

// Len returns the number of routes.
func (t *Table) Len() int { return len(t.routes) }

// lookup returns the first route matching method and the escaped path.
func (t *Table) lookup(method, escapedPath string) (*compiledRoute, map[string]string, bool) {
	for i := range t.routes {
		cr := &t.routes[i]
		if cr.Method != method {
			continue
		}
		if captures, ok := cr.pattern.match(escapedPath); ok {
			return cr, captures, true
		}
	}
	return nil, nil, false
}
