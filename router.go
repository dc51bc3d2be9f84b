package routekit

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"
)

// ContextSource returns the live AppContext, or nil while none is ready.
type ContextSource func() *AppContext

// Router dispatches requests against an immutable route table. It
// implements http.Handler.
type Router struct {
	table      *Table
	middleware []Middleware

	title   string
	version string

	logger   *slog.Logger
	source   ContextSource
	maxBody  int64
	observer Observer
	tracer   SpanStarter
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithTitle sets the API title (used in OpenAPI spec).
func WithTitle(title string) RouterOption {
	return func(r *Router) {
		r.title = title
	}
}

// WithVersion sets the API version (used in OpenAPI spec).
func WithVersion(version string) RouterOption {
	return func(r *Router) {
		r.version = version
	}
}

// WithLogger sets the logger used when no AppContext is available and for
// internal failures.
func WithLogger(l *slog.Logger) RouterOption {
	return func(r *Router) {
		r.logger = l
	}
}

// WithContextSource sets where the router obtains the AppContext. A Server
// installs its own source; standalone routers default to a static context.
func WithContextSource(src ContextSource) RouterOption {
	return func(r *Router) {
		r.source = src
	}
}

// WithMaxBodyBytes bounds the buffered request body.
func WithMaxBodyBytes(n int64) RouterOption {
	return func(r *Router) {
		r.maxBody = n
	}
}

// WithObserver sets a per-request observer (e.g. Metrics).
func WithObserver(o Observer) RouterOption {
	return func(r *Router) {
		r.observer = o
	}
}

// WithTracer sets a tracing hook for the router.
func WithTracer(s SpanStarter) RouterOption {
	return func(r *Router) {
		r.tracer = s
	}
}

// NewRouter creates a Router over table.
func NewRouter(table *Table, opts ...RouterOption) *Router {
	r := &Router{
		table:   table,
		title:   "API",
		version: "0.0.0",
		maxBody: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.source == nil {
		static := NewAppContext(Config{Title: r.title, Version: r.version}, r.logger, 0)
		r.source = func() *AppContext { return static }
	}
	return r
}

// Use adds middleware to the router. Middleware is applied in the order
// added and must be registered before the router serves requests.
func (r *Router) Use(mw ...Middleware) {
	r.middleware = append(r.middleware, mw...)
}

// Table returns the route table.
func (r *Router) Table() *Table { return r.table }

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	handler := http.Handler(http.HandlerFunc(r.dispatch))
	for i := len(r.middleware) - 1; i >= 0; i-- {
		handler = r.middleware[i](handler)
	}
	handler.ServeHTTP(w, req)
}

// dispatch runs match → validate → handle → translate and writes exactly
// one response.
func (r *Router) dispatch(w http.ResponseWriter, hr *http.Request) {
	start := time.Now()
	pattern := ""
	status := 0
	defer func() {
		if r.observer != nil {
			r.observer.Observe(hr.Method, pattern, status, time.Since(start))
		}
	}()

	logger := r.logger
	if id := GetRequestID(hr); id != "" {
		logger = logger.With("request_id", id)
	}

	if hr.Method == "" || hr.URL == nil || !strings.HasPrefix(hr.URL.Path, "/") {
		status = writeError(w, BadRequest("malformed request line"), logger)
		return
	}

	cr, captures, matched := r.table.lookup(hr.Method, hr.URL.EscapedPath())

	app := r.source()
	if app == nil && !(matched && cr.Exempt) {
		status = writeError(w, Unready(), logger)
		return
	}
	if app != nil && app.Logger != nil {
		logger = app.Logger
		if id := GetRequestID(hr); id != "" {
			logger = logger.With("request_id", id)
		}
	}

	if !matched {
		status = writeError(w, NotFoundf("no route for %s %s", hr.Method, hr.URL.Path), logger)
		return
	}
	pattern = cr.Pattern
	noteRoute(hr.Context(), pattern, app)

	ctx := hr.Context()
	if app != nil {
		ctx = WithAppContext(ctx, app)
	}
	if r.tracer != nil {
		var end func()
		ctx, end = r.tracer.StartSpan(ctx, hr.Method+" "+cr.Pattern, map[string]string{
			"http.method": hr.Method,
			"http.route":  cr.Pattern,
		})
		defer end()
	}
	hr = hr.WithContext(ctx)

	req, err := r.bind(w, hr, cr, captures)
	if err != nil {
		status = writeError(w, err, logger)
		return
	}
	req.app = app
	req.logger = logger

	resp, err := invoke(ctx, cr.Handler, req)
	if err != nil {
		status = writeError(w, err, logger)
		return
	}
	status = writeResponse(w, resp, logger)
}

// bind validates params, query and body in that order. The first failure
// short-circuits the rest.
func (r *Router) bind(w http.ResponseWriter, hr *http.Request, cr *compiledRoute, captures map[string]string) (*Request, error) {
	params, err := validateStrings(cr.Schema.Params, captures, LocationParams)
	if err != nil {
		return nil, err
	}

	rawQuery, err := flattenQuery(hr.URL.RawQuery)
	if err != nil {
		return nil, BadRequest("malformed query string")
	}
	query, err := validateStrings(cr.Schema.Query, rawQuery, LocationQuery)
	if err != nil {
		return nil, err
	}

	var body any
	if cr.Schema.Body != nil {
		raw, err := readBody(w, hr, r.maxBody)
		if err != nil {
			return nil, err
		}
		body, err = validateBody(cr.Schema.Body, cr.Schema.BodyContentType, hr.Header.Get("Content-Type"), raw)
		if err != nil {
			return nil, err
		}
	}

	return &Request{
		http:       hr,
		route:      &cr.Route,
		router:     r,
		pathValues: captures,
		params:     params,
		query:      query,
		body:       body,
	}, nil
}

// invoke calls h exactly once and turns a panic into an internal error.
func invoke(ctx context.Context, h Handler, req *Request) (resp *Response, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			req.logger.Error("panic recovered",
				"panic", rec,
				"stack", string(debug.Stack()),
				"method", req.http.Method,
				"path", req.http.URL.Path,
			)
			resp = nil
			err = Internal(fmt.Errorf("panic: %v", rec))
		}
	}()
	return h(ctx, req)
}
