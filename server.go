package routekit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
)

// State is the lifecycle state of a Server.
type State int32

// Lifecycle states. Transitions run Stopped → Starting → Running →
// Stopping → Stopped and are driven only by Start, Stop and Restart.
const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// ErrAlreadyStarted is returned by Start when the server is not stopped.
var ErrAlreadyStarted = errors.New("server already started")

// Built-in route paths.
const (
	HealthPath   = "/health"
	SpecPath     = "/openapi.json"
	SpecYAMLPath = "/openapi.yaml"
)

type serverOptions struct {
	builder    Builder
	logger     *slog.Logger
	routerOpts []RouterOption
	middleware []Middleware
	stateHooks []func(State)
	noHealth   bool
	noSpec     bool
}

// ServerOption configures a Server.
type ServerOption func(*serverOptions)

// WithBuilder sets the function that populates each epoch's AppContext.
func WithBuilder(b Builder) ServerOption {
	return func(o *serverOptions) {
		o.builder = b
	}
}

// WithServerLogger sets the logger for lifecycle events and the default
// AppContext logger.
func WithServerLogger(l *slog.Logger) ServerOption {
	return func(o *serverOptions) {
		o.logger = l
	}
}

// WithRouterOptions passes options through to the server's Router.
func WithRouterOptions(opts ...RouterOption) ServerOption {
	return func(o *serverOptions) {
		o.routerOpts = append(o.routerOpts, opts...)
	}
}

// WithMiddleware adds router middleware.
func WithMiddleware(mw ...Middleware) ServerOption {
	return func(o *serverOptions) {
		o.middleware = append(o.middleware, mw...)
	}
}

// WithStateHook registers fn to be called on every state transition.
func WithStateHook(fn func(State)) ServerOption {
	return func(o *serverOptions) {
		o.stateHooks = append(o.stateHooks, fn)
	}
}

// WithoutHealth omits the built-in health route.
func WithoutHealth() ServerOption {
	return func(o *serverOptions) {
		o.noHealth = true
	}
}

// WithoutSpec omits the built-in OpenAPI routes.
func WithoutSpec() ServerOption {
	return func(o *serverOptions) {
		o.noSpec = true
	}
}

// Server owns the listener and the per-epoch AppContext of a route table.
// It is reusable: Start after Stop begins a new epoch on the same port.
type Server struct {
	cfg        Config
	router     *Router
	builder    Builder
	logger     *slog.Logger
	stateHooks []func(State)

	state atomic.Int32
	app   atomic.Pointer[AppContext]

	mu        sync.Mutex // serializes transitions; guards the fields below
	epoch     uint64
	port      int
	addr      string
	http      *http.Server
	conns     *connTracker
	serveDone chan struct{}
}

// NewServer builds the route table once and prepares a stopped server. The
// health and OpenAPI routes are appended after routes unless disabled.
func NewServer(cfg Config, routes []Route, opts ...ServerOption) (*Server, error) {
	var o serverOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	s := &Server{
		cfg:        cfg.withDefaults(),
		builder:    o.builder,
		logger:     o.logger,
		stateHooks: o.stateHooks,
		port:       cfg.Port,
	}

	all := make([]Route, 0, len(routes)+3)
	all = append(all, routes...)
	if !o.noHealth {
		all = append(all, HealthRoute(HealthPath, s.State))
	}
	if !o.noSpec {
		all = append(all, SpecRoute(SpecPath), SpecYAMLRoute(SpecYAMLPath))
	}

	table, err := NewTable(all...)
	if err != nil {
		return nil, err
	}

	routerOpts := []RouterOption{
		WithTitle(s.cfg.Title),
		WithVersion(s.cfg.Version),
		WithLogger(s.logger),
		WithMaxBodyBytes(s.cfg.MaxBodyBytes),
	}
	routerOpts = append(routerOpts, o.routerOpts...)
	routerOpts = append(routerOpts, WithContextSource(s.readyContext))

	s.router = NewRouter(table, routerOpts...)
	s.router.Use(o.middleware...)

	return s, nil
}

// State returns the current lifecycle state.
func (s *Server) State() State { return State(s.state.Load()) }

// Context returns the live AppContext, or nil unless the server is running.
func (s *Server) Context() *AppContext { return s.readyContext() }

// Router returns the server's router.
func (s *Server) Router() *Router { return s.router }

// Port returns the port resolved by the first successful Start, or the
// configured port before that.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// Addr returns the host:port clients should use.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addr != "" {
		return s.addr
	}
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.port))
}

// URL returns the base URL of the server.
func (s *Server) URL() string { return "http://" + s.Addr() }

// Reconfigure replaces the configuration used from the next Start or
// Restart on: drain and header timeouts and the AppContext's Config. Host
// and port are kept once the server has bound. Router settings fixed by
// NewServer are unaffected.
func (s *Server) Reconfigure(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg = cfg.withDefaults()
	if s.addr != "" {
		cfg.Host = s.cfg.Host
		cfg.Port = s.port
	} else {
		s.port = cfg.Port
	}
	s.cfg = cfg
}

// Epoch returns the number of successful or attempted starts.
func (s *Server) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

func (s *Server) readyContext() *AppContext {
	if s.State() != StateRunning {
		return nil
	}
	return s.app.Load()
}

func (s *Server) setState(st State) {
	s.state.Store(int32(st))
	for _, fn := range s.stateHooks {
		fn(st)
	}
}

// Start builds a fresh AppContext, binds the listener and begins serving.
// It returns once the socket is listening. On failure the partial
// AppContext is closed and the server is left stopped.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.start(ctx)
}

// Stop stops accepting connections, drains in-flight requests for at most
// Config.DrainTimeout, destroys any connection still open, and closes the
// AppContext. It is a no-op when the server is already stopped.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop(ctx)
}

// Restart stops and starts the server as one transition. The port
// resolved by the first Start is reused so clients keep the same address.
func (s *Server) Restart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stopErr := s.stop(ctx)
	if stopErr != nil {
		s.logger.Warn("restart: stop reported errors", "err", stopErr)
	}
	if err := s.start(ctx); err != nil {
		return errors.Join(stopErr, err)
	}
	return stopErr
}

func (s *Server) start(ctx context.Context) error {
	if st := s.State(); st != StateStopped {
		return fmt.Errorf("%w: state is %s", ErrAlreadyStarted, st)
	}
	s.setState(StateStarting)

	s.epoch++
	app := NewAppContext(s.cfg, s.logger, s.epoch)

	fail := func(err error) error {
		if cerr := app.Close(ctx); cerr != nil {
			s.logger.Warn("closing partial app context", "err", cerr)
		}
		s.setState(StateStopped)
		return err
	}

	if s.builder != nil {
		if err := s.builder(ctx, app); err != nil {
			return fail(fmt.Errorf("build app context: %w", err))
		}
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.port))
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fail(fmt.Errorf("listen on %s: %w", addr, err))
	}

	if tcp, ok := ln.Addr().(*net.TCPAddr); ok {
		s.port = tcp.Port
	}
	s.addr = ln.Addr().String()

	conns := newConnTracker()
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		ConnState:         conns.track,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("serve failed", "err", err)
		}
	}()

	s.http = srv
	s.conns = conns
	s.serveDone = done
	s.app.Store(app)
	s.setState(StateRunning)

	s.logger.Info("server listening", "addr", s.addr, "epoch", s.epoch)
	return nil
}

func (s *Server) stop(ctx context.Context) error {
	if s.State() == StateStopped {
		return nil
	}
	s.setState(StateStopping)

	drainCtx, cancel := context.WithTimeout(ctx, s.cfg.DrainTimeout)
	defer cancel()

	if err := s.http.Shutdown(drainCtx); err != nil {
		n := s.conns.destroy()
		s.logger.Warn("drain timeout reached, closing connections", "open", n, "err", err)
		//nolint:errcheck,gosec // listener already closed by Shutdown
		s.http.Close()
	}
	<-s.serveDone
	s.conns.destroy()

	var err error
	if app := s.app.Swap(nil); app != nil {
		if cerr := app.Close(ctx); cerr != nil {
			err = fmt.Errorf("close app context: %w", cerr)
		}
	}

	s.http = nil
	s.conns = nil
	s.serveDone = nil
	s.setState(StateStopped)

	s.logger.Info("server stopped", "addr", s.addr, "epoch", s.epoch)
	return err
}
