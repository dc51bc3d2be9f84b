package routekit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
)

// AppContext is the per-epoch bundle of configuration and collaborators
// available to handlers. A Server builds a fresh one on every Start and
// closes it on Stop; exactly one is live per running listener.
//
// Collaborators are stored by type. They are shared by concurrent requests
// and must serialize their own writes.
type AppContext struct {
	Config Config
	Logger *slog.Logger
	Epoch  uint64

	mu      sync.RWMutex
	values  map[reflect.Type]any
	closers []func(context.Context) error
	closed  bool
}

// Builder populates a fresh AppContext during Start. Returning an error
// aborts the start; closers registered so far still run.
type Builder func(ctx context.Context, app *AppContext) error

// NewAppContext creates an empty AppContext. Servers call it once per epoch;
// tests may call it directly.
func NewAppContext(cfg Config, logger *slog.Logger, epoch uint64) *AppContext {
	if logger == nil {
		logger = slog.Default()
	}
	return &AppContext{
		Config: cfg,
		Logger: logger,
		Epoch:  epoch,
		values: make(map[reflect.Type]any),
	}
}

// Provide registers v as the collaborator of type T, replacing any previous one.
func Provide[T any](app *AppContext, v T) {
	app.mu.Lock()
	defer app.mu.Unlock()
	app.values[reflect.TypeFor[T]()] = v
}

// Lookup returns the collaborator of type T.
func Lookup[T any](app *AppContext) (T, bool) {
	var zero T
	if app == nil {
		return zero, false
	}
	app.mu.RLock()
	defer app.mu.RUnlock()
	v, ok := app.values[reflect.TypeFor[T]()].(T)
	if !ok {
		return zero, false
	}
	return v, true
}

// MustLookup returns the collaborator of type T and panics if none was
// provided. Inside a handler the panic becomes a 500 response.
func MustLookup[T any](app *AppContext) T {
	v, ok := Lookup[T](app)
	if !ok {
		panic(fmt.Sprintf("routekit: no %s provided in AppContext", reflect.TypeFor[T]()))
	}
	return v
}

// OnClose registers fn to run when the epoch ends. Closers run in reverse
// registration order.
func (a *AppContext) OnClose(fn func(ctx context.Context) error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closers = append(a.closers, fn)
}

// Close runs the registered closers once and joins their errors.
func (a *AppContext) Close(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	closers := a.closers
	a.closers = nil
	a.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type appContextKey struct{}

// WithAppContext stores app in ctx.
func WithAppContext(ctx context.Context, app *AppContext) context.Context {
	return context.WithValue(ctx, appContextKey{}, app)
}

// AppFromContext returns the AppContext of the request being served.
func AppFromContext(ctx context.Context) (*AppContext, bool) {
	app, ok := ctx.Value(appContextKey{}).(*AppContext)
	return app, ok && app != nil
}
