package cli

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"github.com/bjaus/routekit"
	"github.com/bjaus/routekit/internal/config"
	"github.com/bjaus/routekit/internal/todo"
)

// Service is the wired todos server.
type Service struct {
	Server   *routekit.Server
	Repo     *todo.MemoryRepository
	Registry *prometheus.Registry
	Metrics  *routekit.Metrics
}

// NewService builds the server described by cfg. The repository outlives
// restarts; every epoch registers the same one.
func NewService(cfg config.File, logger *slog.Logger) (*Service, error) {
	svc := &Service{
		Repo:     todo.NewMemoryRepository(),
		Registry: prometheus.NewRegistry(),
	}

	var (
		routerOpts = []routekit.RouterOption{}
		middleware = []routekit.Middleware{
			routekit.Recovery(logger),
			routekit.RequestID(),
			routekit.Logger(logger),
		}
		serverOpts = []routekit.ServerOption{
			routekit.WithServerLogger(logger),
			routekit.WithBuilder(todo.Builder(svc.Repo)),
		}
	)

	if cfg.Metrics.Enabled {
		m, err := routekit.NewMetrics(svc.Registry, config.AppName)
		if err != nil {
			return nil, err
		}
		svc.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		svc.Metrics = m

		routerOpts = append(routerOpts, routekit.WithObserver(m))
		middleware = append(middleware,
			m.Middleware(),
			routekit.Mount(cfg.Metrics.Path, promhttp.HandlerFor(svc.Registry, promhttp.HandlerOpts{})),
		)
		serverOpts = append(serverOpts, routekit.WithStateHook(m.SetState))
	}

	if cfg.Debug.Pprof {
		middleware = append(middleware, routekit.Pprof(routekit.DefaultPprofPrefix))
	}

	if cfg.Tracing.Enabled {
		routerOpts = append(routerOpts, routekit.WithTracer(routekit.NewOTelTracer(otel.GetTracerProvider())))
	}

	if cfg.RateLimit.Rate > 0 {
		middleware = append(middleware, routekit.RateLimit(routekit.RateLimitConfig{
			Rate:  cfg.RateLimit.Rate,
			Burst: cfg.RateLimit.Burst,
			Skip: func(r *http.Request) bool {
				return r.URL.Path == routekit.HealthPath
			},
		}))
	}

	serverOpts = append(serverOpts,
		routekit.WithRouterOptions(routerOpts...),
		routekit.WithMiddleware(middleware...),
	)

	srv, err := routekit.NewServer(cfg.Server, todo.Routes(), serverOpts...)
	if err != nil {
		return nil, err
	}
	svc.Server = srv
	return svc, nil
}
