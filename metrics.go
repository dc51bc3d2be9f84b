package routekit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records per-route request counts and latencies plus the server
// lifecycle state. It implements Observer; pass SetState to WithStateHook.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlight        prometheus.Gauge
	ServerState     *prometheus.GaugeVec
	Starts          prometheus.Counter
}

// NewMetrics creates the collectors under namespace and registers them.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of dispatched HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		InFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests currently being served",
			},
		),
		ServerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "server_state",
				Help:      "1 for the current lifecycle state, 0 otherwise",
			},
			[]string{"state"},
		),
		Starts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "server_starts_total",
				Help:      "Number of times the server entered the running state",
			},
		),
	}

	for _, c := range []prometheus.Collector{m.RequestsTotal, m.RequestDuration, m.InFlight, m.ServerState, m.Starts} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	m.SetState(StateStopped)
	return m, nil
}

// Observe implements Observer. Unmatched requests are recorded under the
// route label "unmatched" to bound label cardinality.
func (m *Metrics) Observe(method, pattern string, status int, elapsed time.Duration) {
	if pattern == "" {
		pattern = "unmatched"
	}
	m.RequestsTotal.WithLabelValues(method, pattern, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, pattern).Observe(elapsed.Seconds())
}

// Middleware tracks the number of requests in flight.
func (m *Metrics) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.InFlight.Inc()
			defer m.InFlight.Dec()
			next.ServeHTTP(w, r)
		})
	}
}

// SetState marks st as the current lifecycle state.
func (m *Metrics) SetState(st State) {
	for _, s := range []State{StateStopped, StateStarting, StateRunning, StateStopping} {
		v := 0.0
		if s == st {
			v = 1
		}
		m.ServerState.WithLabelValues(s.String()).Set(v)
	}
	if st == StateRunning {
		m.Starts.Inc()
	}
}
