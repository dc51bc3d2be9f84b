package routekit_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/routekit"
)

func TestLogger(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		target string
		route  string
		status float64
		level  string
	}{
		"success":      {target: "/ok", route: "/ok", status: 200, level: "INFO"},
		"client error": {target: "/missing", route: "unmatched", status: 404, level: "WARN"},
		"server error": {target: "/fail", route: "/fail", status: 500, level: "ERROR"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))
			app := routekit.NewAppContext(routekit.DefaultConfig(), quietLogger(), 4)

			r := newRouter(t, []routekit.Route{
				routekit.Get("/ok", func(_ context.Context, _ *routekit.Request) (*routekit.Response, error) {
					return routekit.OK("hello"), nil
				}),
				routekit.Get("/fail", func(_ context.Context, _ *routekit.Request) (*routekit.Response, error) {
					return nil, routekit.Internal(assert.AnError)
				}),
			}, routekit.WithContextSource(func() *routekit.AppContext { return app }))
			r.Use(routekit.RequestID(routekit.RequestIDConfig{Generator: func() string { return "req-1" }}), routekit.Logger(logger))

			serve(r, http.MethodGet, tc.target, "", "")

			var line map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
			assert.Equal(t, "request", line["msg"])
			assert.Equal(t, tc.level, line["level"])
			assert.Equal(t, "GET", line["method"])
			assert.Equal(t, tc.target, line["path"])
			assert.Equal(t, tc.route, line["route"])
			assert.Equal(t, tc.status, line["status"])
			assert.Equal(t, "req-1", line["request_id"])
			assert.Greater(t, line["size"], float64(0))
			assert.Contains(t, line, "latency")
			if tc.route == "unmatched" {
				assert.NotContains(t, line, "epoch")
			} else {
				assert.Equal(t, float64(4), line["epoch"])
			}
		})
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Clone(b.buf.Bytes())
}

func TestLogger_restartedEpoch(t *testing.T) {
	t.Parallel()

	var buf lockedBuffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	srv := newServer(t, testConfig(), nil, routekit.WithMiddleware(routekit.Logger(logger)))
	require.NoError(t, srv.Start(context.Background()))
	require.NoError(t, srv.Restart(context.Background()))

	resp, err := httpClient().Get(srv.URL() + routekit.HealthPath)
	require.NoError(t, err)
	resp.Body.Close()

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, routekit.HealthPath, line["route"])
	assert.Equal(t, float64(2), line["epoch"])
}
