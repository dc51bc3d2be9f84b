package routekit_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/routekit"
)

func testConfig() routekit.Config {
	return routekit.Config{Host: "127.0.0.1", Port: 0, DrainTimeout: time.Second}
}

func newServer(t *testing.T, cfg routekit.Config, routes []routekit.Route, opts ...routekit.ServerOption) *routekit.Server {
	t.Helper()
	opts = append([]routekit.ServerOption{routekit.WithServerLogger(quietLogger())}, opts...)
	srv, err := routekit.NewServer(cfg, routes, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })
	return srv
}

func httpClient() *http.Client {
	return &http.Client{
		Timeout:   2 * time.Second,
		Transport: &http.Transport{DisableKeepAlives: true},
	}
}

func getHealth(baseURL string) (routekit.Health, error) {
	var h routekit.Health
	resp, err := httpClient().Get(baseURL + routekit.HealthPath)
	if err != nil {
		return h, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return h, errors.New(resp.Status)
	}
	err = json.NewDecoder(resp.Body).Decode(&h)
	return h, err
}

func TestServer_startStop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	srv := newServer(t, testConfig(), []routekit.Route{routekit.Get("/todos", noop)})

	assert.Equal(t, routekit.StateStopped, srv.State())
	assert.Nil(t, srv.Context())
	assert.Equal(t, 4, srv.Router().Table().Len(), "health and spec routes are appended")

	require.NoError(t, srv.Start(ctx))
	assert.Equal(t, routekit.StateRunning, srv.State())
	assert.NotZero(t, srv.Port())
	assert.Equal(t, "127.0.0.1:"+strconv.Itoa(srv.Port()), srv.Addr())
	assert.Equal(t, "http://"+srv.Addr(), srv.URL())

	app := srv.Context()
	require.NotNil(t, app)
	assert.Equal(t, uint64(1), app.Epoch)
	assert.Equal(t, "API", app.Config.Title)

	resp, err := httpClient().Get(srv.URL() + "/todos")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	h, err := getHealth(srv.URL())
	require.NoError(t, err)
	assert.Equal(t, routekit.Health{Status: "ok", Alive: true, State: "running"}, h)

	err = srv.Start(ctx)
	require.ErrorIs(t, err, routekit.ErrAlreadyStarted)

	require.NoError(t, srv.Stop(ctx))
	assert.Equal(t, routekit.StateStopped, srv.State())
	assert.Nil(t, srv.Context())
	require.NoError(t, srv.Stop(ctx), "stop is idempotent")

	_, err = httpClient().Get(srv.URL() + "/todos")
	require.Error(t, err, "listener is closed")
}

func TestServer_concurrentStop(t *testing.T) {
	t.Parallel()

	srv := newServer(t, testConfig(), nil)
	require.NoError(t, srv.Start(context.Background()))

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = srv.Stop(context.Background())
		}()
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, routekit.StateStopped, srv.State())
}

func TestServer_concurrentStart(t *testing.T) {
	t.Parallel()

	var builds atomic.Int32
	srv := newServer(t, testConfig(), nil, routekit.WithBuilder(func(context.Context, *routekit.AppContext) error {
		builds.Add(1)
		return nil
	}))

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = srv.Start(context.Background())
		}()
	}
	wg.Wait()

	started := 0
	for _, err := range errs {
		if err == nil {
			started++
			continue
		}
		assert.ErrorIs(t, err, routekit.ErrAlreadyStarted)
	}
	assert.Equal(t, 1, started)
	assert.Equal(t, int32(1), builds.Load())
	assert.Equal(t, uint64(1), srv.Epoch())
	assert.Equal(t, routekit.StateRunning, srv.State())
}

func TestServer_restartKeepsPort(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var closed []uint64
	var mu sync.Mutex
	srv := newServer(t, testConfig(), nil, routekit.WithBuilder(func(_ context.Context, app *routekit.AppContext) error {
		app.OnClose(func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			closed = append(closed, app.Epoch)
			return nil
		})
		return nil
	}))

	require.NoError(t, srv.Start(ctx))
	port := srv.Port()
	first := srv.Context()

	require.NoError(t, srv.Restart(ctx))
	assert.Equal(t, routekit.StateRunning, srv.State())
	assert.Equal(t, port, srv.Port())
	assert.Equal(t, uint64(2), srv.Epoch())

	second := srv.Context()
	require.NotNil(t, second)
	assert.NotSame(t, first, second)
	assert.Equal(t, uint64(2), second.Epoch)

	mu.Lock()
	assert.Equal(t, []uint64{1}, closed, "previous epoch is closed before the next starts")
	mu.Unlock()

	require.NoError(t, srv.Stop(ctx))
	require.NoError(t, srv.Start(ctx))
	assert.Equal(t, port, srv.Port(), "start after stop reuses the port too")
}

func TestServer_restartFromStopped(t *testing.T) {
	t.Parallel()

	srv := newServer(t, testConfig(), nil)
	require.NoError(t, srv.Restart(context.Background()))
	assert.Equal(t, routekit.StateRunning, srv.State())
}

func TestServer_healthDuringRestart(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	srv := newServer(t, testConfig(), nil)
	require.NoError(t, srv.Start(ctx))
	base := srv.URL()

	for range 3 {
		done := make(chan error, 1)
		go func() { done <- srv.Restart(ctx) }()

		assert.Eventually(t, func() bool {
			h, err := getHealth(base)
			return err == nil && h.Alive
		}, 5*time.Second, 10*time.Millisecond)

		require.NoError(t, <-done)
		assert.Equal(t, base, srv.URL())
	}

	h, err := getHealth(base)
	require.NoError(t, err)
	assert.True(t, h.Alive)
}

func TestServer_builderFailure(t *testing.T) {
	t.Parallel()

	closed := false
	srv := newServer(t, testConfig(), nil, routekit.WithBuilder(func(_ context.Context, app *routekit.AppContext) error {
		app.OnClose(func(context.Context) error {
			closed = true
			return nil
		})
		return errors.New("database unreachable")
	}))

	err := srv.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "build app context: database unreachable")
	assert.True(t, closed, "partial app context is released")
	assert.Equal(t, routekit.StateStopped, srv.State())
	assert.Nil(t, srv.Context())
}

func TestServer_listenFailure(t *testing.T) {
	t.Parallel()

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	cfg := testConfig()
	cfg.Port = ln.Addr().(*net.TCPAddr).Port
	srv := newServer(t, cfg, nil)

	err = srv.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen on")
	assert.Equal(t, routekit.StateStopped, srv.State())
}

func TestServer_closeError(t *testing.T) {
	t.Parallel()

	srv := newServer(t, testConfig(), nil, routekit.WithBuilder(func(_ context.Context, app *routekit.AppContext) error {
		app.OnClose(func(context.Context) error { return errors.New("flush failed") })
		return nil
	}))
	require.NoError(t, srv.Start(context.Background()))

	err := srv.Stop(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close app context: flush failed")
	assert.Equal(t, routekit.StateStopped, srv.State())
}

func TestServer_gracefulDrain(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{})
	srv := newServer(t, testConfig(), []routekit.Route{
		routekit.Get("/slow", func(_ context.Context, _ *routekit.Request) (*routekit.Response, error) {
			close(entered)
			time.Sleep(100 * time.Millisecond)
			return routekit.OK("done"), nil
		}),
	})
	require.NoError(t, srv.Start(context.Background()))

	type result struct {
		status int
		err    error
	}
	results := make(chan result, 1)
	go func() {
		resp, err := httpClient().Get(srv.URL() + "/slow")
		if err != nil {
			results <- result{err: err}
			return
		}
		resp.Body.Close()
		results <- result{status: resp.StatusCode}
	}()

	<-entered
	require.NoError(t, srv.Stop(context.Background()))

	res := <-results
	require.NoError(t, res.err)
	assert.Equal(t, http.StatusOK, res.status, "in-flight request completes")
}

func TestServer_drainTimeout(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{})
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	cfg := testConfig()
	cfg.DrainTimeout = 100 * time.Millisecond
	srv := newServer(t, cfg, []routekit.Route{
		routekit.Get("/stuck", func(ctx context.Context, _ *routekit.Request) (*routekit.Response, error) {
			close(entered)
			select {
			case <-release:
			case <-ctx.Done():
			}
			return routekit.NoContent(), nil
		}),
	})
	require.NoError(t, srv.Start(context.Background()))

	errc := make(chan error, 1)
	go func() {
		resp, err := httpClient().Get(srv.URL() + "/stuck")
		if err == nil {
			resp.Body.Close()
		}
		errc <- err
	}()

	<-entered
	start := time.Now()
	require.NoError(t, srv.Stop(context.Background()))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, cfg.DrainTimeout)
	assert.Less(t, elapsed, 2*time.Second)
	assert.Error(t, <-errc, "connection is destroyed after the drain timeout")
	assert.Equal(t, routekit.StateStopped, srv.State())
}

func TestServer_stateHooks(t *testing.T) {
	t.Parallel()

	var states []routekit.State
	srv := newServer(t, testConfig(), nil, routekit.WithStateHook(func(st routekit.State) {
		states = append(states, st)
	}))

	require.NoError(t, srv.Start(context.Background()))
	require.NoError(t, srv.Stop(context.Background()))

	assert.Equal(t, []routekit.State{
		routekit.StateStarting,
		routekit.StateRunning,
		routekit.StateStopping,
		routekit.StateStopped,
	}, states)
}

func TestServer_reconfigure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	srv := newServer(t, testConfig(), nil)
	require.NoError(t, srv.Start(ctx))
	port := srv.Port()

	srv.Reconfigure(routekit.Config{Host: "0.0.0.0", Port: port + 1, Title: "Renamed"})
	assert.Equal(t, "API", srv.Context().Config.Title, "applies from the next start")

	require.NoError(t, srv.Restart(ctx))
	assert.Equal(t, port, srv.Port())
	assert.Equal(t, "127.0.0.1:"+strconv.Itoa(port), srv.Addr())

	app := srv.Context()
	require.NotNil(t, app)
	assert.Equal(t, "Renamed", app.Config.Title)
	assert.Equal(t, routekit.DefaultDrainTimeout, app.Config.DrainTimeout)
}

func TestServer_options(t *testing.T) {
	t.Parallel()

	routes := []routekit.Route{routekit.Get("/todos", noop)}

	srv := newServer(t, testConfig(), routes, routekit.WithoutHealth(), routekit.WithoutSpec())
	assert.Equal(t, 1, srv.Router().Table().Len())

	_, err := routekit.NewServer(testConfig(), []routekit.Route{routekit.Get("bad", noop)})
	require.ErrorIs(t, err, routekit.ErrInvalidRoute)
}

func TestServer_middleware(t *testing.T) {
	t.Parallel()

	srv := newServer(t, testConfig(), nil, routekit.WithMiddleware(routekit.RequestID(
		routekit.RequestIDConfig{Generator: func() string { return "fixed" }},
	)))
	require.NoError(t, srv.Start(context.Background()))

	resp, err := httpClient().Get(srv.URL() + routekit.HealthPath)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "fixed", resp.Header.Get(routekit.RequestIDHeader))
}

func TestState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "stopped", routekit.StateStopped.String())
	assert.Equal(t, "starting", routekit.StateStarting.String())
	assert.Equal(t, "running", routekit.StateRunning.String())
	assert.Equal(t, "stopping", routekit.StateStopping.String())
	assert.Equal(t, "unknown", routekit.State(42).String())
}

func TestConnTracker(t *testing.T) {
	t.Parallel()

	tracker := routekit.NewConnTracker()
	a, aPeer := net.Pipe()
	b, bPeer := net.Pipe()
	c, cPeer := net.Pipe()
	t.Cleanup(func() {
		for _, conn := range []net.Conn{a, aPeer, b, bPeer, c, cPeer} {
			conn.Close()
		}
	})

	tracker.Track(a, http.StateNew)
	tracker.Track(b, http.StateNew)
	tracker.Track(c, http.StateNew)
	tracker.Track(a, http.StateActive)
	assert.Equal(t, 3, tracker.Len())

	tracker.Track(b, http.StateClosed)
	tracker.Track(c, http.StateHijacked)
	assert.Equal(t, 1, tracker.Len())

	assert.Equal(t, 1, tracker.Destroy())
	assert.Equal(t, 0, tracker.Len())

	_, err := a.Write([]byte("x"))
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}
