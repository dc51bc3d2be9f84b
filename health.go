package routekit

import (
	"context"
	"net/http"
)

// Health is the body of the health route.
type Health struct {
	Status string `json:"status"`
	Alive  bool   `json:"alive"`
	State  string `json:"state"`
}

// StateFunc reports the raw lifecycle state.
type StateFunc func() State

// HealthRoute declares an exempt GET route reporting liveness from the raw
// lifecycle state. It answers while the server is starting, draining or
// restarting, without touching the AppContext.
func HealthRoute(pattern string, state StateFunc) Route {
	return Get(pattern, func(_ context.Context, _ *Request) (*Response, error) {
		st := state()
		return OK(Health{Status: "ok", Alive: st == StateRunning, State: st.String()}), nil
	},
		WithExempt(),
		WithSummary("Health check"),
		WithDescription("Reports whether the server is running."),
		WithTags("meta"),
		WithResponse(http.StatusOK, "Liveness", Object(
			Field("status", String().Enum("ok")),
			Field("alive", Boolean()),
			Field("state", String().Enum("stopped", "starting", "running", "stopping")),
		)),
	)
}
