package routekit

import (
	"net"
	"net/http"
	"sync"
)

// connTracker records every open connection of an http.Server through its
// ConnState hook so Stop can destroy whatever survives the drain.
type connTracker struct {
	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

func newConnTracker() *connTracker {
	return &connTracker{conns: make(map[net.Conn]struct{})}
}

func (t *connTracker) track(c net.Conn, state http.ConnState) {
	t.mu.Lock()
	defer t.mu.Unlock()

	//exhaustive:ignore
	switch state {
	case http.StateNew:
		t.conns[c] = struct{}{}
	case http.StateClosed, http.StateHijacked:
		delete(t.conns, c)
	}
}

// len returns the number of tracked connections.
func (t *connTracker) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conns)
}

// destroy closes every tracked connection and returns how many it closed.
func (t *connTracker) destroy() int {
	t.mu.Lock()
	conns := make([]net.Conn, 0, len(t.conns))
	for c := range t.conns {
		conns = append(conns, c)
	}
	t.conns = make(map[net.Conn]struct{})
	t.mu.Unlock()

	for _, c := range conns {
		//nolint:errcheck,gosec // already closed connections are fine
		c.Close()
	}
	return len(conns)
}
