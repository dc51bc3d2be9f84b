package routekit

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// Middleware is the standard net/http middleware signature.
type Middleware func(next http.Handler) http.Handler

// Recovery returns middleware that recovers from panics raised outside a
// handler, such as in other middleware, and answers with the internal
// failure envelope. Handler panics are already recovered by the router.
func Recovery(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						"panic", rec,
						"stack", string(debug.Stack()),
						"method", r.Method,
						"path", r.URL.Path,
					)
					writeError(w, Internal(fmt.Errorf("panic: %v", rec)), nil)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Mount serves h for requests whose path is exactly path and passes every
// other request on. Mounted handlers bypass the route table, validation
// and the OpenAPI document.
func Mount(path string, h http.Handler) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == path {
				h.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
