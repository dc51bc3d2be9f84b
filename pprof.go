package routekit

import (
	"net/http"
	"net/http/pprof"
	"strings"
)

// DefaultPprofPrefix is where Pprof serves profiles when no prefix is given.
const DefaultPprofPrefix = "/debug/pprof"

var pprofProfiles = []string{"goroutine", "heap", "allocs", "block", "mutex", "threadcreate"}

// Pprof returns middleware serving runtime profiles under prefix. Profile
// requests bypass the route table, readiness gating and the OpenAPI
// document.
func Pprof(prefix string) Middleware {
	if prefix == "" {
		prefix = DefaultPprofPrefix
	}
	prefix = strings.TrimSuffix(prefix, "/")

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+prefix+"/{$}", pprof.Index)
	mux.HandleFunc("GET "+prefix+"/cmdline", pprof.Cmdline)
	mux.HandleFunc("GET "+prefix+"/profile", pprof.Profile)
	mux.HandleFunc("GET "+prefix+"/symbol", pprof.Symbol)
	mux.HandleFunc("GET "+prefix+"/trace", pprof.Trace)
	for _, name := range pprofProfiles {
		mux.Handle("GET "+prefix+"/"+name, pprof.Handler(name))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, prefix+"/") {
				mux.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
