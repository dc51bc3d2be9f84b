package routekit

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// accessRecord is filled in while a request travels through the router and
// read back by the Logger middleware once the response is written.
type accessRecord struct {
	status int
	bytes  int
	route  string
	epoch  uint64
	served bool
}

type accessRecordKey struct{}

// noteRoute records the matched pattern and the serving epoch for the
// access log. It is a no-op when Logger is not installed.
func noteRoute(ctx context.Context, pattern string, app *AppContext) {
	rec, ok := ctx.Value(accessRecordKey{}).(*accessRecord)
	if !ok {
		return
	}
	rec.route = pattern
	if app != nil {
		rec.epoch = app.Epoch
		rec.served = true
	}
}

// statusWriter counts the status and body bytes written downstream.
type statusWriter struct {
	http.ResponseWriter
	rec *accessRecord
}

func (w *statusWriter) WriteHeader(code int) {
	w.rec.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.rec.bytes += n
	return n, err
}

// Unwrap supports http.ResponseController.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Logger returns middleware writing one access line per request. The line
// carries the matched route pattern and the epoch of the AppContext that
// served it, so requests can be told apart across restarts. 5xx responses
// log at error level and 4xx at warn.
func Logger(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &accessRecord{status: http.StatusOK}
			r = r.WithContext(context.WithValue(r.Context(), accessRecordKey{}, rec))

			next.ServeHTTP(&statusWriter{ResponseWriter: w, rec: rec}, r)

			route := rec.route
			if route == "" {
				route = "unmatched"
			}
			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("route", route),
				slog.Int("status", rec.status),
				slog.Duration("latency", time.Since(start)),
				slog.Int("size", rec.bytes),
				slog.String("remote", r.RemoteAddr),
			}
			if rec.served {
				attrs = append(attrs, slog.Uint64("epoch", rec.epoch))
			}
			if id := GetRequestID(r); id != "" {
				attrs = append(attrs, slog.String("request_id", id))
			}

			level := slog.LevelInfo
			if rec.status >= http.StatusInternalServerError {
				level = slog.LevelError
			} else if rec.status >= http.StatusBadRequest {
				level = slog.LevelWarn
			}
			logger.LogAttrs(r.Context(), level, "request", attrs...)
		})
	}
}
