package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"zeroforums/internal/observability/metrics"
)

// Instrument records per-request counters and latency histograms. Paths are
// taken from the matched route, so high-cardinality inputs like tokens never
// become label values.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		metrics.HTTPRequestsTotal.
			WithLabelValues(r.Method, path, strconv.Itoa(ww.Status())).
			Inc()
		metrics.HTTPRequestDurationSeconds.
			WithLabelValues(r.Method, path).
			Observe(time.Since(start).Seconds())
	})
}
