package middleware

import (
	"net/http"
	"time"

	"github.com/live-neon/neon-soul-sub003/internal/metrics"
)

// Metrics records request counts and latency per route pattern. Labelling by pattern
// rather than path keeps the series count bounded.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			m.ObserveHTTP(r.Method, routePattern(r), rw.statusCode, time.Since(start).Seconds())
		})
	}
}
