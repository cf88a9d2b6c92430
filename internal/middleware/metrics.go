package middleware

import (
	"net/http"
	"time"
)

type RequestObserver interface {
	ObserveRequest(method, route string, status int, d time.Duration)
}

// Metrics records every request against the route pattern chosen by the
// mux, which keeps label cardinality bounded by the route table.
func Metrics(obs RequestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			obs.ObserveRequest(r.Method, r.Pattern, rec.status, time.Since(start))
		})
	}
}
