package server

import (
	"net/http"
	"time"

	"github.com/teemow/zoomfetch/internal/instrumentation"
)

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// WithMetrics wraps mux so every request is recorded with its method, route
// pattern, status code and duration. The registered mux pattern is used as
// the path label, so unmatched requests cannot inflate metric cardinality.
func WithMetrics(mux *http.ServeMux, metrics *instrumentation.Metrics) http.Handler {
	if metrics == nil {
		return mux
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		mux.ServeHTTP(recorder, r)

		_, pattern := mux.Handler(r)
		if pattern == "" {
			pattern = "unmatched"
		}
		metrics.RecordHTTPRequest(r.Context(), r.Method, pattern, recorder.status, time.Since(start))
	})
}
