package middleware

import (
	"net/http"
	"time"
)

type MetricsRecorder interface {
	Record(status int, duration time.Duration)
}

func Metrics(recorder MetricsRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			recorder.Record(rec.status, time.Since(start))
		})
	}
}
