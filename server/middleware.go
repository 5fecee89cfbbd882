package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"baikuk-automation/utils"
)

// TraceHeader carries the request trace id in both directions.
const TraceHeader = "X-Trace-ID"

// LoggerMiddleware logs every request with a trace id, reusing the caller's
// id when it is a valid UUID.
func LoggerMiddleware(logger *utils.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID := r.Header.Get(TraceHeader)
			if _, err := uuid.Parse(traceID); err != nil {
				traceID = uuid.New().String()
			}
			w.Header().Set(TraceHeader, traceID)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Info("[http] %s %s → %d (%dB, %dms) trace=%s",
				r.Method, r.URL.Path, ww.Status(), ww.BytesWritten(),
				time.Since(start).Milliseconds(), traceID)
		})
	}
}
