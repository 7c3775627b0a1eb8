package middleware

import (
	"net/http"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/face-attendance/internal/logging"
)

// RequestLogger logs every request through the application logger.
func RequestLogger() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			fields := logging.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   ww.Status(),
				"bytes":    ww.BytesWritten(),
				"duration": time.Since(start).Round(time.Millisecond).String(),
			}
			if id := chiMiddleware.GetReqID(r.Context()); id != "" {
				fields["request_id"] = id
			}
			if ww.Status() >= http.StatusInternalServerError {
				logging.Warn(fields, "request failed")
				return
			}
			logging.Debug(fields, "request")
		})
	}
}
