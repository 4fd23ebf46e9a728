package middleware

import (
	"net/http"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/face-recognizer/internal/logging"
	"github.com/sirupsen/logrus"
)

// RequestLogger logs one line per request with its status and latency.
// It must run after chi's RequestID middleware to pick up the request ID.
func RequestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	log = logging.OrDiscard(log)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			entry := log.WithFields(logrus.Fields{
				"method":               r.Method,
				"path":                 r.URL.Path,
				"status":               status,
				"bytes":                ww.BytesWritten(),
				"latency":              time.Since(start).String(),
				"remote_addr":          r.RemoteAddr,
				logging.RequestIDField: chiMiddleware.GetReqID(r.Context()),
			})

			switch {
			case status >= http.StatusInternalServerError:
				entry.Error("request failed")
			case status >= http.StatusBadRequest:
				entry.Warn("request rejected")
			default:
				entry.Info("request served")
			}
		})
	}
}
