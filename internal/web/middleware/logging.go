// Package middleware provides HTTP middleware for the web server.
package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/prep/internal/logging"
)

// Logger is an HTTP middleware that logs request details using structured logging.
//
// The request ID comes from chi's RequestID middleware through
// logging.FromContext, and the session ID from the {id} route parameter when
// the route has one.
//
// Log fields:
//   - method, path and route pattern
//   - status: HTTP response status code
//   - bytes: response body size
//   - duration_ms: request processing time in milliseconds
//   - ip: client IP address (RemoteAddr, rewritten by TrustedRealIP)
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(ww, r)

		ctx := r.Context()
		if id := chi.URLParam(r, "id"); id != "" {
			ctx = logging.WithSessionID(ctx, id)
		}

		logger := logging.FromContext(ctx)
		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"route", routePattern(r),
			"status", ww.status,
			"bytes", ww.bytes,
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", r.RemoteAddr,
		}
		switch {
		case ww.status >= 500:
			logger.Error("request", attrs...)
		case ww.status >= 400:
			logger.Warn("request", attrs...)
		default:
			logger.Info("request", attrs...)
		}
	})
}

// routePattern returns the matched chi pattern, or the raw path when no
// route matched.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return r.URL.Path
}

// responseWriter wraps http.ResponseWriter to capture the status code and
// body size.
type responseWriter struct {
	http.ResponseWriter
	status      int
	bytes       int64
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.status = status
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += int64(n)
	return n, err
}

// Unwrap provides access to the underlying ResponseWriter for
// http.ResponseController.
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
