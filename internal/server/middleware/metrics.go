package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tutorlink/tutorlink/internal/observability"
)

// HTTP metrics
const (
	HTTPRequestsTotal   = "tutorlink_http_requests_total"
	HTTPRequestDuration = "tutorlink_http_request_duration_ms"
	HTTPRequestSize     = "tutorlink_http_request_size_bytes"
	HTTPResponseSize    = "tutorlink_http_response_size_bytes"
	HTTPErrorsTotal     = "tutorlink_http_errors_total"
)

type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int64
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	n, err := s.ResponseWriter.Write(b)
	s.written += int64(n)
	return n, err
}

// EndpointPattern returns the chi route pattern for r, or a coarse bucket
// for unrouted paths so metric labels stay bounded.
func EndpointPattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	path := r.URL.Path
	switch {
	case path == "/":
		return "/"
	case path == "/version", path == "/metrics":
		return path
	case path == "/health", strings.HasPrefix(path, "/health/"):
		return "/health/*"
	case strings.HasPrefix(path, "/api/"):
		return "/api/*"
	default:
		return "/unknown"
	}
}

// RequestMetrics records request count, latency and sizes, then logs the
// request at info.
func RequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		endpoint := EndpointPattern(r)
		status := strconv.Itoa(rec.status)

		if sys := observability.TelemetrySystem; sys != nil {
			labels := map[string]string{"method": r.Method, "endpoint": endpoint, "status": status}
			sizeLabels := map[string]string{"method": r.Method, "endpoint": endpoint}

			_ = sys.Counter(HTTPRequestsTotal, 1, labels)
			_ = sys.Histogram(HTTPRequestDuration, elapsed, labels)
			if r.ContentLength > 0 {
				_ = sys.Gauge(HTTPRequestSize, float64(r.ContentLength), sizeLabels)
			}
			_ = sys.Gauge(HTTPResponseSize, float64(rec.written), sizeLabels)

			if rec.status >= 400 {
				errorType := "client_error"
				if rec.status >= 500 {
					errorType = "server_error"
				}
				_ = sys.Counter(HTTPErrorsTotal, 1, map[string]string{
					"method":     r.Method,
					"endpoint":   endpoint,
					"status":     status,
					"error_type": errorType,
				})
			}
		}

		if logger := observability.ServerLogger; logger != nil {
			logger.Info("HTTP request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("endpoint", endpoint),
				zap.Int("status", rec.status),
				zap.Duration("duration", elapsed),
				zap.Int64("response_size", rec.written),
				zap.String("request_id", GetRequestID(r.Context())),
			)
		}
	})
}
