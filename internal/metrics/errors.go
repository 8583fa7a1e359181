package metrics

import (
	"strconv"

	"github.com/tutorlink/tutorlink/internal/observability"
)

// Error metrics
const (
	ErrorsTotal    = "tutorlink_errors_total"
	PanicsTotal    = "tutorlink_panics_total"
	EndpointErrors = "tutorlink_endpoint_errors_total"
)

// RecordError counts an error response by code and status.
func RecordError(code string, status int) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(ErrorsTotal, 1, map[string]string{
		"code":   code,
		"status": strconv.Itoa(status),
	})
}

// RecordPanic counts a recovered panic.
func RecordPanic() {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(PanicsTotal, 1, nil)
}

// RecordErrorByEndpoint counts errors per route pattern. Callers pass the
// pattern, not the raw path, to keep label cardinality bounded.
func RecordErrorByEndpoint(endpoint string, code string) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(EndpointErrors, 1, map[string]string{
		"endpoint": endpoint,
		"code":     code,
	})
}
