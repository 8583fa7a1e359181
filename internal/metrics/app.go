package metrics

import (
	"time"

	"github.com/tutorlink/tutorlink/internal/observability"
)

// Service-level metrics
const (
	LearningRequestsTotal = "tutorlink_learning_requests_total"
	TutorMessagesTotal    = "tutorlink_tutor_messages_total"
	HealthChecksTotal     = "tutorlink_health_checks_total"
	HealthCheckDuration   = "tutorlink_health_check_duration_ms"
	ServerStartTime       = "tutorlink_server_start_time_seconds"
	ServerUptime          = "tutorlink_server_uptime_seconds"
)

// RecordLearningRequest counts one learning operation by outcome. outcome
// is "ok", "fallback", "error" or "invalid".
func RecordLearningRequest(operation string, outcome string) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(
		LearningRequestsTotal,
		1,
		map[string]string{
			"operation": operation,
			"outcome":   outcome,
		},
	)
}

// RecordTutorMessages counts messages persisted to a tutor session.
func RecordTutorMessages(n int) {
	if observability.TelemetrySystem == nil || n <= 0 {
		return
	}
	_ = observability.TelemetrySystem.Counter(TutorMessagesTotal, float64(n), nil)
}

// RecordHealthCheck records one dependency probe.
func RecordHealthCheck(check string, healthy bool, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	labels := map[string]string{"check": check, "status": status}
	_ = observability.TelemetrySystem.Counter(HealthChecksTotal, 1, labels)
	_ = observability.TelemetrySystem.Histogram(HealthCheckDuration, duration, map[string]string{"check": check})
}

// SetServerStartTime records the unix time the server started.
func SetServerStartTime(t time.Time) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Gauge(ServerStartTime, float64(t.Unix()), nil)
}

// SetServerUptime records seconds since start.
func SetServerUptime(uptime time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Gauge(ServerUptime, uptime.Seconds(), nil)
}
