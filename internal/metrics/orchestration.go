package metrics

import (
	"strconv"
	"time"

	"github.com/tutorlink/tutorlink/internal/observability"
)

// Orchestration metrics
const (
	OrchestrationsTotal = "tutorlink_orchestrations_total"
	RemoteCallDuration  = "tutorlink_remote_call_duration_ms"
	ThrottleWait        = "tutorlink_throttle_wait_ms"
	BatchItemsTotal     = "tutorlink_batch_items_total"
	CacheLookupsTotal   = "tutorlink_cache_lookups_total"
)

// RecordOrchestration records the outcome of one envelope. kind is empty on
// a genuine success.
func RecordOrchestration(shape string, status string, fallback bool, kind string) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(
		OrchestrationsTotal,
		1,
		map[string]string{
			"shape":    shape,
			"status":   status,
			"fallback": strconv.FormatBool(fallback),
			"kind":     kind,
		},
	)
}

// RecordRemoteCall records the latency of one adapter call.
func RecordRemoteCall(shape string, success bool, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	_ = observability.TelemetrySystem.Histogram(
		RemoteCallDuration,
		duration,
		map[string]string{
			"shape":  shape,
			"status": status,
		},
	)
}

// RecordThrottleWait records time spent blocked on the throttle gate.
func RecordThrottleWait(duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Histogram(ThrottleWait, duration, nil)
}

// RecordBatch records the number of items in a batch.
func RecordBatch(items int, workers int) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(
		BatchItemsTotal,
		float64(items),
		map[string]string{"workers": strconv.Itoa(workers)},
	)
}

// RecordCacheLookup records a result cache hit or miss.
func RecordCacheLookup(backend string, hit bool) {
	if observability.TelemetrySystem == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	_ = observability.TelemetrySystem.Counter(
		CacheLookupsTotal,
		1,
		map[string]string{
			"backend": backend,
			"result":  result,
		},
	)
}
