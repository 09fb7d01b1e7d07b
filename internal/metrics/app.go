// Package metrics records application counters through the gofulmen
// telemetry system. All recorders are safe to call before telemetry is
// initialized; emissions are dropped until then.
package metrics

import (
	"time"

	"github.com/finsight/finsight/internal/observability"
)

// Metric names following Prometheus conventions
var (
	// Outbound operation metrics
	OperationsTotal       = "app_operations_total"
	RetryAttemptsTotal    = "app_retry_attempts_total"
	RateLimitWaitsTotal   = "app_rate_limit_waits_total"
	RateLimitRejectsTotal = "app_rate_limit_rejects_total"
	CacheLookupsTotal     = "app_cache_lookups_total"

	// Server lifecycle metrics
	PanicsTotal     = "app_panics_total"
	ServerStartTime = "app_server_start_time_seconds"
)

// RecordOperation records one completed outbound operation with status
func RecordOperation(operation string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			OperationsTotal,
			1,
			map[string]string{
				"operation": operation,
				"status":    status,
			},
		)
	}
}

// RecordRetry records one retried attempt for an operation
func RecordRetry(operation string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			RetryAttemptsTotal,
			1,
			map[string]string{"operation": operation},
		)
	}
}

// RecordRateLimitWait records a call that blocked waiting for a limiter slot
func RecordRateLimitWait(operation string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			RateLimitWaitsTotal,
			1,
			map[string]string{"operation": operation},
		)
	}
}

// RecordRateLimitReject records a call rejected by the limiter
func RecordRateLimitReject(operation string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			RateLimitRejectsTotal,
			1,
			map[string]string{"operation": operation},
		)
	}
}

// RecordCacheLookup records a response-cache lookup and its outcome
func RecordCacheLookup(operation string, hit bool) {
	result := "hit"
	if !hit {
		result = "miss"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			CacheLookupsTotal,
			1,
			map[string]string{
				"operation": operation,
				"result":    result,
			},
		)
	}
}

// RecordPanic records a recovered panic
func RecordPanic() {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(PanicsTotal, 1, nil)
	}
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(ts time.Time) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerStartTime,
			float64(ts.Unix()),
			nil,
		)
	}
}
