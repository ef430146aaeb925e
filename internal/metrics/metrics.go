// Package metrics provides Prometheus metrics for the calendar service.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// definitionBuildsTotal counts calendar definition builds.
	// Labels:
	//   - result: "ok" or "rejected"
	definitionBuildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calendar_definition_builds_total",
			Help: "Total number of calendar definition builds",
		},
		[]string{"result"},
	)

	// engineOperationsTotal counts engine operations.
	// Labels:
	//   - operation: e.g. "to_linear", "from_linear", "weekday", "moon_phase"
	//   - status: "ok" or "error"
	engineOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calendar_engine_operations_total",
			Help: "Total number of calendar engine operations",
		},
		[]string{"operation", "status"},
	)

	// clockTicksTotal counts automatic clock advances.
	clockTicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calendar_clock_ticks_total",
			Help: "Total number of automatic game clock advances",
		},
		[]string{"status"},
	)

	// panicsTotal counts handler panics turned into 500 responses.
	panicsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calendar_http_panics_total",
			Help: "Total number of recovered handler panics",
		},
		[]string{"route"},
	)

	// httpRequestDuration records API request latency.
	// Buckets: 1ms to 2.5s
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "calendar_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "route", "status"},
	)
)

func init() {
	prometheus.MustRegister(definitionBuildsTotal)
	prometheus.MustRegister(engineOperationsTotal)
	prometheus.MustRegister(clockTicksTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(panicsTotal)
}

// RecordDefinitionBuild records the outcome of building a definition.
func RecordDefinitionBuild(err error) {
	definitionBuildsTotal.WithLabelValues(result(err, "ok", "rejected")).Inc()
}

// RecordOperation records one engine operation.
func RecordOperation(operation string, err error) {
	engineOperationsTotal.WithLabelValues(operation, result(err, "ok", "error")).Inc()
}

// RecordClockTick records one automatic clock advance.
func RecordClockTick(err error) {
	clockTicksTotal.WithLabelValues(result(err, "ok", "error")).Inc()
}

// RecordHTTPRequest records the latency of one HTTP request.
func RecordHTTPRequest(method, route, status string, durationSeconds float64) {
	httpRequestDuration.WithLabelValues(method, route, status).Observe(durationSeconds)
}

// RecordPanic records a recovered panic in the handler for route.
func RecordPanic(route string) {
	panicsTotal.WithLabelValues(route).Inc()
}

func result(err error, ok, failed string) string {
	if err != nil {
		return failed
	}
	return ok
}
