// Package observability provides Prometheus metrics instrumentation for the process core.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// DISPATCH METRICS
// =============================================================================

var (
	dispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hyperprocess_dispatch_total",
			Help: "Total number of inbound messages classified and routed",
		},
		[]string{"transport", "status"}, // status: handled, decode_error, no_route, panic
	)

	dispatchDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hyperprocess_dispatch_duration_seconds",
			Help:    "Time from message classification to response send",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"transport", "variant"},
	)
)

// =============================================================================
// ASYNC RUNTIME METRICS
// =============================================================================

var (
	rpcOutstanding = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hyperprocess_rpc_outstanding",
			Help: "Number of outbound RPC calls awaiting a response",
		},
	)

	rpcOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hyperprocess_rpc_outcomes_total",
			Help: "Outcomes delivered to awaiting tasks, by kind",
		},
		[]string{"kind"}, // bytes, timeout, offline, decode_error
	)

	rpcLatencySeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hyperprocess_rpc_latency_seconds",
			Help:    "Latency from RPC send to outcome delivery",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
	)

	executorActiveTasks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hyperprocess_executor_active_tasks",
			Help: "Number of spawned handler goroutines not yet completed",
		},
	)
)

// =============================================================================
// PERSISTENCE METRICS
// =============================================================================

var (
	persistenceWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hyperprocess_persistence_writes_total",
			Help: "Total state writes attempted, by outcome",
		},
		[]string{"status"}, // ok, error
	)

	messagesSinceLastSave = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hyperprocess_messages_since_last_save",
			Help: "Messages processed since the last successful state write",
		},
	)
)

// =============================================================================
// PUBLIC API
// =============================================================================

// RecordDispatch records a single classify-and-route outcome.
func RecordDispatch(transport, status, variant string, durationSeconds float64) {
	dispatchTotal.WithLabelValues(transport, status).Inc()
	dispatchDurationSeconds.WithLabelValues(transport, variant).Observe(durationSeconds)
}

// SetRPCOutstanding reports the current size of the pending-response table.
func SetRPCOutstanding(n int) {
	rpcOutstanding.Set(float64(n))
}

// RecordRPCOutcome records an outcome delivered to an awaiting task.
func RecordRPCOutcome(kind string, latencySeconds float64) {
	rpcOutcomesTotal.WithLabelValues(kind).Inc()
	rpcLatencySeconds.Observe(latencySeconds)
}

// SetExecutorActiveTasks reports how many spawned tasks are still live.
func SetExecutorActiveTasks(n int) {
	executorActiveTasks.Set(float64(n))
}

// RecordPersistenceWrite records a state-store write attempt.
func RecordPersistenceWrite(ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	persistenceWritesTotal.WithLabelValues(status).Inc()
}

// SetMessagesSinceLastSave reports the persistence engine's message counter.
func SetMessagesSinceLastSave(n int) {
	messagesSinceLastSave.Set(float64(n))
}
