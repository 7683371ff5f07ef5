// Package metrics defines the engine's Prometheus collectors. Collectors are
// registered on the default registry at package init and exposed via
// promhttp on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SchedulesCreated counts schedules accepted by the API, single and batch.
	SchedulesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_schedules_created_total",
		Help: "Total number of schedules created.",
	})

	// Executions counts resolved executions by outcome (executed, failed).
	Executions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_executions_total",
		Help: "Total number of schedule executions by outcome.",
	}, []string{"outcome"})

	// ProcessorRuns counts pending-processor runs, however triggered.
	ProcessorRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_processor_runs_total",
		Help: "Total number of pending-processor runs.",
	})

	// ProcessorDuration observes how long one pending-processor run takes.
	ProcessorDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scheduler_processor_duration_seconds",
		Help:    "Duration of pending-processor runs in seconds.",
		Buckets: prometheus.DefBuckets,
	})

	serverInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "scheduler_server_info",
		Help: "Static server information.",
	}, []string{"version", "backend"})
)

// Init sets the static server-info gauge.
func Init(version, backend string) {
	serverInfo.WithLabelValues(version, backend).Set(1)
}
