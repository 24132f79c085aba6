// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Save results used as the "result" label.
const (
	ResultOK          = "ok"
	ResultValidation  = "validation_error"
	ResultNotFound    = "not_found"
	ResultIntegrity   = "referential_integrity"
	ResultInterrupted = "transaction_interrupted"
	ResultPersistence = "persistence_error"
)

var (
	GraphSaves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fullstori_graph_saves_total",
		Help: "Graph reconciliations by result",
	}, []string{"result"})

	GraphSaveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fullstori_graph_save_duration_seconds",
		Help:    "Wall time of a full graph reconciliation",
		Buckets: prometheus.DefBuckets,
	})

	GraphSaveSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fullstori_graph_save_items",
		Help:    "Number of nodes and edges submitted per save",
		Buckets: prometheus.ExponentialBuckets(1, 4, 7),
	}, []string{"kind"})

	// Derived edge outcomes per event write: created, exists, failed, ...
	EventEdges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fullstori_event_edges_total",
		Help: "Edge derivation outcomes for timeline events",
	}, []string{"status"})

	RootsSynthesized = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fullstori_graph_roots_synthesized_total",
		Help: "Root nodes created because a graph had none",
	})

	StreamSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fullstori_stream_subscribers",
		Help: "Open graph change stream connections",
	})

	OrphanEntities = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fullstori_orphan_entities",
		Help: "Entities not placed on any graph at the last report",
	})

	ScheduledTaskRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fullstori_scheduled_task_runs_total",
		Help: "Scheduled task executions by task and outcome",
	}, []string{"task", "outcome"})
)

// ObserveSave records the result and duration of one reconciliation.
func ObserveSave(result string, seconds float64, nodes, edges int) {
	GraphSaves.WithLabelValues(result).Inc()
	GraphSaveDuration.Observe(seconds)
	GraphSaveSize.WithLabelValues("nodes").Observe(float64(nodes))
	GraphSaveSize.WithLabelValues("edges").Observe(float64(edges))
}
