// Package metrics exposes Prometheus collectors for the lifecycle engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OperationsTotal counts engine operations by action and outcome.
	OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "setu_engine_operations_total",
		Help: "Total engine operations by action and outcome",
	}, []string{"action", "outcome"})

	// RecallCascadeSize tracks how many batches each recall touched.
	RecallCascadeSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "setu_recall_cascade_size",
		Help:    "Number of batches marked recalled per recall operation",
		Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
	})

	// NotificationsCreated counts recall notifications written to the sink.
	NotificationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "setu_notifications_created_total",
		Help: "Total notifications created by recall fan-out",
	})
)
