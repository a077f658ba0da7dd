// Package metrics provides Prometheus metrics for the fern service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DecisionsTotal tracks approve/reject calls by item kind and result
	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "moderation",
			Name:      "decisions_total",
			Help:      "Total number of moderation decisions by kind, decision and result",
		},
		[]string{"kind", "decision", "result"},
	)

	// DecisionDuration tracks how long a decision transaction takes
	DecisionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "moderation",
			Name:      "decision_duration_seconds",
			Help:      "Duration of moderation decisions in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"decision"},
	)

	// QueueBuildDuration tracks fetching and building the review queue
	QueueBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "moderation",
			Name:      "queue_build_duration_seconds",
			Help:      "Duration of queue fetch and build in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	// PendingItems is the last authoritative pending count per category
	PendingItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "fern",
			Subsystem: "moderation",
			Name:      "pending_items",
			Help:      "Pending submissions per moderation category at the last queue build",
		},
		[]string{"category"},
	)

	// SubmissionsTotal tracks filed submissions by kind
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "submissions",
			Name:      "filed_total",
			Help:      "Total number of filed submissions by kind",
		},
		[]string{"kind"},
	)

	// NotificationsTotal tracks change notifications by sink and status
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "notify",
			Name:      "published_total",
			Help:      "Total number of change notifications by sink and status",
		},
		[]string{"sink", "status"},
	)
)

// RecordDecision records one approve or reject call
func RecordDecision(kind, decision, result string, durationSeconds float64) {
	DecisionsTotal.WithLabelValues(kind, decision, result).Inc()
	DecisionDuration.WithLabelValues(decision).Observe(durationSeconds)
}

// RecordQueueBuild records a queue build and the counts it produced
func RecordQueueBuild(durationSeconds float64, counts map[string]int) {
	QueueBuildDuration.Observe(durationSeconds)
	for category, count := range counts {
		PendingItems.WithLabelValues(category).Set(float64(count))
	}
}

// RecordSubmission records a filed submission
func RecordSubmission(kind string) {
	SubmissionsTotal.WithLabelValues(kind).Inc()
}

// RecordNotification records a change notification by sink
func RecordNotification(sink, status string) {
	NotificationsTotal.WithLabelValues(sink, status).Inc()
}
