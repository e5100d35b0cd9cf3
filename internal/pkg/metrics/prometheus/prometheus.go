// Package prommetrics exposes pipeline observations as Prometheus metrics.
package prommetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics implements webhook.Metrics and costcenter.Metrics.
type Metrics struct {
	eventsReceived   *prometheus.CounterVec
	eventsProcessed  *prometheus.CounterVec
	runDuration      prometheus.Histogram
	costCenterAssign *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg under namespace.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		eventsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "events_received_total",
			Help:      "Webhook deliveries received, by outcome (stored, duplicate, rejected).",
		}, []string{"event_type", "outcome"}),

		eventsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "events_processed_total",
			Help:      "Stored webhook events resolved by the processor.",
		}, []string{"event_type", "action", "status"}),

		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "processing_run_duration_seconds",
			Help:      "Duration of one pending-event processing run in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),

		costCenterAssign: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cost_center_assignments_total",
			Help:      "Default cost center assignment attempts, by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) RecordReceived(eventType, outcome string) {
	m.eventsReceived.WithLabelValues(eventType, outcome).Inc()
}

func (m *Metrics) RecordProcessed(eventType, action, status string) {
	m.eventsProcessed.WithLabelValues(eventType, action, status).Inc()
}

func (m *Metrics) ObserveRun(d time.Duration) {
	m.runDuration.Observe(d.Seconds())
}

func (m *Metrics) RecordCostCenterAssignment(outcome string) {
	m.costCenterAssign.WithLabelValues(outcome).Inc()
}
