package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// QueueMetrics tracks deferred cart actions written to the action log.
type QueueMetrics struct {
	enqueued *prometheus.CounterVec
	failures *prometheus.CounterVec
}

// NewQueueMetrics registers the deferred action counters on the provided registerer.
func NewQueueMetrics(reg prometheus.Registerer) *QueueMetrics {
	if reg == nil {
		return &QueueMetrics{}
	}
	enqueued := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "deferred_actions_enqueued_total",
		Help: "Cart actions deferred until the visitor authenticates.",
	}, []string{"kind"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "deferred_actions_enqueue_failures_total",
		Help: "Cart actions that could not be written to the action log.",
	}, []string{"reason"})
	reg.MustRegister(enqueued, failures)
	return &QueueMetrics{enqueued: enqueued, failures: failures}
}

// IncEnqueued counts one deferred action of the given kind.
func (q *QueueMetrics) IncEnqueued(kind string) {
	if q == nil || q.enqueued == nil {
		return
	}
	q.enqueued.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncFailure counts an append that did not reach storage.
func (q *QueueMetrics) IncFailure(reason string) {
	if q == nil || q.failures == nil {
		return
	}
	q.failures.WithLabelValues(normalizeLabel(reason)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
