package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ReplayResultEmpty   = "empty"
	ReplayResultSuccess = "success"
	ReplayResultPartial = "partial"
	ReplayResultSkipped = "skipped"
	ReplayResultError   = "error"
)

// ReplayMetrics records post-login replays of deferred cart actions.
type ReplayMetrics struct {
	duration *prometheus.HistogramVec
	actions  *prometheus.CounterVec
	runs     *prometheus.CounterVec
}

// NewReplayMetrics registers the replay metrics on the provided registerer.
func NewReplayMetrics(reg prometheus.Registerer) *ReplayMetrics {
	if reg == nil {
		return &ReplayMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cart_replay_duration_seconds",
		Help:    "Duration of action log replays in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})
	actions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_replay_actions_total",
		Help: "Deferred actions processed by replay, by outcome.",
	}, []string{"outcome"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_replay_runs_total",
		Help: "Replay invocations, by result.",
	}, []string{"result"})
	reg.MustRegister(duration, actions, runs)
	return &ReplayMetrics{duration: duration, actions: actions, runs: runs}
}

// ObserveRun records one replay invocation and how long it took.
func (r *ReplayMetrics) ObserveRun(result string, duration time.Duration) {
	if r == nil || r.runs == nil {
		return
	}
	result = normalizeLabel(result)
	r.runs.WithLabelValues(result).Inc()
	r.duration.WithLabelValues(result).Observe(duration.Seconds())
}

// AddActions adds n actions with the given outcome.
func (r *ReplayMetrics) AddActions(outcome string, n int) {
	if r == nil || r.actions == nil || n <= 0 {
		return
	}
	r.actions.WithLabelValues(normalizeLabel(outcome)).Add(float64(n))
}
