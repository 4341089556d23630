package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	OutcomeApplied  = "applied"
	OutcomeFailed   = "failed"
	OutcomeDeferred = "deferred"
	OutcomeRetained = "retained"
)

// GatewayMetrics counts cart mutations by kind and outcome.
type GatewayMetrics struct {
	mutations *prometheus.CounterVec
}

func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	if reg == nil {
		return &GatewayMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Cart mutations requested through the gateway.",
	}, []string{"kind", "outcome"})
	reg.MustRegister(mutations)
	return &GatewayMetrics{mutations: mutations}
}

func (g *GatewayMetrics) IncMutation(kind, outcome string) {
	if g == nil || g.mutations == nil {
		return
	}
	g.mutations.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}
