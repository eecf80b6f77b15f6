package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service counters. Constructed once in main and passed
// down; the registry is explicit so tests can use their own.
type Metrics struct {
	AuthDecisions *prometheus.CounterVec
	SweptTokens   prometheus.Counter
	SweepErrors   prometheus.Counter

	registry *prometheus.Registry
}

// New builds a Metrics set on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		AuthDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_auth_decisions_total",
			Help: "Authentication gate decisions by outcome.",
		}, []string{"outcome"}),
		SweptTokens: factory.NewCounter(prometheus.CounterOpts{
			Name: "authgate_revoked_tokens_swept_total",
			Help: "Expired revocation ledger rows reclaimed by the sweep.",
		}),
		SweepErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "authgate_sweep_errors_total",
			Help: "Sweep cycles that failed against the store.",
		}),
		registry: reg,
	}
}

// Registry exposes the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
