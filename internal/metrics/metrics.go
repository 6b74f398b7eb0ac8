// Package metrics exposes prometheus instrumentation for the orchestrator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors for mint and permission operations.
type Metrics struct {
	MintAttempts  prometheus.Counter
	MintOutcomes  *prometheus.CounterVec
	PollAttempts  prometheus.Counter
	PermissionTxs *prometheus.CounterVec
	GasEstimated  prometheus.Histogram
}

// New creates the collectors and registers them with reg. A nil registerer
// leaves them unregistered, which tests rely on.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MintAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "keystone_mint_attempts_total",
			Help: "Mint flows started.",
		}),
		MintOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "keystone_mint_outcomes_total",
			Help: "Terminal mint outcomes by state.",
		}, []string{"state"}),
		PollAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "keystone_mint_poll_attempts_total",
			Help: "Status poll calls issued while minting.",
		}),
		PermissionTxs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "keystone_permission_txs_total",
			Help: "Permission mutations by outcome.",
		}, []string{"outcome"}),
		GasEstimated: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "keystone_gas_estimated",
			Help:    "Gas estimates for permission mutations.",
			Buckets: prometheus.ExponentialBuckets(21000, 2, 8),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.MintAttempts, m.MintOutcomes, m.PollAttempts, m.PermissionTxs, m.GasEstimated)
	}
	return m
}
