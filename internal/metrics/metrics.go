package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ClaimAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prize_claim_attempts_total",
			Help: "Claim attempts by outcome",
		},
		[]string{"outcome"},
	)
	Deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prize_dispatch_deliveries_total",
			Help: "Per-user dispatch results by outcome",
		},
		[]string{"outcome"},
	)
	TickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "prize_dispatch_tick_seconds",
			Help:    "Duration of a dispatch tick",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(ClaimAttempts)
	prometheus.MustRegister(Deliveries)
	prometheus.MustRegister(TickDuration)
}
