package resilience

import "github.com/prometheus/client_golang/prometheus"

var (
	// BreakerState exposes the state of each guarded dependency:
	// 0=closed, 1=open, 2=half_open.
	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "oferta",
			Name:      "breaker_state",
			Help:      "Circuit breaker state per target: 0=closed,1=open,2=half_open",
		},
		[]string{"target"},
	)
	// BreakerTransitions counts every state change with from/to labels.
	BreakerTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "oferta",
			Name:      "breaker_transition_total",
			Help:      "Circuit breaker state transitions",
		},
		[]string{"target", "from", "to"},
	)
	// BreakerOpenedTotal counts trips into the open state.
	BreakerOpenedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "oferta",
			Name:      "breaker_open_total",
			Help:      "Times a circuit breaker tripped open",
		},
		[]string{"target"},
	)
)

func init() {
	prometheus.MustRegister(BreakerState, BreakerTransitions, BreakerOpenedTotal)
}
