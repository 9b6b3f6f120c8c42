package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Collectors are constructed eagerly so domain code can increment them before
// MustRegisterDomainMetrics runs (unit tests never register them at all).
var (
	domainOnce sync.Once

	// DiscountApplyTotal counts discount applications by scope and outcome.
	DiscountApplyTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "oferta",
		Name:      "discount_apply_total",
		Help:      "Count of discount applications by scope and result.",
	}, []string{"scope", "result"})
	// VariantSelectTotal counts variant selection changes by outcome.
	VariantSelectTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "oferta",
		Name:      "variant_select_total",
		Help:      "Count of variant selection changes by result.",
	}, []string{"result"})
	// OrderSubmitTotal counts order submission attempts by outcome.
	OrderSubmitTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "oferta",
		Name:      "order_submit_total",
		Help:      "Count of order submission attempts by result.",
	}, []string{"result"})
	// SnapshotLoadTotal counts quote snapshot loads by source (cache or store).
	SnapshotLoadTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "oferta",
		Name:      "snapshot_load_total",
		Help:      "Count of quote snapshot loads by source.",
	}, []string{"source"})
	// SessionsActive tracks the number of live editing sessions.
	SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "oferta",
		Name:      "sessions_active",
		Help:      "Number of live quote editing sessions.",
	})
)

// MustRegisterDomainMetrics registers the quote-domain collectors. Safe to
// call more than once; only the first registration takes effect.
func MustRegisterDomainMetrics(reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		DiscountApplyTotal = registerCounterVec(reg, DiscountApplyTotal)
		VariantSelectTotal = registerCounterVec(reg, VariantSelectTotal)
		OrderSubmitTotal = registerCounterVec(reg, OrderSubmitTotal)
		SnapshotLoadTotal = registerCounterVec(reg, SnapshotLoadTotal)
		SessionsActive = registerGauge(reg, SessionsActive)
	})
}
