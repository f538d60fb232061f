package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PunchoutSetupTotal counts PunchOutSetupRequest outcomes.
	PunchoutSetupTotal *prometheus.CounterVec
	// PunchoutOrderTotal counts order-transfer outcomes.
	PunchoutOrderTotal *prometheus.CounterVec
	// PunchoutSessionsActive tracks sessions currently held in the store.
	PunchoutSessionsActive prometheus.Gauge
	// PunchoutSessionEvictions counts sessions removed by TTL expiry.
	PunchoutSessionEvictions prometheus.Counter
	// PricingQuoteTotal counts pricing computations by mode and channel.
	PricingQuoteTotal *prometheus.CounterVec
	// ContractWriteTotal counts admin contract mutations by outcome.
	ContractWriteTotal *prometheus.CounterVec
	// CatalogRepriceTotal counts background catalog reprice runs.
	CatalogRepriceTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		PunchoutSetupTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "punchout_setup_total",
			Help:      "Count of PunchOut setup request outcomes.",
		}, []string{"mode", "result"})
		PunchoutOrderTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "punchout_order_total",
			Help:      "Count of PunchOut order transfer outcomes.",
		}, []string{"result"})
		PunchoutSessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "punchout_sessions_active",
			Help:      "Number of PunchOut sessions currently in the store.",
		})
		PunchoutSessionEvictions = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "punchout_session_evictions_total",
			Help:      "Count of PunchOut sessions evicted by TTL expiry.",
		})
		PricingQuoteTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_quote_total",
			Help:      "Count of pricing computations by mode and channel.",
		}, []string{"mode", "channel"})
		ContractWriteTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contract_write_total",
			Help:      "Count of contract discount mutations by outcome.",
		}, []string{"op", "result"})
		CatalogRepriceTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_reprice_total",
			Help:      "Count of background catalog reprice runs by outcome.",
		}, []string{"result"})

		reg.MustRegister(
			PunchoutSetupTotal,
			PunchoutOrderTotal,
			PunchoutSessionsActive,
			PunchoutSessionEvictions,
			PricingQuoteTotal,
			ContractWriteTotal,
			CatalogRepriceTotal,
		)
	})
}
