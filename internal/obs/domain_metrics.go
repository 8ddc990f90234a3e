package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// VoucherValidationTotal counts voucher validation outcomes by reason.
	VoucherValidationTotal *prometheus.CounterVec
	// VoucherRedemptionTotal counts voucher redemption attempts at order submission.
	VoucherRedemptionTotal *prometheus.CounterVec
	// CheckoutSubmitTotal counts order submission outcomes.
	CheckoutSubmitTotal *prometheus.CounterVec
	// RankingLookupTotal counts customer ranking lookups by data source.
	RankingLookupTotal *prometheus.CounterVec
	// CheckoutFinalTotal records the payable amount of submitted orders.
	CheckoutFinalTotal prometheus.Histogram
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		VoucherValidationTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voucher_validation_total",
			Help:      "Count of voucher validation outcomes.",
		}, []string{"result"})
		VoucherRedemptionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voucher_redemption_total",
			Help:      "Count of voucher redemption outcomes.",
		}, []string{"result"})
		CheckoutSubmitTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_submit_total",
			Help:      "Count of checkout submissions by outcome.",
		}, []string{"result"})
		RankingLookupTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ranking_lookup_total",
			Help:      "Count of customer ranking lookups by source.",
		}, []string{"source"})
		CheckoutFinalTotal = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "checkout_final_total",
			Help:      "Final payable amount of submitted orders in whole currency units.",
			Buckets:   prometheus.ExponentialBuckets(10_000, 4, 10),
		})

		VoucherValidationTotal = register(reg, VoucherValidationTotal)
		VoucherRedemptionTotal = register(reg, VoucherRedemptionTotal)
		CheckoutSubmitTotal = register(reg, CheckoutSubmitTotal)
		RankingLookupTotal = register(reg, RankingLookupTotal)
		CheckoutFinalTotal = register(reg, CheckoutFinalTotal)
	})
}

// IncCounter increments the labelled counter when domain metrics are registered.
func IncCounter(vec *prometheus.CounterVec, labels ...string) {
	if vec == nil {
		return
	}
	vec.WithLabelValues(labels...).Inc()
}

// ObserveFinalTotal records a submitted order amount when domain metrics are registered.
func ObserveFinalTotal(amount int64) {
	if CheckoutFinalTotal == nil {
		return
	}
	CheckoutFinalTotal.Observe(float64(amount))
}
