package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Checkout outcome labels.
const (
	OutcomePlaced       = "placed"
	OutcomeEmptyCart    = "empty_cart"
	OutcomeOutOfStock   = "insufficient_stock"
	OutcomeFailed       = "failed"
	OutcomeUnclassified = "unknown"
)

// OrderMetrics records checkout activity.
type OrderMetrics struct {
	checkouts *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	units     prometheus.Counter
}

// NewOrderMetrics registers the order metrics on the provided registerer. A nil
// registerer yields a no-op recorder.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sweetshop_checkouts_total",
		Help: "Checkout attempts by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sweetshop_checkout_duration_seconds",
		Help:    "Duration of checkout transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	units := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sweetshop_units_sold_total",
		Help: "Units decremented from stock by placed orders.",
	})
	reg.MustRegister(checkouts, duration, units)
	return &OrderMetrics{
		checkouts: checkouts,
		duration:  duration,
		units:     units,
	}
}

// ObserveCheckout records one checkout attempt.
func (m *OrderMetrics) ObserveCheckout(outcome string, duration time.Duration) {
	if m == nil || m.checkouts == nil {
		return
	}
	outcome = normalizeLabel(outcome)
	m.checkouts.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// AddUnitsSold adds n to the sold units counter.
func (m *OrderMetrics) AddUnitsSold(n int) {
	if m == nil || m.units == nil || n <= 0 {
		return
	}
	m.units.Add(float64(n))
}

func normalizeLabel(v string) string {
	if v == "" {
		return OutcomeUnclassified
	}
	return v
}
