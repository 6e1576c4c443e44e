package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics records the payment pipeline's key counters.
type PaymentMetrics struct {
	initiations   *prometheus.CounterVec
	confirmations *prometheus.CounterVec
	fulfillments  *prometheus.CounterVec
	verifyLatency *prometheus.HistogramVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	initiations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_initiations_total",
		Help: "Payment initiations by method and outcome.",
	}, []string{"method", "outcome"})
	confirmations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_confirmations_total",
		Help: "Payment confirmations by source and outcome.",
	}, []string{"source", "outcome"})
	fulfillments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_fulfillments_total",
		Help: "Order fulfillments by outcome.",
	}, []string{"outcome"})
	verifyLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_verify_duration_seconds",
		Help:    "Latency of gateway status verification calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	reg.MustRegister(initiations, confirmations, fulfillments, verifyLatency)
	return &PaymentMetrics{
		initiations:   initiations,
		confirmations: confirmations,
		fulfillments:  fulfillments,
		verifyLatency: verifyLatency,
	}
}

// IncInitiation counts one payment initiation.
func (m *PaymentMetrics) IncInitiation(method, outcome string) {
	if m == nil || m.initiations == nil {
		return
	}
	m.initiations.WithLabelValues(normalizeLabel(method), normalizeLabel(outcome)).Inc()
}

// IncConfirmation counts one confirmation attempt. Source is webhook, poll,
// or admin.
func (m *PaymentMetrics) IncConfirmation(source, outcome string) {
	if m == nil || m.confirmations == nil {
		return
	}
	m.confirmations.WithLabelValues(normalizeLabel(source), normalizeLabel(outcome)).Inc()
}

// IncFulfillment counts one fulfillment run.
func (m *PaymentMetrics) IncFulfillment(outcome string) {
	if m == nil || m.fulfillments == nil {
		return
	}
	m.fulfillments.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveVerifyDuration records the latency of one gateway verify call.
func (m *PaymentMetrics) ObserveVerifyDuration(outcome string, duration time.Duration) {
	if m == nil || m.verifyLatency == nil {
		return
	}
	m.verifyLatency.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
