package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// PaymentMetrics tracks gateway traffic and escrow settlement.
type PaymentMetrics struct {
	gatewayCalls    *prometheus.CounterVec
	gatewayLatency  *prometheus.HistogramVec
	escrowReleased  *prometheus.CounterVec
	releasedAmount  prometheus.Counter
	staleEscrow     prometheus.Gauge
	reconcileResult *prometheus.CounterVec
}

// NewPaymentMetrics registers payment metrics on reg. A nil registerer yields a no-op recorder.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	m := &PaymentMetrics{
		gatewayCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_requests_total",
			Help:      "Payment gateway calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
		gatewayLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_request_duration_seconds",
			Help:      "Payment gateway call latency.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"operation"}),
		escrowReleased: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escrow_released_total",
			Help:      "Escrow releases by trigger.",
		}, []string{"reason"}),
		releasedAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escrow_released_naira_total",
			Help:      "Naira distributed out of escrow.",
		}),
		staleEscrow: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "escrow_stale_payments",
			Help:      "Payments held in escrow past the aging threshold at the last scan.",
		}),
		reconcileResult: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_reconcile_total",
			Help:      "Payment reconciliation outcomes.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.gatewayCalls, m.gatewayLatency, m.escrowReleased, m.releasedAmount, m.staleEscrow, m.reconcileResult)
	return m
}

func (m *PaymentMetrics) ObserveGatewayCall(operation string, duration time.Duration, err error) {
	if m == nil || m.gatewayCalls == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.gatewayCalls.WithLabelValues(normalizeLabel(operation), outcome).Inc()
	m.gatewayLatency.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

func (m *PaymentMetrics) RecordEscrowRelease(reason string, amount decimal.Decimal) {
	if m == nil || m.escrowReleased == nil {
		return
	}
	m.escrowReleased.WithLabelValues(normalizeLabel(reason)).Inc()
	m.releasedAmount.Add(amount.InexactFloat64())
}

func (m *PaymentMetrics) SetStaleEscrow(count int) {
	if m == nil || m.staleEscrow == nil {
		return
	}
	m.staleEscrow.Set(float64(count))
}

func (m *PaymentMetrics) RecordReconcile(outcome string) {
	if m == nil || m.reconcileResult == nil {
		return
	}
	m.reconcileResult.WithLabelValues(normalizeLabel(outcome)).Inc()
}
