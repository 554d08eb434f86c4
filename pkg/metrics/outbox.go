package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outbox publish outcomes.
const (
	OutboxPublished    = "published"
	OutboxRetried      = "retried"
	OutboxDeadLettered = "dead_lettered"
)

// OutboxMetrics follows domain events from the outbox table to Pub/Sub.
type OutboxMetrics struct {
	publishes   *prometheus.CounterVec
	deadLetters *prometheus.GaugeVec
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	m := &OutboxMetrics{
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_publish_total",
			Help:      "Outbox publish attempts by event type and outcome.",
		}, []string{"event_type", "outcome"}),
		deadLetters: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outbox_dead_letters",
			Help:      "Dead-lettered outbox rows inside the watch window, by reason.",
		}, []string{"reason"}),
	}
	reg.MustRegister(m.publishes, m.deadLetters)
	return m
}

func (m *OutboxMetrics) IncPublish(eventType, outcome string) {
	if m == nil || m.publishes == nil {
		return
	}
	m.publishes.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

// SetDeadLetters replaces the dead-letter gauge with counts. Reasons absent from counts are zeroed.
func (m *OutboxMetrics) SetDeadLetters(counts map[string]int64, reasons []string) {
	if m == nil || m.deadLetters == nil {
		return
	}
	for _, reason := range reasons {
		m.deadLetters.WithLabelValues(normalizeLabel(reason)).Set(float64(counts[reason]))
	}
}
