package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxMetricsCountsOutcomesAndDeadLetters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)

	m.IncPublish("payment_held", OutboxPublished)
	m.IncPublish("payment_held", OutboxRetried)
	m.IncPublish("escrow_released", OutboxDeadLettered)
	reasons := []string{"max_attempts", "non_retryable"}
	m.SetDeadLetters(map[string]int64{"max_attempts": 4, "non_retryable": 1}, reasons)
	m.SetDeadLetters(map[string]int64{"max_attempts": 2}, reasons)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	published, err := fetchCounterValue(mfs, "naijamall_outbox_publish_total", "outcome", OutboxPublished)
	require.NoError(t, err)
	assert.Equal(t, float64(1), published)

	dead, err := fetchCounterValue(mfs, "naijamall_outbox_publish_total", "event_type", "escrow_released")
	require.NoError(t, err)
	assert.Equal(t, float64(1), dead)

	maxAttempts, err := fetchGaugeValue(mfs, "naijamall_outbox_dead_letters", "reason", "max_attempts")
	require.NoError(t, err)
	assert.Equal(t, float64(2), maxAttempts)

	nonRetryable, err := fetchGaugeValue(mfs, "naijamall_outbox_dead_letters", "reason", "non_retryable")
	require.NoError(t, err)
	assert.Zero(t, nonRetryable)
}
