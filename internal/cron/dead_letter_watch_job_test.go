package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naijamall/naijamall-backend/pkg/enums"
	"github.com/naijamall/naijamall-backend/pkg/metrics"
)

type fakeDeadLetterCounter struct {
	counts map[enums.OutboxDLQErrorReason]int64
	err    error
	since  time.Time
}

func (f *fakeDeadLetterCounter) CountByReasonSince(_ context.Context, since time.Time) (map[enums.OutboxDLQErrorReason]int64, error) {
	f.since = since
	return f.counts, f.err
}

func TestDeadLetterWatchExportsCounts(t *testing.T) {
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	counter := &fakeDeadLetterCounter{counts: map[enums.OutboxDLQErrorReason]int64{
		enums.OutboxDLQReasonMaxAttempts: 3,
	}}
	reg := prometheus.NewRegistry()
	jobIface, err := NewDeadLetterWatchJob(DeadLetterWatchJobParams{
		Logger:  testLogger(),
		Counter: counter,
		Metrics: metrics.NewOutboxMetrics(reg),
		Window:  6 * time.Hour,
	})
	require.NoError(t, err)
	job := jobIface.(*deadLetterWatchJob)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, now.Add(-6*time.Hour), counter.since)

	families, err := reg.Gather()
	require.NoError(t, err)
	gauges := map[string]float64{}
	for _, family := range families {
		if family.GetName() != "naijamall_outbox_dead_letters" {
			continue
		}
		for _, metric := range family.GetMetric() {
			gauges[metric.GetLabel()[0].GetValue()] = metric.GetGauge().GetValue()
		}
	}
	assert.Equal(t, map[string]float64{"max_attempts": 3, "non_retryable": 0}, gauges)
}

func TestDeadLetterWatchPropagatesCountError(t *testing.T) {
	jobIface, err := NewDeadLetterWatchJob(DeadLetterWatchJobParams{
		Logger:  testLogger(),
		Counter: &fakeDeadLetterCounter{err: errors.New("db down")},
	})
	require.NoError(t, err)
	assert.ErrorContains(t, jobIface.Run(context.Background()), "db down")
	assert.Equal(t, "outbox-dead-letter-watch", jobIface.Name())
}
