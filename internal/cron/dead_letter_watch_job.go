package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/naijamall/naijamall-backend/pkg/enums"
	"github.com/naijamall/naijamall-backend/pkg/logger"
	"github.com/naijamall/naijamall-backend/pkg/metrics"
)

const defaultDeadLetterWindow = 24 * time.Hour

type DeadLetterWatchJobParams struct {
	Logger  *logger.Logger
	Counter deadLetterCounter
	Metrics *metrics.OutboxMetrics
	Window  time.Duration
}

type deadLetterCounter interface {
	CountByReasonSince(ctx context.Context, since time.Time) (map[enums.OutboxDLQErrorReason]int64, error)
}

// NewDeadLetterWatchJob exports how many outbox rows were dead-lettered inside Window and warns
// when any were.
func NewDeadLetterWatchJob(params DeadLetterWatchJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Counter == nil {
		return nil, fmt.Errorf("dead-letter counter required")
	}
	window := params.Window
	if window <= 0 {
		window = defaultDeadLetterWindow
	}
	return &deadLetterWatchJob{
		logg:    params.Logger,
		counter: params.Counter,
		metrics: params.Metrics,
		window:  window,
		now:     time.Now,
	}, nil
}

type deadLetterWatchJob struct {
	logg    *logger.Logger
	counter deadLetterCounter
	metrics *metrics.OutboxMetrics
	window  time.Duration
	now     func() time.Time
}

func (j *deadLetterWatchJob) Name() string { return "outbox-dead-letter-watch" }

func (j *deadLetterWatchJob) Run(ctx context.Context) error {
	since := j.now().UTC().Add(-j.window)
	counts, err := j.counter.CountByReasonSince(ctx, since)
	if err != nil {
		return fmt.Errorf("count dead letters: %w", err)
	}

	reasons := enums.OutboxDLQErrorReasons()
	labels := make([]string, 0, len(reasons))
	byLabel := make(map[string]int64, len(reasons))
	fields := map[string]any{"window": j.window.String()}
	var total int64
	for _, reason := range reasons {
		labels = append(labels, reason.String())
		byLabel[reason.String()] = counts[reason]
		fields[reason.String()] = counts[reason]
		total += counts[reason]
	}
	j.metrics.SetDeadLetters(byLabel, labels)

	logCtx := j.logg.WithFields(ctx, fields)
	if total > 0 {
		j.logg.Warn(logCtx, "outbox events were dead-lettered")
		return nil
	}
	j.logg.Info(logCtx, "no dead-lettered outbox events")
	return nil
}
