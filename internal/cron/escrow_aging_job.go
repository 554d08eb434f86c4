package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/naijamall/naijamall-backend/pkg/db/models"
	"github.com/naijamall/naijamall-backend/pkg/enums"
	"github.com/naijamall/naijamall-backend/pkg/logger"
	"github.com/naijamall/naijamall-backend/pkg/metrics"
	"github.com/naijamall/naijamall-backend/pkg/outbox"
	"github.com/naijamall/naijamall-backend/pkg/outbox/payloads"
)

const (
	defaultStaleEscrowAfter = 7 * 24 * time.Hour
	escrowAgingBatchSize    = 500
)

// EscrowAgingJobParams configure the stale escrow reporter.
type EscrowAgingJobParams struct {
	Logger  *logger.Logger
	DB      txRunner
	Reader  heldEscrowReader
	Outbox  outboxEmitter
	Metrics *metrics.PaymentMetrics
	After   time.Duration
}

type heldEscrowReader interface {
	ListHeldSince(ctx context.Context, cutoff time.Time, limit int) ([]models.Payment, error)
}

// NewEscrowAgingJob reports escrows held longer than After. It never releases funds.
func NewEscrowAgingJob(params EscrowAgingJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("escrow reader required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	after := params.After
	if after <= 0 {
		after = defaultStaleEscrowAfter
	}
	return &escrowAgingJob{
		logg:    params.Logger,
		db:      params.DB,
		reader:  params.Reader,
		outbox:  params.Outbox,
		metrics: params.Metrics,
		after:   after,
		now:     time.Now,
	}, nil
}

type escrowAgingJob struct {
	logg    *logger.Logger
	db      txRunner
	reader  heldEscrowReader
	outbox  outboxEmitter
	metrics *metrics.PaymentMetrics
	after   time.Duration
	now     func() time.Time
}

func (j *escrowAgingJob) Name() string { return "escrow-aging" }

func (j *escrowAgingJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	cutoff := now.Add(-j.after)
	stale, err := j.reader.ListHeldSince(ctx, cutoff, escrowAgingBatchSize)
	if err != nil {
		return fmt.Errorf("query held escrows: %w", err)
	}
	j.metrics.SetStaleEscrow(len(stale))

	var errs error
	emitted := 0
	for _, payment := range stale {
		ok, err := j.report(ctx, payment, now)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("report stale escrow %s: %w", payment.ID, err))
			continue
		}
		if ok {
			emitted++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":        cutoff,
		"stale_escrows": len(stale),
		"events_queued": emitted,
	})
	if len(stale) > 0 {
		j.logg.Warn(logCtx, "escrows held past release window")
	} else {
		j.logg.Info(logCtx, "escrow aging complete")
	}
	return errs
}

func (j *escrowAgingJob) report(ctx context.Context, payment models.Payment, now time.Time) (bool, error) {
	if payment.EscrowHeldAt == nil {
		return false, nil
	}
	heldAt := *payment.EscrowHeldAt
	var emitted bool
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := j.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventEscrowStale,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Data: payloads.EscrowStaleEvent{
				PaymentID:    payment.ID,
				OrderID:      payment.OrderID,
				EscrowHeldAt: heldAt,
				HeldFor:      now.Sub(heldAt).Truncate(time.Minute).String(),
			},
		})
		emitted = ok
		return err
	})
	return emitted, err
}
