package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/naijamall/naijamall-backend/internal/payments"
	"github.com/naijamall/naijamall-backend/pkg/db/models"
	"github.com/naijamall/naijamall-backend/pkg/enums"
	"github.com/naijamall/naijamall-backend/pkg/logger"
	"github.com/naijamall/naijamall-backend/pkg/metrics"
)

const (
	defaultReconcileAfter = 30 * time.Minute
	reconcileBatchSize    = 100
)

// PaymentReconcileJobParams configure the stuck-payment reconciler.
type PaymentReconcileJobParams struct {
	Logger   *logger.Logger
	Reader   stuckPaymentReader
	Verifier paymentVerifier
	Metrics  *metrics.PaymentMetrics
	After    time.Duration
}

type stuckPaymentReader interface {
	ListStuckProcessing(ctx context.Context, cutoff time.Time, limit int) ([]models.Payment, error)
}

type paymentVerifier interface {
	VerifyPayment(ctx context.Context, reference string) (*payments.PaymentDTO, error)
}

// NewPaymentReconcileJob re-verifies payments whose checkout never reported back.
func NewPaymentReconcileJob(params PaymentReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("payment reader required")
	}
	if params.Verifier == nil {
		return nil, fmt.Errorf("payment verifier required")
	}
	after := params.After
	if after <= 0 {
		after = defaultReconcileAfter
	}
	return &paymentReconcileJob{
		logg:     params.Logger,
		reader:   params.Reader,
		verifier: params.Verifier,
		metrics:  params.Metrics,
		after:    after,
		now:      time.Now,
	}, nil
}

type paymentReconcileJob struct {
	logg     *logger.Logger
	reader   stuckPaymentReader
	verifier paymentVerifier
	metrics  *metrics.PaymentMetrics
	after    time.Duration
	now      func() time.Time
}

func (j *paymentReconcileJob) Name() string { return "payment-reconcile" }

func (j *paymentReconcileJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.after)
	stuck, err := j.reader.ListStuckProcessing(ctx, cutoff, reconcileBatchSize)
	if err != nil {
		return fmt.Errorf("query stuck payments: %w", err)
	}

	var errs error
	outcomes := map[string]int{}
	for _, payment := range stuck {
		outcome, err := j.reconcile(ctx, payment)
		outcomes[outcome]++
		j.metrics.RecordReconcile(outcome)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("reconcile %s: %w", payment.Reference, err))
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":   cutoff,
		"checked":  len(stuck),
		"outcomes": outcomes,
	})
	j.logg.Info(logCtx, "payment reconcile complete")
	return errs
}

func (j *paymentReconcileJob) reconcile(ctx context.Context, payment models.Payment) (string, error) {
	dto, err := j.verifier.VerifyPayment(ctx, payment.Reference)
	if err != nil {
		return "error", err
	}
	switch dto.Status {
	case enums.PaymentStatusHeldInEscrow:
		return "held", nil
	case enums.PaymentStatusFailed:
		return "failed", nil
	case enums.PaymentStatusProcessing, enums.PaymentStatusPending:
		return "pending", nil
	}
	return "settled", nil
}
