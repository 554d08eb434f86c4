package cron

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naijamall/naijamall-backend/internal/payments"
	"github.com/naijamall/naijamall-backend/pkg/db/dbtest"
	"github.com/naijamall/naijamall-backend/pkg/db/models"
	"github.com/naijamall/naijamall-backend/pkg/enums"
	pkgerrors "github.com/naijamall/naijamall-backend/pkg/errors"
	"github.com/naijamall/naijamall-backend/pkg/metrics"
	"github.com/naijamall/naijamall-backend/pkg/outbox"
)

type fakePaymentReader struct {
	stuck  []models.Payment
	held   []models.Payment
	cutoff time.Time
}

func (f *fakePaymentReader) ListStuckProcessing(_ context.Context, cutoff time.Time, _ int) ([]models.Payment, error) {
	f.cutoff = cutoff
	return f.stuck, nil
}

func (f *fakePaymentReader) ListHeldSince(_ context.Context, cutoff time.Time, _ int) ([]models.Payment, error) {
	f.cutoff = cutoff
	return f.held, nil
}

type fakeVerifier struct {
	results map[string]enums.PaymentStatus
	errs    map[string]error
	calls   []string
}

func (f *fakeVerifier) VerifyPayment(_ context.Context, reference string) (*payments.PaymentDTO, error) {
	f.calls = append(f.calls, reference)
	if err := f.errs[reference]; err != nil {
		return nil, err
	}
	return &payments.PaymentDTO{Reference: reference, Status: f.results[reference]}, nil
}

func TestPaymentReconcileVerifiesStuckPayments(t *testing.T) {
	now := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	reader := &fakePaymentReader{stuck: []models.Payment{
		{Reference: "PAY-1"}, {Reference: "PAY-2"}, {Reference: "PAY-3"}, {Reference: "PAY-4"},
	}}
	verifier := &fakeVerifier{
		results: map[string]enums.PaymentStatus{
			"PAY-1": enums.PaymentStatusHeldInEscrow,
			"PAY-2": enums.PaymentStatusFailed,
			"PAY-3": enums.PaymentStatusProcessing,
		},
		errs: map[string]error{"PAY-4": pkgerrors.New(pkgerrors.CodeGateway, "paystack unavailable")},
	}
	reg := prometheus.NewRegistry()
	jobIface, err := NewPaymentReconcileJob(PaymentReconcileJobParams{
		Logger:   testLogger(),
		Reader:   reader,
		Verifier: verifier,
		Metrics:  metrics.NewPaymentMetrics(reg),
		After:    time.Hour,
	})
	require.NoError(t, err)
	job := jobIface.(*paymentReconcileJob)
	job.now = func() time.Time { return now }

	err = job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PAY-4")
	assert.Equal(t, now.Add(-time.Hour), reader.cutoff)
	assert.Equal(t, []string{"PAY-1", "PAY-2", "PAY-3", "PAY-4"}, verifier.calls)

	families, err := reg.Gather()
	require.NoError(t, err)
	outcomes := map[string]float64{}
	for _, family := range families {
		if family.GetName() != "naijamall_payment_reconcile_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			outcomes[metric.GetLabel()[0].GetValue()] = metric.GetCounter().GetValue()
		}
	}
	assert.Equal(t, map[string]float64{"held": 1, "failed": 1, "pending": 1, "error": 1}, outcomes)
}

func TestEscrowAgingEmitsOneEventPerPayment(t *testing.T) {
	client := dbtest.Client(t)
	events := outbox.NewService(outbox.NewRepository(client.DB()), nil)
	now := time.Date(2026, 5, 20, 8, 0, 0, 0, time.UTC)
	heldAt := now.Add(-10 * 24 * time.Hour)
	reader := &fakePaymentReader{held: []models.Payment{
		{ID: uuid.New(), OrderID: uuid.New(), EscrowHeldAt: &heldAt},
		{ID: uuid.New(), OrderID: uuid.New(), EscrowHeldAt: &heldAt},
	}}
	reg := prometheus.NewRegistry()
	jobIface, err := NewEscrowAgingJob(EscrowAgingJobParams{
		Logger:  testLogger(),
		DB:      client,
		Reader:  reader,
		Outbox:  events,
		Metrics: metrics.NewPaymentMetrics(reg),
	})
	require.NoError(t, err)
	job := jobIface.(*escrowAgingJob)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, now.Add(-defaultStaleEscrowAfter), reader.cutoff)

	var rows []models.OutboxEvent
	require.NoError(t, client.DB().Where("event_type = ?", enums.EventEscrowStale).Find(&rows).Error)
	assert.Len(t, rows, 2)

	families, err := reg.Gather()
	require.NoError(t, err)
	var stale float64
	for _, family := range families {
		if family.GetName() == "naijamall_escrow_stale_payments" {
			stale = family.GetMetric()[0].GetGauge().GetValue()
		}
	}
	assert.Equal(t, float64(2), stale)
}

func TestJobConstructorsRequireCollaborators(t *testing.T) {
	_, err := NewPaymentReconcileJob(PaymentReconcileJobParams{Logger: testLogger(), Reader: &fakePaymentReader{}})
	assert.Error(t, err)
	_, err = NewEscrowAgingJob(EscrowAgingJobParams{Logger: testLogger(), DB: passthroughTx{}, Reader: &fakePaymentReader{}})
	assert.Error(t, err)
	_, err = NewOutboxRetentionJob(OutboxRetentionJobParams{DB: passthroughTx{}})
	assert.Error(t, err)
}
