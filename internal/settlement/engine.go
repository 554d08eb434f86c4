package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/naijamall/naijamall-backend/pkg/db/models"
	"github.com/naijamall/naijamall-backend/pkg/enums"
	pkgerrors "github.com/naijamall/naijamall-backend/pkg/errors"
	"github.com/naijamall/naijamall-backend/pkg/logger"
	"github.com/naijamall/naijamall-backend/pkg/metrics"
	"github.com/naijamall/naijamall-backend/pkg/outbox"
	"github.com/naijamall/naijamall-backend/pkg/outbox/payloads"
)

const (
	ReasonBuyerConfirmed = "Buyer confirmed delivery"
	ReasonAdminRelease   = "Released by admin"
)

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ReleaseInput names who triggered the release and why.
type ReleaseInput struct {
	Reason    string
	ActorID   uuid.UUID
	ActorRole enums.Role
}

// Engine persists settlements. It never opens its own transaction.
type Engine struct {
	outbox  outboxPublisher
	gateway Refunder
	metrics *metrics.PaymentMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewEngine wires the settlement engine. gateway may be nil when refunds are not needed.
func NewEngine(outbox outboxPublisher, gateway Refunder, m *metrics.PaymentMetrics, logg *logger.Logger) (*Engine, error) {
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &Engine{outbox: outbox, gateway: gateway, metrics: m, logg: logg, now: time.Now}, nil
}

// Release settles payment for order inside tx. The payment must be held in escrow, which makes a
// second release for the same payment fail with INVALID_TRANSITION. Cancelled and refunded orders
// never pay out.
func (e *Engine) Release(ctx context.Context, tx *gorm.DB, order *models.Order, payment *models.Payment, input ReleaseInput) (*Result, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if order == nil || payment == nil {
		return nil, fmt.Errorf("order and payment required")
	}
	if order.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "order is closed").
			WithDetails(map[string]any{"status": order.Status})
	}
	if payment.EscrowStatus != enums.EscrowHeld {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "escrow is not held").
			WithDetails(map[string]any{"escrow_status": payment.EscrowStatus})
	}

	result, err := Compute(order, payment)
	if err != nil {
		e.logReconcileFailure(ctx, order, err)
		return nil, err
	}

	reason := input.Reason
	if reason == "" {
		reason = ReasonBuyerConfirmed
	}
	now := e.now().UTC()

	rows := make([]models.PaymentDistribution, 0, len(result.Lines))
	for _, line := range result.Lines {
		paidAt := now
		rows = append(rows, models.PaymentDistribution{
			PaymentID:     payment.ID,
			RecipientID:   line.RecipientID,
			RecipientType: line.RecipientType,
			Amount:        line.Amount,
			Status:        enums.DistributionCompleted,
			PaidAt:        &paidAt,
		})
	}
	if err := tx.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write distribution")
	}

	updates := map[string]any{
		"status":                     enums.PaymentStatusReleased,
		"escrow_status":              enums.EscrowReleasedToSellers,
		"escrow_released_at":         now,
		"escrow_release_reason":      reason,
		"fee_escrow_fee":             result.EscrowFee,
		"fee_market_procurement_fee": result.MarketProcurementFee,
		"fee_seller_commission":      result.SellerCommission,
		"fee_rider_fee":              result.RiderFee,
		"fee_platform_total":         result.PlatformTotal,
	}
	res := tx.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND escrow_status = ?", payment.ID, enums.EscrowHeld).
		Updates(updates)
	if res.Error != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "release escrow")
	}
	if res.RowsAffected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "escrow is not held")
	}

	if err := tx.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", order.ID).
		Update("payment_status", enums.OrderPaymentReleased).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order released")
	}

	payment.Status = enums.PaymentStatusReleased
	payment.EscrowStatus = enums.EscrowReleasedToSellers
	payment.EscrowReleasedAt = &now
	payment.EscrowReleaseReason = &reason
	payment.Distribution = rows
	payment.Fees = models.PaymentFees{
		EscrowFee:            nullDecimal(result.EscrowFee),
		MarketProcurementFee: nullDecimal(result.MarketProcurementFee),
		SellerCommission:     nullDecimal(result.SellerCommission),
		RiderFee:             nullDecimal(result.RiderFee),
		PlatformTotal:        nullDecimal(result.PlatformTotal),
	}
	order.PaymentStatus = enums.OrderPaymentReleased

	distribution := make([]payloads.DistributionLine, 0, len(result.Lines))
	for _, line := range result.Lines {
		distribution = append(distribution, payloads.DistributionLine{
			RecipientID:   line.RecipientID,
			RecipientType: string(line.RecipientType),
			Amount:        line.Amount.StringFixed(2),
		})
	}
	event := outbox.DomainEvent{
		EventType:     enums.EventEscrowReleased,
		AggregateType: enums.AggregatePayment,
		AggregateID:   payment.ID,
		Data: payloads.EscrowReleasedEvent{
			PaymentID:    payment.ID,
			OrderID:      order.ID,
			Amount:       payment.Amount.StringFixed(2),
			Reason:       reason,
			Distribution: distribution,
		},
	}
	if input.ActorID != uuid.Nil {
		event.Actor = &outbox.ActorRef{UserID: input.ActorID, Role: string(input.ActorRole)}
	}
	if err := e.outbox.Emit(ctx, tx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit escrow released")
	}

	e.metrics.RecordEscrowRelease(reasonLabel(input.ActorRole), payment.Amount)
	return result, nil
}

func (e *Engine) logReconcileFailure(ctx context.Context, order *models.Order, err error) {
	if e.logg == nil {
		return
	}
	fields := map[string]any{"order_id": order.ID.String()}
	if typed := pkgerrors.As(err); typed != nil {
		if mismatch, ok := typed.Details().(Mismatch); ok {
			fields["expected"] = mismatch.Expected.String()
			fields["computed"] = mismatch.Computed.String()
			fields["payment_id"] = mismatch.PaymentID.String()
		}
	}
	e.logg.Error(e.logg.WithFields(ctx, fields), "settlement reconciliation failed", err)
}

func reasonLabel(role enums.Role) string {
	if role.IsAdmin() {
		return "admin"
	}
	return "buyer_confirmed"
}

func nullDecimal(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}
