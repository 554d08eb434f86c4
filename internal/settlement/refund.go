package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/naijamall/naijamall-backend/pkg/db/models"
	"github.com/naijamall/naijamall-backend/pkg/enums"
	pkgerrors "github.com/naijamall/naijamall-backend/pkg/errors"
	"github.com/naijamall/naijamall-backend/pkg/outbox"
	"github.com/naijamall/naijamall-backend/pkg/outbox/payloads"
	"github.com/naijamall/naijamall-backend/pkg/paystack"
)

// Refunder returns captured funds at the payment gateway.
type Refunder interface {
	Refund(ctx context.Context, req paystack.RefundRequest) (*paystack.RefundResult, error)
}

// RefundInput names who asked for the refund and why.
type RefundInput struct {
	Reason    string
	ActorID   uuid.UUID
	ActorRole enums.Role
}

// Refund returns the full escrowed amount to the buyer. The gateway is called inside tx so a
// failed refund leaves every row untouched. The caller owns the order status change.
func (e *Engine) Refund(ctx context.Context, tx *gorm.DB, order *models.Order, payment *models.Payment, input RefundInput) error {
	if tx == nil {
		return fmt.Errorf("transaction required")
	}
	if order == nil || payment == nil {
		return fmt.Errorf("order and payment required")
	}
	if e.gateway == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "payment gateway not configured")
	}
	if !payment.EscrowStatus.CanAdvanceTo(enums.EscrowRefundedToBuyer) {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, "escrow is not held").
			WithDetails(map[string]any{"escrow_status": payment.EscrowStatus})
	}

	started := time.Now()
	refund, err := e.gateway.Refund(ctx, paystack.RefundRequest{
		Reference: payment.Reference,
		Amount:    payment.Amount,
		Reason:    input.Reason,
	})
	e.metrics.ObserveGatewayCall("refund", time.Since(started), err)
	if err != nil {
		return err
	}

	now := e.now().UTC()
	reason := input.Reason
	res := tx.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND escrow_status = ?", payment.ID, enums.EscrowHeld).
		Updates(map[string]any{
			"status":             enums.PaymentStatusRefunded,
			"escrow_status":      enums.EscrowRefundedToBuyer,
			"refund_amount":      payment.Amount,
			"refund_reason":      reason,
			"refund_refunded_at": now,
			"refund_reference":   refund.RefundReference,
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "record refund")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, "escrow is not held")
	}

	payment.Status = enums.PaymentStatusRefunded
	payment.EscrowStatus = enums.EscrowRefundedToBuyer
	refundRef := refund.RefundReference
	payment.Refund = models.PaymentRefund{
		Amount:     nullDecimal(payment.Amount),
		Reason:     &reason,
		RefundedAt: &now,
		Reference:  &refundRef,
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventPaymentRefunded,
		AggregateType: enums.AggregatePayment,
		AggregateID:   payment.ID,
		Data: payloads.PaymentEvent{
			PaymentID: payment.ID,
			OrderID:   order.ID,
			Reference: payment.Reference,
			Amount:    payment.Amount.StringFixed(2),
			Status:    string(payment.Status),
			Reason:    reason,
		},
	}
	if input.ActorID != uuid.Nil {
		event.Actor = &outbox.ActorRef{UserID: input.ActorID, Role: string(input.ActorRole)}
	}
	if err := e.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payment refunded")
	}
	return nil
}
