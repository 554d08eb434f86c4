package payments

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/naijamall/naijamall-backend/internal/orders"
	"github.com/naijamall/naijamall-backend/internal/settlement"
	"github.com/naijamall/naijamall-backend/pkg/db/models"
	"github.com/naijamall/naijamall-backend/pkg/enums"
	pkgerrors "github.com/naijamall/naijamall-backend/pkg/errors"
	"github.com/naijamall/naijamall-backend/pkg/logger"
	"github.com/naijamall/naijamall-backend/pkg/metrics"
	"github.com/naijamall/naijamall-backend/pkg/outbox"
	"github.com/naijamall/naijamall-backend/pkg/outbox/payloads"
	"github.com/naijamall/naijamall-backend/pkg/pagination"
	"github.com/naijamall/naijamall-backend/pkg/paystack"
)

const (
	gatewayName           = "paystack"
	defaultGatewayTimeout = 15 * time.Second
	defaultRefundReason   = "Refunded by admin"

	closedOrderRefundReason = "Order closed before payment cleared"
)

// settledStatuses never go back to the gateway.
var settledStatuses = []enums.PaymentStatus{
	enums.PaymentStatusHeldInEscrow,
	enums.PaymentStatusReleased,
	enums.PaymentStatusRefunded,
}

// Service is the escrow ledger.
type Service interface {
	InitializePayment(ctx context.Context, orderID uuid.UUID, buyer orders.Viewer) (*PaymentDTO, error)
	VerifyPayment(ctx context.Context, reference string) (*PaymentDTO, error)
	RefundPayment(ctx context.Context, input RefundInput) (*PaymentDTO, error)
	ReleaseEscrow(ctx context.Context, input ReleaseInput) (*PaymentDTO, error)
	GetPayment(ctx context.Context, paymentID uuid.UUID, viewer orders.Viewer) (*PaymentDTO, error)
	ListMyPayments(ctx context.Context, viewer orders.Viewer, params pagination.Params) (*PaymentList, error)
}

// RefundInput is an admin returning held funds to the buyer.
type RefundInput struct {
	PaymentID uuid.UUID
	ActorID   uuid.UUID
	ActorRole enums.Role
	Reason    string
}

// ReleaseInput is an admin settling a delivered order's escrow without buyer confirmation.
type ReleaseInput struct {
	PaymentID uuid.UUID
	ActorID   uuid.UUID
	ActorRole enums.Role
	Reason    string
}

// ServiceParams wires the ledger. Metrics and Logger may be nil.
type ServiceParams struct {
	Repo      *Repository
	Orders    orders.Repository
	Tx        txRunner
	Outbox    outboxPublisher
	Gateway   Gateway
	Escrow    orders.Escrow
	Lifecycle OrderLifecycle
	Users     UserLookup
	Metrics   *metrics.PaymentMetrics
	Logger    *logger.Logger
	// Timeout bounds each gateway call. Zero means 15s.
	Timeout time.Duration
}

type service struct {
	repo      *Repository
	orders    orders.Repository
	tx        txRunner
	outbox    outboxPublisher
	gateway   Gateway
	escrow    orders.Escrow
	lifecycle OrderLifecycle
	users     UserLookup
	metrics   *metrics.PaymentMetrics
	logg      *logger.Logger
	timeout   time.Duration
	now       func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("payments repository required")
	case params.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	case params.Gateway == nil:
		return nil, fmt.Errorf("payment gateway required")
	case params.Escrow == nil:
		return nil, fmt.Errorf("escrow engine required")
	case params.Lifecycle == nil:
		return nil, fmt.Errorf("order lifecycle required")
	case params.Users == nil:
		return nil, fmt.Errorf("user lookup required")
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}
	return &service{
		repo:      params.Repo,
		orders:    params.Orders,
		tx:        params.Tx,
		outbox:    params.Outbox,
		gateway:   params.Gateway,
		escrow:    params.Escrow,
		lifecycle: params.Lifecycle,
		users:     params.Users,
		metrics:   params.Metrics,
		logg:      params.Logger,
		timeout:   timeout,
		now:       time.Now,
	}, nil
}

// NewReference returns a payment reference unique per attempt: PAY-<unix millis>-<4 digits>.
func NewReference(at time.Time) string {
	return fmt.Sprintf("PAY-%d-%04d", at.UnixMilli(), rand.IntN(10000))
}

func (s *service) InitializePayment(ctx context.Context, orderID uuid.UUID, buyer orders.Viewer) (*PaymentDTO, error) {
	if buyer.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, mapOrderError(err)
	}
	if err := checkPayable(order, buyer.UserID); err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, buyer.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load buyer")
	}

	var payment *models.Payment
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		locked, err := s.orders.WithTx(tx).FindForUpdate(ctx, orderID)
		if err != nil {
			return mapOrderError(err)
		}
		if err := checkPayable(locked, buyer.UserID); err != nil {
			return err
		}
		payment, err = s.arm(ctx, tx, locked)
		if err != nil {
			return err
		}
		return s.emit(ctx, tx, enums.EventPaymentInitialized, payment, "", &outbox.ActorRef{UserID: buyer.UserID, Role: string(buyer.Role)})
	})
	if err != nil {
		return nil, err
	}

	ctx = s.scope(ctx, order.ID, payment.Reference)
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	started := s.now()
	result, gwErr := s.gateway.Initialize(callCtx, paystack.InitializeRequest{
		Email:     user.Email,
		Amount:    payment.Amount,
		Reference: payment.Reference,
		Metadata: map[string]string{
			"order_id":     order.ID.String(),
			"order_number": order.OrderNumber,
		},
	})
	s.metrics.ObserveGatewayCall("initialize", s.now().Sub(started), gwErr)
	if gwErr != nil {
		s.logError(ctx, "paystack initialize failed", gwErr)
		if err := s.markFailed(ctx, payment, gwErr.Error(), nil); err != nil {
			s.logError(ctx, "record initialize failure", err)
		}
		return nil, gatewayError(gwErr, "initialize payment")
	}

	updates := map[string]any{
		"status":            enums.PaymentStatusProcessing,
		"authorization_url": result.AuthorizationURL,
		"access_code":       result.AccessCode,
	}
	if result.Reference != "" {
		updates["gateway_reference"] = result.Reference
	}
	if _, err := s.repo.UpdateIf(ctx, payment.ID, []enums.PaymentStatus{enums.PaymentStatusPending}, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record authorization")
	}
	return s.load(ctx, payment.ID)
}

// arm creates the order's payment or resets an unsettled one with a fresh reference. Every issued
// reference is kept as an attempt.
func (s *service) arm(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.Payment, error) {
	reference := NewReference(s.now())
	existing, err := s.orders.WithTx(tx).FindPaymentForUpdate(ctx, order.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if existing == nil {
		payment := &models.Payment{
			OrderID:       order.ID,
			BuyerID:       order.BuyerID,
			Amount:        order.TotalAmount,
			PaymentMethod: order.PaymentMethod,
			Gateway:       gatewayName,
			Reference:     reference,
			Status:        enums.PaymentStatusPending,
			EscrowStatus:  enums.EscrowNotStarted,
		}
		if err := s.repo.WithTx(tx).Create(ctx, payment); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
		}
		if err := s.repo.WithTx(tx).RecordAttempt(ctx, payment.ID, reference); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment attempt")
		}
		return payment, nil
	}
	if existing.EscrowStatus != enums.EscrowNotStarted {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order already paid").
			WithDetails(map[string]any{"payment_status": existing.Status})
	}
	ok, err := s.repo.WithTx(tx).UpdateIf(ctx, existing.ID, []enums.PaymentStatus{
		enums.PaymentStatusPending,
		enums.PaymentStatusProcessing,
		enums.PaymentStatusFailed,
	}, map[string]any{
		"reference":         reference,
		"amount":            order.TotalAmount,
		"status":            enums.PaymentStatusPending,
		"gateway_reference": nil,
		"authorization_url": nil,
		"access_code":       nil,
		"failure_reason":    nil,
		"failed_at":         nil,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "re-arm payment")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order already paid")
	}
	if err := s.repo.WithTx(tx).RecordAttempt(ctx, existing.ID, reference); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment attempt")
	}
	existing.Reference = reference
	existing.Amount = order.TotalAmount
	existing.Status = enums.PaymentStatusPending
	existing.FailureReason = nil
	existing.FailedAt = nil
	return existing, nil
}

func checkPayable(order *models.Order, buyerID uuid.UUID) error {
	if order.BuyerID != buyerID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer can pay for this order")
	}
	if order.Status == enums.OrderStatusCancelled || order.Status == enums.OrderStatusRefunded {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order is closed").
			WithDetails(map[string]any{"status": order.Status})
	}
	if order.PaymentStatus != enums.OrderPaymentPending {
		return pkgerrors.New(pkgerrors.CodeConflict, "order already paid").
			WithDetails(map[string]any{"payment_status": order.PaymentStatus})
	}
	return nil
}

// VerifyPayment asks the gateway about reference and records the outcome once. Settled payments
// are returned as they are. A reference from an earlier checkout attempt can still settle the
// payment but never marks the current attempt failed.
func (s *service) VerifyPayment(ctx context.Context, reference string) (*PaymentDTO, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference is required")
	}
	payment, err := s.repo.FindByReference(ctx, reference)
	if err != nil {
		return nil, mapPaymentError(err)
	}
	if isSettled(payment.Status) {
		return FromModel(payment), nil
	}
	ctx = s.scope(ctx, payment.OrderID, reference)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	started := s.now()
	result, err := s.gateway.Verify(callCtx, reference)
	s.metrics.ObserveGatewayCall("verify", s.now().Sub(started), err)
	if err != nil {
		s.logError(ctx, "paystack verify failed", err)
		return nil, gatewayError(err, "verify payment")
	}

	superseded := reference != payment.Reference
	switch {
	case !result.Settled():
		s.logInfo(ctx, "payment still pending at gateway", map[string]any{"gateway_status": result.Status})
		return FromModel(payment), nil
	case superseded && !result.Succeeded():
		s.logInfo(ctx, "earlier checkout attempt did not succeed", map[string]any{"gateway_status": result.Status})
		return FromModel(payment), nil
	case !result.Succeeded():
		reason := result.GatewayResponse
		if reason == "" {
			reason = "transaction " + result.Status
		}
		if err := s.markFailed(ctx, payment, reason, result.Raw); err != nil {
			return nil, err
		}
	case !result.Amount.Equal(payment.Amount):
		s.logInfo(ctx, "gateway amount mismatch", map[string]any{
			"expected": payment.Amount.StringFixed(2),
			"paid":     result.Amount.StringFixed(2),
		})
		if superseded {
			return FromModel(payment), nil
		}
		if err := s.markFailed(ctx, payment, fmt.Sprintf("amount mismatch: paid %s, expected %s", result.Amount.StringFixed(2), payment.Amount.StringFixed(2)), result.Raw); err != nil {
			return nil, err
		}
	default:
		if err := s.hold(ctx, payment, reference, result); err != nil {
			return nil, err
		}
	}
	return s.load(ctx, payment.ID)
}

// hold moves a verified payment into escrow and confirms its order. reference is the attempt the
// buyer paid with and becomes the payment's reference. Funds that clear after the order was closed
// are refunded in the same transaction.
func (s *service) hold(ctx context.Context, payment *models.Payment, reference string, result *paystack.VerifyResult) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.orders.WithTx(tx).FindForUpdate(ctx, payment.OrderID)
		if err != nil {
			return mapOrderError(err)
		}
		locked, err := s.orders.WithTx(tx).FindPaymentForUpdate(ctx, order.ID)
		if err != nil {
			return mapPaymentError(err)
		}
		if isSettled(locked.Status) {
			return nil
		}
		if locked.Reference != reference {
			known, err := s.isAttempt(ctx, tx, locked.ID, reference)
			if err != nil {
				return err
			}
			if !known {
				return nil
			}
		}
		now := s.now().UTC()
		updates := map[string]any{
			"status":         enums.PaymentStatusHeldInEscrow,
			"escrow_status":  enums.EscrowHeld,
			"escrow_held_at": now,
			"failure_reason": nil,
			"failed_at":      nil,
			"reference":      reference,
		}
		if result.TransactionID != "" {
			updates["transaction_id"] = result.TransactionID
		}
		if len(result.Raw) > 0 {
			updates["gateway_response"] = result.Raw
		}
		ok, err := s.repo.WithTx(tx).UpdateIf(ctx, locked.ID, []enums.PaymentStatus{
			enums.PaymentStatusPending,
			enums.PaymentStatusProcessing,
			enums.PaymentStatusFailed,
		}, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "hold payment")
		}
		if !ok {
			return nil
		}
		locked.Status = enums.PaymentStatusHeldInEscrow
		locked.EscrowStatus = enums.EscrowHeld
		locked.EscrowHeldAt = &now
		locked.Reference = reference

		if order.Status.IsTerminal() {
			if err := s.emit(ctx, tx, enums.EventPaymentHeld, locked, "", nil); err != nil {
				return err
			}
			return s.refundClosed(ctx, tx, order, locked)
		}
		if order.PaymentStatus == enums.OrderPaymentPending {
			if err := s.lifecycle.ApplyPaymentHeld(ctx, tx, order, locked.Reference); err != nil {
				return err
			}
		}
		s.logInfo(ctx, "payment held in escrow", nil)
		return s.emit(ctx, tx, enums.EventPaymentHeld, locked, "", nil)
	})
}

// refundClosed returns funds that cleared after the buyer or an admin closed the order. A gateway
// failure rolls the hold back so the next verification retries the whole step.
func (s *service) refundClosed(ctx context.Context, tx *gorm.DB, order *models.Order, payment *models.Payment) error {
	if err := s.escrow.Refund(ctx, tx, order, payment, settlement.RefundInput{Reason: closedOrderRefundReason}); err != nil {
		s.logError(ctx, "refund for closed order failed", err)
		return err
	}
	s.logInfo(ctx, "payment refunded for closed order", map[string]any{"order_status": order.Status})
	if order.Status == enums.OrderStatusRefunded {
		return nil
	}
	return s.lifecycle.ApplyRefund(ctx, tx, order, orders.Viewer{}, closedOrderRefundReason)
}

func (s *service) isAttempt(ctx context.Context, tx *gorm.DB, paymentID uuid.UUID, reference string) (bool, error) {
	attempts, err := s.repo.WithTx(tx).ListAttempts(ctx, paymentID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment attempts")
	}
	for _, attempt := range attempts {
		if attempt.Reference == reference {
			return true, nil
		}
	}
	return false, nil
}

// markFailed records a gateway failure. Payments that moved on meanwhile are left alone.
func (s *service) markFailed(ctx context.Context, payment *models.Payment, reason string, raw []byte) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		updates := map[string]any{
			"status":         enums.PaymentStatusFailed,
			"failure_reason": reason,
			"failed_at":      s.now().UTC(),
		}
		if len(raw) > 0 {
			updates["gateway_response"] = raw
		}
		ok, err := s.repo.WithTx(tx).UpdateIf(ctx, payment.ID, []enums.PaymentStatus{
			enums.PaymentStatusPending,
			enums.PaymentStatusProcessing,
		}, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment failed")
		}
		if !ok {
			return nil
		}
		failed := *payment
		failed.Status = enums.PaymentStatusFailed
		return s.emit(ctx, tx, enums.EventPaymentFailed, &failed, reason, nil)
	})
}

func (s *service) RefundPayment(ctx context.Context, input RefundInput) (*PaymentDTO, error) {
	if !input.ActorRole.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can refund payments")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		reason = defaultRefundReason
	}
	payment, err := s.repo.FindByID(ctx, input.PaymentID)
	if err != nil {
		return nil, mapPaymentError(err)
	}
	ctx = s.scope(ctx, payment.OrderID, payment.Reference)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, locked, err := s.lockPair(ctx, tx, payment.OrderID)
		if err != nil {
			return err
		}
		if err := s.escrow.Refund(ctx, tx, order, locked, settlement.RefundInput{
			Reason:    reason,
			ActorID:   input.ActorID,
			ActorRole: input.ActorRole,
		}); err != nil {
			return err
		}
		return s.lifecycle.ApplyRefund(ctx, tx, order, orders.Viewer{UserID: input.ActorID, Role: input.ActorRole}, reason)
	})
	if err != nil {
		return nil, err
	}
	s.logInfo(ctx, "payment refunded", map[string]any{"reason": reason})
	return s.load(ctx, payment.ID)
}

// ReleaseEscrow settles a delivered order the buyer has not confirmed yet.
func (s *service) ReleaseEscrow(ctx context.Context, input ReleaseInput) (*PaymentDTO, error) {
	if !input.ActorRole.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can release escrow")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		reason = settlement.ReasonAdminRelease
	}
	payment, err := s.repo.FindByID(ctx, input.PaymentID)
	if err != nil {
		return nil, mapPaymentError(err)
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, locked, err := s.lockPair(ctx, tx, payment.OrderID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusDelivered {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order has not been delivered").
				WithDetails(map[string]any{"status": order.Status})
		}
		_, err = s.escrow.Release(ctx, tx, order, locked, settlement.ReleaseInput{
			Reason:    reason,
			ActorID:   input.ActorID,
			ActorRole: input.ActorRole,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, payment.ID)
}

// lockPair locks the order before its payment.
func (s *service) lockPair(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.Order, *models.Payment, error) {
	repo := s.orders.WithTx(tx)
	order, err := repo.FindForUpdate(ctx, orderID)
	if err != nil {
		return nil, nil, mapOrderError(err)
	}
	payment, err := repo.FindPaymentForUpdate(ctx, order.ID)
	if err != nil {
		return nil, nil, mapPaymentError(err)
	}
	return order, payment, nil
}

func (s *service) GetPayment(ctx context.Context, paymentID uuid.UUID, viewer orders.Viewer) (*PaymentDTO, error) {
	if viewer.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	payment, err := s.repo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, mapPaymentError(err)
	}
	if !viewer.Role.IsAdmin() && payment.BuyerID != viewer.UserID && !payment.HasRecipient(viewer.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payment not visible to user")
	}
	return FromModel(payment), nil
}

func (s *service) ListMyPayments(ctx context.Context, viewer orders.Viewer, params pagination.Params) (*PaymentList, error) {
	if viewer.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rows, next, err := s.repo.ListForUser(ctx, viewer.UserID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	list := &PaymentList{Payments: make([]PaymentDTO, 0, len(rows)), NextCursor: next}
	for i := range rows {
		list.Payments = append(list.Payments, *FromModel(&rows[i]))
	}
	return list, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*PaymentDTO, error) {
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapPaymentError(err)
	}
	return FromModel(payment), nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, payment *models.Payment, reason string, actor *outbox.ActorRef) error {
	event := outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregatePayment,
		AggregateID:   payment.ID,
		Actor:         actor,
		Data: payloads.PaymentEvent{
			PaymentID: payment.ID,
			OrderID:   payment.OrderID,
			Reference: payment.Reference,
			Amount:    payment.Amount.StringFixed(2),
			Status:    string(payment.Status),
			Reason:    reason,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit "+string(eventType))
	}
	return nil
}

func (s *service) scope(ctx context.Context, orderID uuid.UUID, reference string) context.Context {
	if s.logg == nil {
		return ctx
	}
	return s.logg.WithPaymentReference(s.logg.WithOrderID(ctx, orderID.String()), reference)
}

func (s *service) logInfo(ctx context.Context, msg string, fields map[string]any) {
	if s.logg == nil {
		return
	}
	if len(fields) > 0 {
		ctx = s.logg.WithFields(ctx, fields)
	}
	s.logg.Info(ctx, msg)
}

func (s *service) logError(ctx context.Context, msg string, err error) {
	if s.logg != nil {
		s.logg.Error(ctx, msg, err)
	}
}

func isSettled(status enums.PaymentStatus) bool {
	for _, settled := range settledStatuses {
		if status == settled {
			return true
		}
	}
	return false
}

// gatewayError keeps the client's classification and marks anything else retryable.
func gatewayError(err error, msg string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeGateway, err, msg)
}

func mapPaymentError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
}

func mapOrderError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}
