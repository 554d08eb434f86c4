package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/naijamall/naijamall-backend/internal/catalog"
	"github.com/naijamall/naijamall-backend/internal/fees"
	"github.com/naijamall/naijamall-backend/internal/roles"
	"github.com/naijamall/naijamall-backend/internal/settlement"
	"github.com/naijamall/naijamall-backend/pkg/db"
	"github.com/naijamall/naijamall-backend/pkg/db/models"
	"github.com/naijamall/naijamall-backend/pkg/enums"
	pkgerrors "github.com/naijamall/naijamall-backend/pkg/errors"
	"github.com/naijamall/naijamall-backend/pkg/logger"
	"github.com/naijamall/naijamall-backend/pkg/outbox"
	"github.com/naijamall/naijamall-backend/pkg/outbox/payloads"
	"github.com/naijamall/naijamall-backend/pkg/pagination"
)

const (
	orderNumberAttempts  = 3
	orderNumberSavepoint = "order_number"

	trackingRiderAssigned = "rider_assigned"
	trackingCompleted     = "completed"
	trackingInTransit     = "in_transit"
)

// Service is the order aggregate: creation, role-routed progress, cancellation and delegation.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderDTO, error)
	CreateOrderTx(ctx context.Context, tx *gorm.DB, input CreateOrderInput) (*models.Order, error)
	GetOrder(ctx context.Context, orderID uuid.UUID, viewer Viewer) (*OrderDTO, error)
	ListMyOrders(ctx context.Context, viewer Viewer, filters ListFilters, params pagination.Params) (*OrderList, error)
	ListOrders(ctx context.Context, viewer Viewer, filters ListFilters, params pagination.Params) (*OrderList, error)
	Search(ctx context.Context, viewerRole enums.Role, query Query, params pagination.Params) (*OrderList, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OrderDTO, error)
	ConfirmDelivery(ctx context.Context, input ConfirmDeliveryInput) (*OrderDTO, error)
	CancelOrder(ctx context.Context, input CancelOrderInput) (*OrderDTO, error)
	AssignRider(ctx context.Context, input AssignRiderInput) (*OrderDTO, error)
	AcceptDelivery(ctx context.Context, orderID uuid.UUID, rider Viewer) (*OrderDTO, error)
	UpdateDeliveryStatus(ctx context.Context, input DeliveryStatusInput) (*OrderDTO, error)
	AssignAgent(ctx context.Context, input AssignAgentInput) (*OrderDTO, error)
	UpdateInternalNotes(ctx context.Context, input NotesInput) (*OrderDTO, error)
	ApplyPaymentHeld(ctx context.Context, tx *gorm.DB, order *models.Order, reference string) error
	ApplyRefund(ctx context.Context, tx *gorm.DB, order *models.Order, actor Viewer, reason string) error
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	stock  StockReserver
	escrow Escrow
	users  UserLookup
	fees   *fees.Calculator
	logg   *logger.Logger
	now    func() time.Time
}

// NewService wires the order aggregate. logg may be nil.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher, stock StockReserver, escrow Escrow, users UserLookup, calc *fees.Calculator, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock reserver required")
	}
	if escrow == nil {
		return nil, fmt.Errorf("escrow engine required")
	}
	if users == nil {
		return nil, fmt.Errorf("user lookup required")
	}
	if calc == nil {
		calc = fees.NewCalculator(nil)
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: outbox,
		stock:  stock,
		escrow: escrow,
		users:  users,
		fees:   calc,
		logg:   logg,
		now:    time.Now,
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderDTO, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.CreateOrderTx(ctx, tx, input)
		if err != nil {
			return err
		}
		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, created.ID.String())
		s.logg.Info(s.logg.WithFields(logCtx, map[string]any{
			"order_number": created.OrderNumber,
			"total_amount": created.TotalAmount.StringFixed(2),
		}), "order created")
	}
	return FromModel(created, enums.RoleBuyer), nil
}

// CreateOrderTx reserves stock, prices and persists a pending order inside tx.
func (s *service) CreateOrderTx(ctx context.Context, tx *gorm.DB, input CreateOrderInput) (*models.Order, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	lines := make([]catalog.LineRequest, 0, len(input.Items))
	for _, item := range input.Items {
		lines = append(lines, catalog.LineRequest{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	reserved, err := s.stock.Reserve(ctx, tx, lines)
	if err != nil {
		return nil, err
	}

	itemsTotal := decimal.Zero
	items := make([]models.OrderItem, 0, len(reserved))
	for i, line := range reserved {
		itemsTotal = itemsTotal.Add(line.Subtotal)
		items = append(items, models.OrderItem{
			ProductID:   line.ProductID,
			SellerID:    line.SellerID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Subtotal:    line.Subtotal,
			Position:    i,
		})
	}

	address := input.ShippingAddress.toModel()
	breakdown := s.fees.Compute(itemsTotal, fees.DeliveryZone{City: address.City, State: address.State})
	description := defaultStatusDescription(enums.OrderStatusPending)
	if input.Source != "" {
		description = description + " from " + input.Source
	}

	order := &models.Order{
		BuyerID:              input.BuyerID,
		ShippingAddress:      address,
		PaymentMethod:        input.PaymentMethod,
		ItemsTotal:           itemsTotal,
		EscrowFee:            breakdown.EscrowFee,
		MarketProcurementFee: breakdown.MarketProcurementFee,
		DeliveryFee:          breakdown.DeliveryFee,
		TotalAmount:          breakdown.Total(itemsTotal),
		Status:               enums.OrderStatusPending,
		PaymentStatus:        enums.OrderPaymentPending,
		DeliveryStatus:       enums.DeliveryNotAssigned,
		BuyerNotes:           input.BuyerNotes,
		Items:                items,
		TrackingHistory: []models.OrderTrackingEntry{{
			Seq:         1,
			Status:      string(enums.OrderStatusPending),
			Description: description,
		}},
	}

	if err := s.insertWithNumber(ctx, tx, order); err != nil {
		return nil, err
	}

	err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: input.BuyerID, Role: string(enums.RoleBuyer)},
		Data: payloads.OrderCreatedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			BuyerID:     order.BuyerID,
			TotalAmount: order.TotalAmount.StringFixed(2),
			ItemCount:   len(order.Items),
		},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order created")
	}
	return order, nil
}

// insertWithNumber retries order number collisions behind a savepoint so the surrounding
// transaction stays usable on postgres.
func (s *service) insertWithNumber(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	repo := s.repo.WithTx(tx)
	var lastErr error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		order.OrderNumber = NewOrderNumber(s.now())
		if err := tx.SavePoint(orderNumberSavepoint).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create savepoint")
		}
		err := repo.Create(ctx, order)
		if err == nil {
			return nil
		}
		if !db.IsUniqueViolation(err, "") {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		lastErr = err
		if rbErr := tx.RollbackTo(orderNumberSavepoint).Error; rbErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, rbErr, "rollback savepoint")
		}
	}
	return pkgerrors.Wrap(pkgerrors.CodeConflict, lastErr, "could not allocate order number")
}

func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID, viewer Viewer) (*OrderDTO, error) {
	if viewer.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, mapLoadError(err)
	}
	if !CanView(order, viewer) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order not visible to user")
	}
	return FromModel(order, viewer.Role), nil
}

// CanView reports whether viewer participates in order or works in the back office.
func CanView(order *models.Order, viewer Viewer) bool {
	if viewer.Role.IsStaff() {
		return true
	}
	switch viewer.Role {
	case enums.RoleBuyer:
		return order.BuyerID == viewer.UserID
	case enums.RoleSeller:
		return order.HasSeller(viewer.UserID)
	case enums.RoleRider:
		return sameUser(order.RiderID, viewer.UserID)
	case enums.RoleAgent:
		return sameUser(order.AssignedAgentID, viewer.UserID)
	}
	return false
}

func (s *service) ListMyOrders(ctx context.Context, viewer Viewer, filters ListFilters, params pagination.Params) (*OrderList, error) {
	if viewer.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	query := Query{ListFilters: filters}
	id := viewer.UserID
	switch viewer.Role {
	case enums.RoleBuyer:
		query.BuyerID = &id
	case enums.RoleSeller:
		query.SellerID = &id
	case enums.RoleRider:
		query.RiderID = &id
	case enums.RoleAgent:
		query.AgentID = &id
	case enums.RoleCustomerService:
		query.CustomerServiceID = &id
	}
	return s.Search(ctx, viewer.Role, query, params)
}

func (s *service) ListOrders(ctx context.Context, viewer Viewer, filters ListFilters, params pagination.Params) (*OrderList, error) {
	if !viewer.Role.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "customer service role required")
	}
	return s.Search(ctx, viewer.Role, Query{ListFilters: filters}, params)
}

// Search runs an already scoped query. Callers own authorization.
func (s *service) Search(ctx context.Context, viewerRole enums.Role, query Query, params pagination.Params) (*OrderList, error) {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.List(ctx, query, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	out := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i], viewerRole))
	}
	return &OrderList{Orders: out, NextCursor: next}, nil
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OrderDTO, error) {
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status").WithDetails(map[string]any{"status": input.Status})
	}
	if err := roles.AuthorizeStatus(input.ActorRole, input.Status); err != nil {
		return nil, err
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindForUpdate(ctx, input.OrderID)
		if err != nil {
			return mapLoadError(err)
		}
		if err := authorizeParticipant(order, input.ActorID, input.ActorRole); err != nil {
			return err
		}
		if !CanProgress(order.Status, input.Status) {
			return invalidTransition(order.Status, input.Status)
		}

		extra := map[string]any{}
		if input.Notes != nil && strings.TrimSpace(*input.Notes) != "" {
			extra["internal_notes"] = appendNote(order.InternalNotes, *input.Notes, s.now())
		}
		if err := s.progress(ctx, tx, order, input.Status, transition{
			actorID:     input.ActorID,
			actorRole:   input.ActorRole,
			description: input.Description,
			location:    input.Location,
			extra:       extra,
		}); err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(updated, input.ActorRole), nil
}

type transition struct {
	actorID     uuid.UUID
	actorRole   enums.Role
	description string
	location    *string
	extra       map[string]any
}

// progress moves order one step forward and records the tracking entry and event. The order must
// already be locked by tx.
func (s *service) progress(ctx context.Context, tx *gorm.DB, order *models.Order, target enums.OrderStatus, t transition) error {
	from := order.Status
	if !CanProgress(from, target) {
		return invalidTransition(from, target)
	}

	updates := map[string]any{"status": target}
	for k, v := range t.extra {
		updates[k] = v
	}
	deliveryStatus := order.DeliveryStatus
	var deliveredAt *time.Time
	switch target {
	case enums.OrderStatusOutForDelivery:
		if order.DeliveryStatus == enums.DeliveryNotAssigned || order.RiderID == nil {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "a rider must be assigned before pickup").
				WithDetails(map[string]any{"delivery_status": order.DeliveryStatus})
		}
		if order.DeliveryStatus == enums.DeliveryAssigned {
			deliveryStatus = enums.DeliveryPickedUp
		}
	case enums.OrderStatusDelivered:
		now := s.now().UTC()
		deliveredAt = &now
		deliveryStatus = enums.DeliveryDelivered
		updates["actual_delivery_time"] = now
	}
	if deliveryStatus != order.DeliveryStatus {
		updates["delivery_status"] = deliveryStatus
	}

	repo := s.repo.WithTx(tx)
	if err := repo.Update(ctx, order.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	order.Status = target
	order.DeliveryStatus = deliveryStatus
	if deliveredAt != nil {
		order.ActualDeliveryAt = deliveredAt
	}
	if notes, ok := t.extra["internal_notes"].(string); ok {
		order.InternalNotes = &notes
	}

	description := strings.TrimSpace(t.description)
	if description == "" {
		description = defaultStatusDescription(target)
	}
	if err := s.track(ctx, repo, order, string(target), description, t.location); err != nil {
		return err
	}
	return s.emitStatusChanged(ctx, tx, order, from, t.actorID, t.actorRole)
}

func (s *service) ConfirmDelivery(ctx context.Context, input ConfirmDeliveryInput) (*OrderDTO, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindForUpdate(ctx, input.OrderID)
		if err != nil {
			return mapLoadError(err)
		}
		if order.BuyerID != input.BuyerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer can confirm delivery")
		}
		if order.Status != enums.OrderStatusDelivered {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order has not been delivered").
				WithDetails(map[string]any{"status": order.Status})
		}
		if order.BuyerConfirmed {
			return pkgerrors.New(pkgerrors.CodeConflict, "delivery already confirmed")
		}
		payment, err := repo.FindPaymentForUpdate(ctx, order.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order has no escrowed payment")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}

		// An admin may already have settled a delivered order; the buyer still confirms it.
		description := "Buyer confirmed delivery"
		if payment.EscrowStatus != enums.EscrowReleasedToSellers {
			if _, err := s.escrow.Release(ctx, tx, order, payment, settlement.ReleaseInput{
				Reason:    settlement.ReasonBuyerConfirmed,
				ActorID:   input.BuyerID,
				ActorRole: enums.RoleBuyer,
			}); err != nil {
				return err
			}
			description = "Buyer confirmed delivery and payment released"
		}

		now := s.now().UTC()
		if err := repo.Update(ctx, order.ID, map[string]any{
			"buyer_confirmed":    true,
			"buyer_confirmed_at": now,
			"buyer_feedback":     input.Feedback,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record confirmation")
		}
		order.BuyerConfirmed = true
		order.BuyerConfirmedAt = &now
		order.BuyerFeedback = input.Feedback

		if err := s.track(ctx, repo, order, trackingCompleted, description, nil); err != nil {
			return err
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDeliveryConfirmed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.BuyerID, Role: string(enums.RoleBuyer)},
			Data: payloads.OrderDeliveryConfirmedEvent{
				OrderID:     order.ID,
				BuyerID:     order.BuyerID,
				ConfirmedAt: now,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit delivery confirmed")
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(updated, enums.RoleBuyer), nil
}

func (s *service) CancelOrder(ctx context.Context, input CancelOrderInput) (*OrderDTO, error) {
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ActorRole != enums.RoleBuyer && !input.ActorRole.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer or an admin can cancel an order")
	}
	reason := strings.TrimSpace(input.Reason)

	var (
		updated  *models.Order
		refunded bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindForUpdate(ctx, input.OrderID)
		if err != nil {
			return mapLoadError(err)
		}
		if input.ActorRole == enums.RoleBuyer && order.BuyerID != input.ActorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another buyer")
		}
		if !CanCancel(order.Status) {
			return invalidTransition(order.Status, enums.OrderStatusCancelled)
		}

		if order.PaymentStatus == enums.OrderPaymentHeldInEscrow {
			payment, err := repo.FindPaymentForUpdate(ctx, order.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
			}
			refundReason := reason
			if refundReason == "" {
				refundReason = "Order cancelled"
			}
			if err := s.escrow.Refund(ctx, tx, order, payment, settlement.RefundInput{
				Reason:    refundReason,
				ActorID:   input.ActorID,
				ActorRole: input.ActorRole,
			}); err != nil {
				return err
			}
			refunded = true
		}

		if !order.StockReleased {
			lines := make([]catalog.LineRequest, 0, len(order.Items))
			for _, item := range order.Items {
				lines = append(lines, catalog.LineRequest{ProductID: item.ProductID, Quantity: item.Quantity})
			}
			if err := s.stock.Restore(ctx, tx, lines); err != nil {
				return err
			}
		}

		now := s.now().UTC()
		actorID := input.ActorID
		updates := map[string]any{
			"status":         enums.OrderStatusCancelled,
			"cancelled_by":   actorID,
			"cancelled_at":   now,
			"stock_released": true,
		}
		if reason != "" {
			updates["cancellation_reason"] = reason
			order.CancellationReason = &reason
		}
		if refunded {
			updates["payment_status"] = enums.OrderPaymentRefunded
			order.PaymentStatus = enums.OrderPaymentRefunded
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		from := order.Status
		order.Status = enums.OrderStatusCancelled
		order.CancelledByID = &actorID
		order.CancelledAt = &now
		order.StockReleased = true

		description := defaultStatusDescription(enums.OrderStatusCancelled)
		if reason != "" {
			description = description + ": " + reason
		}
		if err := s.track(ctx, repo, order, string(enums.OrderStatusCancelled), description, nil); err != nil {
			return err
		}
		if err := s.emitStatusChanged(ctx, tx, order, from, input.ActorID, input.ActorRole); err != nil {
			return err
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorID, Role: string(input.ActorRole)},
			Data: payloads.OrderCancelledEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				CancelledBy: input.ActorID,
				Reason:      reason,
				Refunded:    refunded,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order cancelled")
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, updated.ID.String())
		s.logg.Info(s.logg.WithField(logCtx, "refunded", refunded), "order cancelled")
	}
	return FromModel(updated, input.ActorRole), nil
}

func (s *service) AssignRider(ctx context.Context, input AssignRiderInput) (*OrderDTO, error) {
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.ActorRole.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if err := s.requireAssignee(ctx, input.RiderID, enums.RoleRider); err != nil {
		return nil, err
	}
	actorID := input.ActorID
	return s.assignRider(ctx, input.OrderID, input.RiderID, &actorID, input.ActorRole, input.Notes, false)
}

func (s *service) AcceptDelivery(ctx context.Context, orderID uuid.UUID, rider Viewer) (*OrderDTO, error) {
	if rider.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if rider.Role != enums.RoleRider {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "rider role required")
	}
	if err := s.requireAssignee(ctx, rider.UserID, enums.RoleRider); err != nil {
		return nil, err
	}
	riderID := rider.UserID
	return s.assignRider(ctx, orderID, rider.UserID, &riderID, rider.Role, nil, true)
}

// assignRider sets the rider. selfService restricts the order to ready_for_delivery with no rider.
func (s *service) assignRider(ctx context.Context, orderID, riderID uuid.UUID, assignedBy *uuid.UUID, actorRole enums.Role, notes *string, selfService bool) (*OrderDTO, error) {
	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindForUpdate(ctx, orderID)
		if err != nil {
			return mapLoadError(err)
		}
		if order.Status.IsTerminal() || order.Status == enums.OrderStatusDelivered {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order is closed").WithDetails(map[string]any{"status": order.Status})
		}
		if selfService {
			if order.Status != enums.OrderStatusReadyForDelivery {
				return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order is not ready for delivery").
					WithDetails(map[string]any{"status": order.Status})
			}
			if order.DeliveryStatus != enums.DeliveryNotAssigned {
				return pkgerrors.New(pkgerrors.CodeConflict, "delivery already taken by another rider")
			}
		}

		deliveryStatus := order.DeliveryStatus
		if !deliveryStatus.IsActive() || deliveryStatus == enums.DeliveryAssigned {
			deliveryStatus = enums.DeliveryAssigned
		}
		if err := repo.Update(ctx, order.ID, map[string]any{
			"rider_id":        riderID,
			"delivery_status": deliveryStatus,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign rider")
		}
		order.RiderID = &riderID
		order.DeliveryStatus = deliveryStatus

		if err := s.recordAssignment(ctx, tx, order, riderID, assignedBy, actorRole, enums.RoleRider, notes); err != nil {
			return err
		}
		description := "Rider assigned to order"
		if selfService {
			description = "Rider accepted the delivery"
		}
		if err := s.track(ctx, repo, order, trackingRiderAssigned, description, nil); err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(updated, actorRole), nil
}

func (s *service) UpdateDeliveryStatus(ctx context.Context, input DeliveryStatusInput) (*OrderDTO, error) {
	if input.RiderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	switch input.Status {
	case enums.DeliveryPickedUp, enums.DeliveryInTransit, enums.DeliveryDelivered:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be picked_up, in_transit or delivered").
			WithDetails(map[string]any{"status": input.Status})
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindForUpdate(ctx, input.OrderID)
		if err != nil {
			return mapLoadError(err)
		}
		if !sameUser(order.RiderID, input.RiderID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "delivery is assigned to another rider")
		}
		t := transition{
			actorID:   input.RiderID,
			actorRole: enums.RoleRider,
			location:  input.Location,
		}
		if input.Notes != nil {
			t.description = *input.Notes
		}

		switch input.Status {
		case enums.DeliveryPickedUp:
			if order.DeliveryStatus != enums.DeliveryAssigned {
				return pkgerrors.New(pkgerrors.CodeInvalidTransition, "delivery is not awaiting pickup").
					WithDetails(map[string]any{"delivery_status": order.DeliveryStatus})
			}
			err = s.progress(ctx, tx, order, enums.OrderStatusOutForDelivery, t)
		case enums.DeliveryInTransit:
			if order.DeliveryStatus != enums.DeliveryPickedUp && order.DeliveryStatus != enums.DeliveryInTransit {
				return pkgerrors.New(pkgerrors.CodeInvalidTransition, "delivery has not been picked up").
					WithDetails(map[string]any{"delivery_status": order.DeliveryStatus})
			}
			if err := repo.Update(ctx, order.ID, map[string]any{"delivery_status": enums.DeliveryInTransit}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update delivery status")
			}
			order.DeliveryStatus = enums.DeliveryInTransit
			description := t.description
			if description == "" {
				description = "Order is on the way"
			}
			err = s.track(ctx, repo, order, trackingInTransit, description, input.Location)
		case enums.DeliveryDelivered:
			if order.DeliveryStatus != enums.DeliveryPickedUp && order.DeliveryStatus != enums.DeliveryInTransit {
				return pkgerrors.New(pkgerrors.CodeInvalidTransition, "delivery has not been picked up").
					WithDetails(map[string]any{"delivery_status": order.DeliveryStatus})
			}
			err = s.progress(ctx, tx, order, enums.OrderStatusDelivered, t)
		}
		if err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(updated, enums.RoleRider), nil
}

func (s *service) AssignAgent(ctx context.Context, input AssignAgentInput) (*OrderDTO, error) {
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.ActorRole.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "customer service role required")
	}
	if err := s.requireAssignee(ctx, input.AgentID, enums.RoleAgent); err != nil {
		return nil, err
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindForUpdate(ctx, input.OrderID)
		if err != nil {
			return mapLoadError(err)
		}
		if order.Status.IsTerminal() || order.Status == enums.OrderStatusDelivered {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order is closed").WithDetails(map[string]any{"status": order.Status})
		}

		agentID, actorID := input.AgentID, input.ActorID
		if err := repo.Update(ctx, order.ID, map[string]any{
			"assigned_agent_id":   agentID,
			"customer_service_id": actorID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign agent")
		}
		order.AssignedAgentID = &agentID
		order.CustomerServiceID = &actorID

		if err := s.recordAssignment(ctx, tx, order, agentID, &actorID, input.ActorRole, enums.RoleAgent, input.Notes); err != nil {
			return err
		}
		if order.Status == enums.OrderStatusConfirmed {
			if err := s.progress(ctx, tx, order, enums.OrderStatusShopping, transition{
				actorID:     input.ActorID,
				actorRole:   input.ActorRole,
				description: "Agent assigned and shopping started",
			}); err != nil {
				return err
			}
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(updated, input.ActorRole), nil
}

func (s *service) UpdateInternalNotes(ctx context.Context, input NotesInput) (*OrderDTO, error) {
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.ActorRole.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "customer service role required")
	}
	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindForUpdate(ctx, input.OrderID)
		if err != nil {
			return mapLoadError(err)
		}
		notes := strings.TrimSpace(input.Notes)
		if err := repo.Update(ctx, order.ID, map[string]any{"internal_notes": notes}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update notes")
		}
		order.InternalNotes = &notes
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(updated, input.ActorRole), nil
}

// ApplyPaymentHeld confirms a pending order once its payment is verified. order must be locked by tx.
func (s *service) ApplyPaymentHeld(ctx context.Context, tx *gorm.DB, order *models.Order, reference string) error {
	if tx == nil || order == nil {
		return fmt.Errorf("transaction and order required")
	}
	if order.Status.IsTerminal() {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order is closed").
			WithDetails(map[string]any{"status": order.Status})
	}
	if order.PaymentStatus != enums.OrderPaymentPending {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order payment already settled").
			WithDetails(map[string]any{"payment_status": order.PaymentStatus})
	}
	extra := map[string]any{
		"payment_status":    enums.OrderPaymentHeldInEscrow,
		"payment_reference": reference,
	}
	if order.Status != enums.OrderStatusPending {
		if err := s.repo.WithTx(tx).Update(ctx, order.ID, extra); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
		}
	} else if err := s.progress(ctx, tx, order, enums.OrderStatusConfirmed, transition{
		actorID:     order.BuyerID,
		actorRole:   enums.RoleBuyer,
		description: "Payment received and held in escrow",
		extra:       extra,
	}); err != nil {
		return err
	}
	order.PaymentStatus = enums.OrderPaymentHeldInEscrow
	order.PaymentReference = &reference
	return nil
}

// ApplyRefund closes an order whose escrow was just refunded, including one already cancelled
// while its payment was in flight. order must be locked by tx.
func (s *service) ApplyRefund(ctx context.Context, tx *gorm.DB, order *models.Order, actor Viewer, reason string) error {
	if tx == nil || order == nil {
		return fmt.Errorf("transaction and order required")
	}
	if order.Status == enums.OrderStatusRefunded {
		return invalidTransition(order.Status, enums.OrderStatusRefunded)
	}
	repo := s.repo.WithTx(tx)
	updates := map[string]any{
		"status":         enums.OrderStatusRefunded,
		"payment_status": enums.OrderPaymentRefunded,
	}
	if !order.StockReleased && order.Status != enums.OrderStatusDelivered {
		lines := make([]catalog.LineRequest, 0, len(order.Items))
		for _, item := range order.Items {
			lines = append(lines, catalog.LineRequest{ProductID: item.ProductID, Quantity: item.Quantity})
		}
		if err := s.stock.Restore(ctx, tx, lines); err != nil {
			return err
		}
		updates["stock_released"] = true
		order.StockReleased = true
	}
	if err := repo.Update(ctx, order.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order refunded")
	}
	from := order.Status
	order.Status = enums.OrderStatusRefunded
	order.PaymentStatus = enums.OrderPaymentRefunded

	description := defaultStatusDescription(enums.OrderStatusRefunded)
	if r := strings.TrimSpace(reason); r != "" {
		description = description + ": " + r
	}
	if err := s.track(ctx, repo, order, string(enums.OrderStatusRefunded), description, nil); err != nil {
		return err
	}
	return s.emitStatusChanged(ctx, tx, order, from, actor.UserID, actor.Role)
}

func (s *service) requireAssignee(ctx context.Context, userID uuid.UUID, role enums.Role) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "assignee id required")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return roles.RequireAssignee(nil, role)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assignee")
	}
	return roles.RequireAssignee(user, role)
}

func (s *service) recordAssignment(ctx context.Context, tx *gorm.DB, order *models.Order, assignee uuid.UUID, assignedBy *uuid.UUID, actorRole, role enums.Role, notes *string) error {
	assignment := &models.OrderAssignment{
		OrderID:      order.ID,
		AssignedByID: assignedBy,
		AssignedToID: assignee,
		Role:         role,
		Notes:        notes,
		AssignedAt:   s.now().UTC(),
	}
	if err := s.repo.WithTx(tx).AppendAssignment(ctx, assignment); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record assignment")
	}
	order.AssignmentHistory = append(order.AssignmentHistory, *assignment)

	event := outbox.DomainEvent{
		EventType:     enums.EventOrderAssigned,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Data: payloads.OrderAssignedEvent{
			OrderID:      order.ID,
			AssignedToID: assignee,
			AssignedByID: assignedBy,
			Role:         string(role),
		},
	}
	if assignedBy != nil {
		event.Actor = &outbox.ActorRef{UserID: *assignedBy, Role: string(actorRole)}
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order assigned")
	}
	return nil
}

func (s *service) track(ctx context.Context, repo Repository, order *models.Order, status, description string, location *string) error {
	entry := &models.OrderTrackingEntry{
		OrderID:     order.ID,
		Seq:         order.NextTrackingSeq(),
		Status:      status,
		Description: description,
		Location:    location,
		CreatedAt:   s.now().UTC(),
	}
	if err := repo.AppendTracking(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append tracking")
	}
	order.TrackingHistory = append(order.TrackingHistory, *entry)
	return nil
}

func (s *service) emitStatusChanged(ctx context.Context, tx *gorm.DB, order *models.Order, from enums.OrderStatus, actorID uuid.UUID, actorRole enums.Role) error {
	event := outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Data: payloads.OrderStatusChangedEvent{
			OrderID:        order.ID,
			OrderNumber:    order.OrderNumber,
			FromStatus:     string(from),
			ToStatus:       string(order.Status),
			DeliveryStatus: string(order.DeliveryStatus),
		},
	}
	if actorID != uuid.Nil {
		event.Actor = &outbox.ActorRef{UserID: actorID, Role: string(actorRole)}
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit status changed")
	}
	return nil
}

// authorizeParticipant checks the actor works on this particular order. Admins work on all.
func authorizeParticipant(order *models.Order, actorID uuid.UUID, role enums.Role) error {
	if role.IsAdmin() {
		return nil
	}
	var ok bool
	switch role {
	case enums.RoleSeller:
		ok = order.HasSeller(actorID)
	case enums.RoleRider:
		ok = sameUser(order.RiderID, actorID)
	case enums.RoleAgent:
		ok = sameUser(order.AssignedAgentID, actorID)
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeForbidden, "not assigned to this order")
	}
	return nil
}

func sameUser(ref *uuid.UUID, id uuid.UUID) bool {
	return ref != nil && *ref == id
}

func appendNote(existing *string, note string, at time.Time) string {
	line := fmt.Sprintf("[%s] %s", at.UTC().Format(time.RFC3339), strings.TrimSpace(note))
	if existing == nil || strings.TrimSpace(*existing) == "" {
		return line
	}
	return *existing + "\n" + line
}

func mapLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}
