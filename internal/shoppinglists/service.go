package shoppinglists

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/naijamall/naijamall-backend/internal/orders"
	"github.com/naijamall/naijamall-backend/internal/roles"
	"github.com/naijamall/naijamall-backend/pkg/db/models"
	"github.com/naijamall/naijamall-backend/pkg/enums"
	pkgerrors "github.com/naijamall/naijamall-backend/pkg/errors"
	"github.com/naijamall/naijamall-backend/pkg/logger"
	"github.com/naijamall/naijamall-backend/pkg/outbox"
	"github.com/naijamall/naijamall-backend/pkg/outbox/payloads"
	"github.com/naijamall/naijamall-backend/pkg/pagination"
)

const convertedSource = "shopping list"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// OrderCreator places an order inside the caller's transaction.
type OrderCreator interface {
	CreateOrderTx(ctx context.Context, tx *gorm.DB, input orders.CreateOrderInput) (*models.Order, error)
}

type UserLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type Service interface {
	Create(ctx context.Context, input CreateInput) (*ShoppingListDTO, error)
	List(ctx context.Context, viewer orders.Viewer, filters ListFilters, params pagination.Params) (*ShoppingListPage, error)
	ListMine(ctx context.Context, viewer orders.Viewer, params pagination.Params) (*ShoppingListPage, error)
	Get(ctx context.Context, id uuid.UUID, viewer orders.Viewer) (*ShoppingListDTO, error)
	Assign(ctx context.Context, input AssignInput) (*ShoppingListDTO, error)
	UpdateStatus(ctx context.Context, input StatusInput) (*ShoppingListDTO, error)
	Convert(ctx context.Context, input ConvertInput) (*ConvertResult, error)
}

type ItemInput struct {
	ProductID      *uuid.UUID
	Name           string
	Quantity       int
	RequestedPrice *decimal.Decimal
	Notes          *string
}

type CreateInput struct {
	BuyerID         uuid.UUID
	Items           []ItemInput
	ShippingAddress orders.AddressDTO
	BuyerNotes      *string
}

type AssignInput struct {
	ListID    uuid.UUID
	AgentID   uuid.UUID
	ActorID   uuid.UUID
	ActorRole enums.Role
	Notes     *string
}

type StatusInput struct {
	ListID    uuid.UUID
	Status    enums.ShoppingListStatus
	ActorID   uuid.UUID
	ActorRole enums.Role
	Notes     *string
}

type ConvertInput struct {
	ListID        uuid.UUID
	ActorID       uuid.UUID
	ActorRole     enums.Role
	PaymentMethod enums.PaymentMethod
}

type ConvertResult struct {
	ShoppingList *ShoppingListDTO `json:"shopping_list"`
	OrderID      uuid.UUID        `json:"order_id"`
	OrderNumber  string           `json:"order_number"`
}

type service struct {
	repo   *Repository
	tx     txRunner
	outbox outboxPublisher
	orders OrderCreator
	users  UserLookup
	logg   *logger.Logger
}

func NewService(repo *Repository, tx txRunner, outbox outboxPublisher, creator OrderCreator, users UserLookup, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("shopping list repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if creator == nil {
		return nil, fmt.Errorf("order creator required")
	}
	if users == nil {
		return nil, fmt.Errorf("user lookup required")
	}
	return &service{repo: repo, tx: tx, outbox: outbox, orders: creator, users: users, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*ShoppingListDTO, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	list := &models.ShoppingList{
		BuyerID: input.BuyerID,
		Status:  enums.ShoppingListPending,
		ShippingAddress: models.Address{
			Street:  strings.TrimSpace(input.ShippingAddress.Street),
			City:    strings.TrimSpace(input.ShippingAddress.City),
			State:   strings.TrimSpace(input.ShippingAddress.State),
			ZipCode: input.ShippingAddress.ZipCode,
			Phone:   strings.TrimSpace(input.ShippingAddress.Phone),
		},
		BuyerNotes: input.BuyerNotes,
	}
	estimate, priced := decimal.Zero, false
	for _, item := range input.Items {
		row := models.ShoppingListItem{
			ProductID: item.ProductID,
			Name:      strings.TrimSpace(item.Name),
			Quantity:  item.Quantity,
			Notes:     item.Notes,
		}
		if item.RequestedPrice != nil {
			row.RequestedPrice = decimal.NullDecimal{Decimal: *item.RequestedPrice, Valid: true}
			estimate = estimate.Add(item.RequestedPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
			priced = true
		}
		list.Items = append(list.Items, row)
	}
	if priced {
		list.EstimatedTotal = decimal.NullDecimal{Decimal: estimate, Valid: true}
	}
	if err := s.repo.Create(ctx, list); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create shopping list")
	}
	return FromModel(list, enums.RoleBuyer), nil
}

func (in CreateInput) validate() error {
	problems := map[string]string{}
	if len(in.Items) == 0 {
		problems["items"] = "at least one item is required"
	}
	for _, item := range in.Items {
		if strings.TrimSpace(item.Name) == "" {
			problems["items.name"] = "name is required"
		}
		if item.Quantity < 1 {
			problems["items.quantity"] = "quantity must be at least 1"
		}
		if item.RequestedPrice != nil && item.RequestedPrice.IsNegative() {
			problems["items.requested_price"] = "must not be negative"
		}
	}
	addr := in.ShippingAddress
	for field, value := range map[string]string{
		"shipping_address.street": addr.Street,
		"shipping_address.city":   addr.City,
		"shipping_address.state":  addr.State,
		"shipping_address.phone":  addr.Phone,
	} {
		if strings.TrimSpace(value) == "" {
			problems[field] = "is required"
		}
	}
	if len(problems) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid shopping list").WithDetails(problems)
	}
	return nil
}

func (s *service) List(ctx context.Context, viewer orders.Viewer, filters ListFilters, params pagination.Params) (*ShoppingListPage, error) {
	switch {
	case viewer.Role.IsStaff():
	case viewer.Role == enums.RoleAgent:
		id := viewer.UserID
		filters.AssignedToID = &id
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "customer service role required")
	}
	return s.page(ctx, viewer.Role, filters, params)
}

func (s *service) ListMine(ctx context.Context, viewer orders.Viewer, params pagination.Params) (*ShoppingListPage, error) {
	if viewer.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	id := viewer.UserID
	return s.page(ctx, viewer.Role, ListFilters{BuyerID: &id}, params)
}

func (s *service) page(ctx context.Context, role enums.Role, filters ListFilters, params pagination.Params) (*ShoppingListPage, error) {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.List(ctx, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shopping lists")
	}
	out := &ShoppingListPage{ShoppingLists: make([]ShoppingListDTO, 0, len(rows)), NextCursor: next}
	for i := range rows {
		out.ShoppingLists = append(out.ShoppingLists, *FromModel(&rows[i], role))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID, viewer orders.Viewer) (*ShoppingListDTO, error) {
	list, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLoadError(err)
	}
	if !canView(list, viewer) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "shopping list not visible to user")
	}
	return FromModel(list, viewer.Role), nil
}

func canView(list *models.ShoppingList, viewer orders.Viewer) bool {
	if viewer.Role.IsStaff() || list.BuyerID == viewer.UserID {
		return true
	}
	return viewer.Role == enums.RoleAgent && list.AssignedToID != nil && *list.AssignedToID == viewer.UserID
}

// Assign hands the list to an agent and records the handling customer-service user.
func (s *service) Assign(ctx context.Context, input AssignInput) (*ShoppingListDTO, error) {
	if !input.ActorRole.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "customer service role required")
	}
	if err := s.requireAgent(ctx, input.AgentID); err != nil {
		return nil, err
	}
	var updated *models.ShoppingList
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		list, err := repo.FindForUpdate(ctx, input.ListID)
		if err != nil {
			return mapLoadError(err)
		}
		if list.Status.IsClosed() {
			return closedError(list.Status)
		}
		agentID, actorID := input.AgentID, input.ActorID
		if err := repo.Update(ctx, list.ID, map[string]any{
			"assigned_to":         agentID,
			"customer_service_id": actorID,
			"status":              enums.ShoppingListAssigned,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign shopping list")
		}
		if err := repo.AppendAssignment(ctx, &models.ShoppingListAssignment{
			ShoppingListID: list.ID,
			AssignedByID:   &actorID,
			AssignedToID:   agentID,
			Role:           enums.RoleAgent,
			Notes:          input.Notes,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record shopping list assignment")
		}
		if err := s.emit(ctx, tx, enums.EventShoppingListAssigned, payloads.ShoppingListEvent{
			ShoppingListID: list.ID,
			BuyerID:        list.BuyerID,
			AssignedToID:   &agentID,
		}, input.ActorID, input.ActorRole); err != nil {
			return err
		}
		updated, err = repo.FindByID(ctx, list.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return FromModel(updated, input.ActorRole), nil
}

// UpdateStatus moves a list to reviewed or cancelled. Conversion and assignment have their own
// operations. Buyers may only cancel their own lists.
func (s *service) UpdateStatus(ctx context.Context, input StatusInput) (*ShoppingListDTO, error) {
	if input.Status != enums.ShoppingListReviewed && input.Status != enums.ShoppingListCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be reviewed or cancelled").
			WithDetails(map[string]any{"status": input.Status})
	}
	var updated *models.ShoppingList
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		list, err := repo.FindForUpdate(ctx, input.ListID)
		if err != nil {
			return mapLoadError(err)
		}
		if !canChangeStatus(list, input) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to change this shopping list")
		}
		if list.Status.IsClosed() {
			return closedError(list.Status)
		}
		updates := map[string]any{"status": input.Status}
		if input.Notes != nil && strings.TrimSpace(*input.Notes) != "" && input.ActorRole.AtLeast(enums.RoleAgent) {
			updates["internal_notes"] = appendNote(list.InternalNotes, *input.Notes)
		}
		if err := repo.Update(ctx, list.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update shopping list")
		}
		updated, err = repo.FindByID(ctx, list.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return FromModel(updated, input.ActorRole), nil
}

func canChangeStatus(list *models.ShoppingList, input StatusInput) bool {
	switch {
	case input.ActorRole.IsStaff():
		return true
	case input.ActorRole == enums.RoleAgent:
		return list.AssignedToID != nil && *list.AssignedToID == input.ActorID
	default:
		return input.Status == enums.ShoppingListCancelled && list.BuyerID == input.ActorID
	}
}

// Convert places an order for the list's buyer from its product-backed items.
func (s *service) Convert(ctx context.Context, input ConvertInput) (*ConvertResult, error) {
	if !input.ActorRole.AtLeast(enums.RoleAgent) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "agent role required")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order request").
			WithDetails(map[string]string{"payment_method": "must be one of card, bank_transfer, ussd, mobile_money"})
	}
	var (
		updated *models.ShoppingList
		order   *models.Order
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		list, err := repo.FindForUpdate(ctx, input.ListID)
		if err != nil {
			return mapLoadError(err)
		}
		if input.ActorRole == enums.RoleAgent && (list.AssignedToID == nil || *list.AssignedToID != input.ActorID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "shopping list is assigned to another agent")
		}
		if list.Status.IsClosed() {
			return closedError(list.Status)
		}
		items, err := orderItems(list)
		if err != nil {
			return err
		}
		address := orders.AddressDTO{
			Street:  list.ShippingAddress.Street,
			City:    list.ShippingAddress.City,
			State:   list.ShippingAddress.State,
			ZipCode: list.ShippingAddress.ZipCode,
			Phone:   list.ShippingAddress.Phone,
		}
		order, err = s.orders.CreateOrderTx(ctx, tx, orders.CreateOrderInput{
			BuyerID:         list.BuyerID,
			Items:           items,
			ShippingAddress: address,
			PaymentMethod:   input.PaymentMethod,
			BuyerNotes:      list.BuyerNotes,
			Source:          convertedSource,
		})
		if err != nil {
			return err
		}
		if err := repo.Update(ctx, list.ID, map[string]any{
			"status":             enums.ShoppingListConverted,
			"converted_order_id": order.ID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark shopping list converted")
		}
		orderID := order.ID
		if err := s.emit(ctx, tx, enums.EventShoppingListConverted, payloads.ShoppingListEvent{
			ShoppingListID: list.ID,
			BuyerID:        list.BuyerID,
			AssignedToID:   list.AssignedToID,
			OrderID:        &orderID,
		}, input.ActorID, input.ActorRole); err != nil {
			return err
		}
		updated, err = repo.FindByID(ctx, list.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "shopping list converted")
	}
	return &ConvertResult{
		ShoppingList: FromModel(updated, input.ActorRole),
		OrderID:      order.ID,
		OrderNumber:  order.OrderNumber,
	}, nil
}

// orderItems rejects free-text items; only catalog products can be ordered.
func orderItems(list *models.ShoppingList) ([]orders.ItemInput, error) {
	items := make([]orders.ItemInput, 0, len(list.Items))
	var missing []string
	for _, item := range list.Items {
		if item.ProductID == nil {
			missing = append(missing, item.Name)
			continue
		}
		items = append(items, orders.ItemInput{ProductID: *item.ProductID, Quantity: item.Quantity})
	}
	if len(missing) > 0 || len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "every item must reference a catalog product").
			WithDetails(map[string]any{"unlinked_items": missing})
	}
	return items, nil
}

func (s *service) requireAgent(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "assignee id required")
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return roles.RequireAssignee(nil, enums.RoleAgent)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assignee")
	}
	return roles.RequireAssignee(user, enums.RoleAgent)
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, data payloads.ShoppingListEvent, actorID uuid.UUID, actorRole enums.Role) error {
	event := outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateShoppingList,
		AggregateID:   data.ShoppingListID,
		Actor:         &outbox.ActorRef{UserID: actorID, Role: string(actorRole)},
		Data:          data,
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit "+string(eventType))
	}
	return nil
}

func appendNote(existing *string, note string) string {
	note = strings.TrimSpace(note)
	if existing == nil || *existing == "" {
		return note
	}
	return *existing + "\n" + note
}

func closedError(status enums.ShoppingListStatus) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, "shopping list is closed").
		WithDetails(map[string]any{"status": status})
}

func mapLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "shopping list not found")
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shopping list")
}
