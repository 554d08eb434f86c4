// Package deliveries is the rider workspace over the order aggregate.
package deliveries

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/naijamall/naijamall-backend/internal/orders"
	"github.com/naijamall/naijamall-backend/internal/reports"
	"github.com/naijamall/naijamall-backend/internal/users"
	"github.com/naijamall/naijamall-backend/pkg/enums"
	pkgerrors "github.com/naijamall/naijamall-backend/pkg/errors"
	"github.com/naijamall/naijamall-backend/pkg/pagination"
)

type statsSource interface {
	RiderStats(ctx context.Context, riderID uuid.UUID) (*reports.RiderStats, error)
}

type userDirectory interface {
	ListActiveByRole(ctx context.Context, role enums.Role) ([]users.UserDTO, error)
}

type Service interface {
	ListAvailable(ctx context.Context, rider orders.Viewer, params pagination.Params) (*orders.OrderList, error)
	ListMine(ctx context.Context, rider orders.Viewer, status *enums.DeliveryStatus, params pagination.Params) (*orders.OrderList, error)
	Accept(ctx context.Context, orderID uuid.UUID, rider orders.Viewer) (*orders.OrderDTO, error)
	UpdateStatus(ctx context.Context, input StatusInput) (*orders.OrderDTO, error)
	Stats(ctx context.Context, rider orders.Viewer) (*reports.RiderStats, error)
	ListActiveRiders(ctx context.Context, actorRole enums.Role) ([]users.UserDTO, error)
}

type StatusInput struct {
	OrderID  uuid.UUID
	Rider    orders.Viewer
	Status   enums.DeliveryStatus
	Location *string
	Notes    *string
}

type service struct {
	orders orders.Service
	stats  statsSource
	users  userDirectory
}

func NewService(orderSvc orders.Service, stats statsSource, directory userDirectory) (Service, error) {
	if orderSvc == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if stats == nil {
		return nil, fmt.Errorf("stats source required")
	}
	if directory == nil {
		return nil, fmt.Errorf("user directory required")
	}
	return &service{orders: orderSvc, stats: stats, users: directory}, nil
}

func requireRider(viewer orders.Viewer) error {
	if viewer.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if viewer.Role != enums.RoleRider {
		return pkgerrors.New(pkgerrors.CodeForbidden, "rider role required")
	}
	return nil
}

// ListAvailable lists orders ready for delivery that no rider holds yet.
func (s *service) ListAvailable(ctx context.Context, rider orders.Viewer, params pagination.Params) (*orders.OrderList, error) {
	if err := requireRider(rider); err != nil {
		return nil, err
	}
	status := enums.OrderStatusReadyForDelivery
	delivery := enums.DeliveryNotAssigned
	query := orders.Query{ListFilters: orders.ListFilters{Status: &status, DeliveryStatus: &delivery}}
	return s.orders.Search(ctx, rider.Role, query, params)
}

func (s *service) ListMine(ctx context.Context, rider orders.Viewer, status *enums.DeliveryStatus, params pagination.Params) (*orders.OrderList, error) {
	if err := requireRider(rider); err != nil {
		return nil, err
	}
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery status").
			WithDetails(map[string]any{"status": *status})
	}
	riderID := rider.UserID
	query := orders.Query{ListFilters: orders.ListFilters{DeliveryStatus: status}, RiderID: &riderID}
	return s.orders.Search(ctx, rider.Role, query, params)
}

func (s *service) Accept(ctx context.Context, orderID uuid.UUID, rider orders.Viewer) (*orders.OrderDTO, error) {
	if err := requireRider(rider); err != nil {
		return nil, err
	}
	return s.orders.AcceptDelivery(ctx, orderID, rider)
}

func (s *service) UpdateStatus(ctx context.Context, input StatusInput) (*orders.OrderDTO, error) {
	if err := requireRider(input.Rider); err != nil {
		return nil, err
	}
	return s.orders.UpdateDeliveryStatus(ctx, orders.DeliveryStatusInput{
		OrderID:  input.OrderID,
		RiderID:  input.Rider.UserID,
		Status:   input.Status,
		Location: input.Location,
		Notes:    input.Notes,
	})
}

func (s *service) Stats(ctx context.Context, rider orders.Viewer) (*reports.RiderStats, error) {
	if err := requireRider(rider); err != nil {
		return nil, err
	}
	return s.stats.RiderStats(ctx, rider.UserID)
}

func (s *service) ListActiveRiders(ctx context.Context, actorRole enums.Role) ([]users.UserDTO, error) {
	if !actorRole.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return s.users.ListActiveByRole(ctx, enums.RoleRider)
}
