// Package support is the customer service workspace.
package support

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/naijamall/naijamall-backend/internal/orders"
	"github.com/naijamall/naijamall-backend/internal/reports"
	"github.com/naijamall/naijamall-backend/internal/users"
	"github.com/naijamall/naijamall-backend/pkg/enums"
	pkgerrors "github.com/naijamall/naijamall-backend/pkg/errors"
	"github.com/naijamall/naijamall-backend/pkg/pagination"
)

type analyticsSource interface {
	OrderAnalytics(ctx context.Context, actorRole enums.Role, since *time.Time) (*reports.OrderAnalytics, error)
}

type userDirectory interface {
	ListActiveByRole(ctx context.Context, role enums.Role) ([]users.UserDTO, error)
}

type Service interface {
	ListOrders(ctx context.Context, actor orders.Viewer, filters orders.ListFilters, params pagination.Params) (*orders.OrderList, error)
	MyOrders(ctx context.Context, actor orders.Viewer, status *enums.OrderStatus, params pagination.Params) (*orders.OrderList, error)
	Get(ctx context.Context, orderID uuid.UUID, actor orders.Viewer) (*orders.OrderDTO, error)
	AssignAgent(ctx context.Context, input orders.AssignAgentInput) (*orders.OrderDTO, error)
	UpdateInternalNotes(ctx context.Context, input orders.NotesInput) (*orders.OrderDTO, error)
	ListActiveAgents(ctx context.Context, actor orders.Viewer) ([]users.UserDTO, error)
	Analytics(ctx context.Context, actor orders.Viewer, since *time.Time) (*reports.OrderAnalytics, error)
}

type service struct {
	orders    orders.Service
	analytics analyticsSource
	users     userDirectory
}

func NewService(orderSvc orders.Service, analytics analyticsSource, directory userDirectory) (Service, error) {
	if orderSvc == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if analytics == nil {
		return nil, fmt.Errorf("analytics source required")
	}
	if directory == nil {
		return nil, fmt.Errorf("user directory required")
	}
	return &service{orders: orderSvc, analytics: analytics, users: directory}, nil
}

func requireStaff(viewer orders.Viewer) error {
	if viewer.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !viewer.Role.IsStaff() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "customer service role required")
	}
	return nil
}

func (s *service) ListOrders(ctx context.Context, actor orders.Viewer, filters orders.ListFilters, params pagination.Params) (*orders.OrderList, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	return s.orders.ListOrders(ctx, actor, filters, params)
}

// MyOrders lists the orders this support user delegated to an agent.
func (s *service) MyOrders(ctx context.Context, actor orders.Viewer, status *enums.OrderStatus, params pagination.Params) (*orders.OrderList, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status").
			WithDetails(map[string]any{"status": *status})
	}
	csID := actor.UserID
	query := orders.Query{ListFilters: orders.ListFilters{Status: status}, CustomerServiceID: &csID}
	return s.orders.Search(ctx, actor.Role, query, params)
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID, actor orders.Viewer) (*orders.OrderDTO, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	return s.orders.GetOrder(ctx, orderID, actor)
}

func (s *service) AssignAgent(ctx context.Context, input orders.AssignAgentInput) (*orders.OrderDTO, error) {
	return s.orders.AssignAgent(ctx, input)
}

func (s *service) UpdateInternalNotes(ctx context.Context, input orders.NotesInput) (*orders.OrderDTO, error) {
	return s.orders.UpdateInternalNotes(ctx, input)
}

func (s *service) ListActiveAgents(ctx context.Context, actor orders.Viewer) ([]users.UserDTO, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	return s.users.ListActiveByRole(ctx, enums.RoleAgent)
}

func (s *service) Analytics(ctx context.Context, actor orders.Viewer, since *time.Time) (*reports.OrderAnalytics, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	return s.analytics.OrderAnalytics(ctx, actor.Role, since)
}
