// Package agents is the market agent workspace: orders assigned for shopping and their progress.
package agents

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/naijamall/naijamall-backend/internal/orders"
	"github.com/naijamall/naijamall-backend/internal/reports"
	"github.com/naijamall/naijamall-backend/pkg/enums"
	pkgerrors "github.com/naijamall/naijamall-backend/pkg/errors"
	"github.com/naijamall/naijamall-backend/pkg/pagination"
)

type statsSource interface {
	AgentStats(ctx context.Context, agentID uuid.UUID) (*reports.AgentStats, error)
}

type Service interface {
	ListAssigned(ctx context.Context, agent orders.Viewer, status *enums.OrderStatus, params pagination.Params) (*orders.OrderList, error)
	Get(ctx context.Context, orderID uuid.UUID, agent orders.Viewer) (*orders.OrderDTO, error)
	UpdateStatus(ctx context.Context, input StatusInput) (*orders.OrderDTO, error)
	CompleteShopping(ctx context.Context, orderID uuid.UUID, agent orders.Viewer, notes *string) (*orders.OrderDTO, error)
	Stats(ctx context.Context, agent orders.Viewer) (*reports.AgentStats, error)
}

type StatusInput struct {
	OrderID uuid.UUID
	Agent   orders.Viewer
	Status  enums.OrderStatus
	Notes   *string
}

type service struct {
	orders orders.Service
	stats  statsSource
}

func NewService(orderSvc orders.Service, stats statsSource) (Service, error) {
	if orderSvc == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if stats == nil {
		return nil, fmt.Errorf("stats source required")
	}
	return &service{orders: orderSvc, stats: stats}, nil
}

func requireAgent(viewer orders.Viewer) error {
	if viewer.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if viewer.Role != enums.RoleAgent {
		return pkgerrors.New(pkgerrors.CodeForbidden, "agent role required")
	}
	return nil
}

func (s *service) ListAssigned(ctx context.Context, agent orders.Viewer, status *enums.OrderStatus, params pagination.Params) (*orders.OrderList, error) {
	if err := requireAgent(agent); err != nil {
		return nil, err
	}
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status").
			WithDetails(map[string]any{"status": *status})
	}
	agentID := agent.UserID
	query := orders.Query{ListFilters: orders.ListFilters{Status: status}, AgentID: &agentID}
	return s.orders.Search(ctx, agent.Role, query, params)
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID, agent orders.Viewer) (*orders.OrderDTO, error) {
	if err := requireAgent(agent); err != nil {
		return nil, err
	}
	return s.orders.GetOrder(ctx, orderID, agent)
}

// UpdateStatus moves an assigned order to shopping or ready_for_delivery. Notes land in the
// internal notes.
func (s *service) UpdateStatus(ctx context.Context, input StatusInput) (*orders.OrderDTO, error) {
	if err := requireAgent(input.Agent); err != nil {
		return nil, err
	}
	switch input.Status {
	case enums.OrderStatusShopping, enums.OrderStatusReadyForDelivery:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be shopping or ready_for_delivery").
			WithDetails(map[string]any{"status": input.Status})
	}
	return s.orders.UpdateStatus(ctx, orders.UpdateStatusInput{
		OrderID:   input.OrderID,
		Status:    input.Status,
		ActorID:   input.Agent.UserID,
		ActorRole: input.Agent.Role,
		Notes:     input.Notes,
	})
}

func (s *service) CompleteShopping(ctx context.Context, orderID uuid.UUID, agent orders.Viewer, notes *string) (*orders.OrderDTO, error) {
	if err := requireAgent(agent); err != nil {
		return nil, err
	}
	return s.orders.UpdateStatus(ctx, orders.UpdateStatusInput{
		OrderID:     orderID,
		Status:      enums.OrderStatusReadyForDelivery,
		ActorID:     agent.UserID,
		ActorRole:   agent.Role,
		Description: "Shopping completed, ready for delivery",
		Notes:       notes,
	})
}

func (s *service) Stats(ctx context.Context, agent orders.Viewer) (*reports.AgentStats, error) {
	if err := requireAgent(agent); err != nil {
		return nil, err
	}
	return s.stats.AgentStats(ctx, agent.UserID)
}
