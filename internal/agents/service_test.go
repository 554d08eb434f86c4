package agents

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/naijamall/naijamall-backend/internal/catalog"
	"github.com/naijamall/naijamall-backend/internal/fees"
	"github.com/naijamall/naijamall-backend/internal/orders"
	"github.com/naijamall/naijamall-backend/internal/reports"
	"github.com/naijamall/naijamall-backend/internal/settlement"
	"github.com/naijamall/naijamall-backend/internal/users"
	"github.com/naijamall/naijamall-backend/pkg/db/dbtest"
	"github.com/naijamall/naijamall-backend/pkg/db/models"
	"github.com/naijamall/naijamall-backend/pkg/enums"
	pkgerrors "github.com/naijamall/naijamall-backend/pkg/errors"
	"github.com/naijamall/naijamall-backend/pkg/outbox"
	"github.com/naijamall/naijamall-backend/pkg/pagination"
)

type fixture struct {
	conn   *gorm.DB
	svc    Service
	orders orders.Service
	agent  orders.Viewer
	cs     orders.Viewer
	order  uuid.UUID
}

// newFixture places a paid order and hands it to an agent.
func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	client := dbtest.Client(t)
	conn := client.DB()
	events := outbox.NewService(outbox.NewRepository(conn), nil)
	stock, err := catalog.NewService(catalog.NewRepository(conn))
	require.NoError(t, err)
	engine, err := settlement.NewEngine(events, nil, nil, nil)
	require.NoError(t, err)
	userRepo := users.NewRepository(conn)
	orderRepo := orders.NewRepository(conn)
	orderSvc, err := orders.NewService(orderRepo, client, events, stock, engine, userRepo, fees.NewCalculator(nil), nil)
	require.NoError(t, err)
	stats, err := reports.NewService(reports.NewRepository(conn), userRepo)
	require.NoError(t, err)
	svc, err := NewService(orderSvc, stats)
	require.NoError(t, err)

	buyer := dbtest.SeedUser(t, conn, enums.RoleBuyer)
	seller := dbtest.SeedUser(t, conn, enums.RoleSeller)
	agent := dbtest.SeedUser(t, conn, enums.RoleAgent)
	cs := dbtest.SeedUser(t, conn, enums.RoleCustomerService)
	garri := dbtest.SeedProduct(t, conn, seller.ID, "Garri 2kg", "1800", 20)

	placed, err := orderSvc.CreateOrder(ctx, orders.CreateOrderInput{
		BuyerID:         buyer.ID,
		Items:           []orders.ItemInput{{ProductID: garri.ID, Quantity: 3}},
		ShippingAddress: orders.AddressDTO{Street: "4 Ring Road", City: "Ibadan", State: "Oyo", Phone: "+2348023334444"},
		PaymentMethod:   enums.PaymentMethodCard,
	})
	require.NoError(t, err)
	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := orderRepo.WithTx(tx).FindForUpdate(ctx, placed.ID)
		if err != nil {
			return err
		}
		return orderSvc.ApplyPaymentHeld(ctx, tx, order, "PAY-agent-1")
	}))

	f := fixture{
		conn:   conn,
		svc:    svc,
		orders: orderSvc,
		agent:  orders.Viewer{UserID: agent.ID, Role: enums.RoleAgent},
		cs:     orders.Viewer{UserID: cs.ID, Role: enums.RoleCustomerService},
		order:  placed.ID,
	}
	_, err = orderSvc.AssignAgent(ctx, orders.AssignAgentInput{OrderID: placed.ID, AgentID: agent.ID, ActorID: cs.ID, ActorRole: enums.RoleCustomerService})
	require.NoError(t, err)
	return f
}

func TestListAssignedOnlyShowsOwnOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	list, err := f.svc.ListAssigned(ctx, f.agent, nil, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, list.Orders, 1)
	assert.Equal(t, f.order, list.Orders[0].ID)

	shopping := enums.OrderStatusShopping
	list, err = f.svc.ListAssigned(ctx, f.agent, &shopping, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, list.Orders, 1)

	other := dbtest.SeedUser(t, f.conn, enums.RoleAgent)
	list, err = f.svc.ListAssigned(ctx, orders.Viewer{UserID: other.ID, Role: enums.RoleAgent}, nil, pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, list.Orders)

	_, err = f.svc.Get(ctx, f.order, orders.Viewer{UserID: other.ID, Role: enums.RoleAgent})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.ListAssigned(ctx, f.cs, nil, pagination.Params{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestCompleteShoppingAppendsNotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.UpdateStatus(ctx, StatusInput{OrderID: f.order, Agent: f.agent, Status: enums.OrderStatusDelivered})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	notes := "Bought the last three bags at Bodija"
	dto, err := f.svc.CompleteShopping(ctx, f.order, f.agent, &notes)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusReadyForDelivery, dto.Status)

	var stored models.Order
	require.NoError(t, f.conn.First(&stored, "id = ?", f.order).Error)
	require.NotNil(t, stored.InternalNotes)
	assert.Contains(t, *stored.InternalNotes, notes)

	_, err = f.svc.CompleteShopping(ctx, f.order, f.agent, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))

	stats, err := f.svc.Stats(ctx, f.agent)
	require.NoError(t, err)
	assert.Equal(t, reports.AgentStats{TotalAssigned: 1, InProgress: 0, Completed: 1}, *stats)
}
