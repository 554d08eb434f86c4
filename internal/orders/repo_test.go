package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/naijamall/naijamall-backend/pkg/db/dbtest"
	"github.com/naijamall/naijamall-backend/pkg/db/models"
	"github.com/naijamall/naijamall-backend/pkg/enums"
	"github.com/naijamall/naijamall-backend/pkg/pagination"
)

func seedOrder(t *testing.T, conn *gorm.DB, buyerID uuid.UUID, number string, status enums.OrderStatus, sellers ...uuid.UUID) *models.Order {
	t.Helper()
	order := &models.Order{
		OrderNumber:          number,
		BuyerID:              buyerID,
		ShippingAddress:      models.Address{Street: "3 Adeola Odeku", City: "Victoria Island", State: "Lagos", Phone: "+2348000000000"},
		PaymentMethod:        enums.PaymentMethodBankTransfer,
		ItemsTotal:           decimal.NewFromInt(int64(1000 * len(sellers))),
		EscrowFee:            decimal.NewFromInt(500),
		MarketProcurementFee: decimal.NewFromInt(1500),
		DeliveryFee:          decimal.NewFromInt(1000),
		Status:               status,
		PaymentStatus:        enums.OrderPaymentPending,
		DeliveryStatus:       enums.DeliveryNotAssigned,
	}
	order.TotalAmount = order.ItemsTotal.Add(decimal.NewFromInt(3000))
	for i, seller := range sellers {
		order.Items = append(order.Items, models.OrderItem{
			ProductID:   uuid.New(),
			SellerID:    seller,
			ProductName: "Garri",
			Quantity:    1,
			UnitPrice:   decimal.NewFromInt(1000),
			Subtotal:    decimal.NewFromInt(1000),
			Position:    i,
		})
	}
	require.NoError(t, NewRepository(conn).Create(context.Background(), order))
	return order
}

func TestRepositoryListScopesByParticipant(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	buyerA, buyerB := uuid.New(), uuid.New()
	sellerA, sellerB := uuid.New(), uuid.New()

	first := seedOrder(t, conn, buyerA, "NM00000001001", enums.OrderStatusPending, sellerA)
	seedOrder(t, conn, buyerA, "NM00000002002", enums.OrderStatusConfirmed, sellerA, sellerB)
	seedOrder(t, conn, buyerB, "NM00000003003", enums.OrderStatusConfirmed, sellerB)

	rows, next, err := repo.List(ctx, Query{BuyerID: &buyerA}, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Empty(t, next)

	rows, _, err = repo.List(ctx, Query{SellerID: &sellerB}, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	confirmed := enums.OrderStatusConfirmed
	rows, _, err = repo.List(ctx, Query{ListFilters: ListFilters{Status: &confirmed}, SellerID: &sellerA}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "NM00000002002", rows[0].OrderNumber)
	require.Len(t, rows[0].Items, 2)
	assert.Equal(t, sellerA, rows[0].Items[0].SellerID)

	rows, _, err = repo.List(ctx, Query{ListFilters: ListFilters{OrderNumber: "nm00000001"}}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, first.ID, rows[0].ID)

	rows, next, err = repo.List(ctx, Query{}, pagination.Params{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.NotEmpty(t, next)
}

func TestRepositoryLoadsHistoryInOrder(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	order := seedOrder(t, conn, uuid.New(), "NM00000004004", enums.OrderStatusPending, uuid.New(), uuid.New(), uuid.New())

	for seq, status := range []string{"pending", "confirmed", "shopping"} {
		require.NoError(t, repo.AppendTracking(ctx, &models.OrderTrackingEntry{
			OrderID: order.ID, Seq: 3 - seq, Status: status, Description: status,
		}))
	}
	require.NoError(t, repo.AppendAssignment(ctx, &models.OrderAssignment{OrderID: order.ID, AssignedToID: uuid.New(), Role: enums.RoleAgent}))
	require.NoError(t, repo.Update(ctx, order.ID, map[string]any{"status": enums.OrderStatusShopping}))

	loaded, err := repo.FindForUpdate(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusShopping, loaded.Status)
	require.Len(t, loaded.Items, 3)
	for i, item := range loaded.Items {
		assert.Equal(t, i, item.Position)
	}
	require.Len(t, loaded.TrackingHistory, 3)
	assert.Equal(t, "shopping", loaded.TrackingHistory[0].Status)
	assert.Equal(t, 4, loaded.NextTrackingSeq())
	assert.Len(t, loaded.AssignmentHistory, 1)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryRejectsDuplicateOrderNumber(t *testing.T) {
	conn := dbtest.Open(t)
	seedOrder(t, conn, uuid.New(), "NM00000005005", enums.OrderStatusPending, uuid.New())

	dup := &models.Order{
		OrderNumber:   "NM00000005005",
		BuyerID:       uuid.New(),
		PaymentMethod: enums.PaymentMethodCard,
	}
	err := NewRepository(conn).Create(context.Background(), dup)
	require.Error(t, err)
}
