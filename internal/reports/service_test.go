package reports

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/naijamall/naijamall-backend/internal/users"
	"github.com/naijamall/naijamall-backend/pkg/db/dbtest"
	"github.com/naijamall/naijamall-backend/pkg/db/models"
	"github.com/naijamall/naijamall-backend/pkg/enums"
	pkgerrors "github.com/naijamall/naijamall-backend/pkg/errors"
)

type orderFixture struct {
	status   enums.OrderStatus
	delivery enums.DeliveryStatus
	riderID  *uuid.UUID
	agentID  *uuid.UUID
	released *time.Time
	created  time.Time
}

func seed(t *testing.T, conn *gorm.DB, fx orderFixture) *models.Order {
	t.Helper()
	if fx.delivery == "" {
		fx.delivery = enums.DeliveryNotAssigned
	}
	order := &models.Order{
		OrderNumber:          "NM" + uuid.NewString()[:11],
		BuyerID:              uuid.New(),
		ShippingAddress:      models.Address{Street: "1 Marina", City: "Lagos", State: "Lagos", Phone: "+2348000000001"},
		PaymentMethod:        enums.PaymentMethodCard,
		ItemsTotal:           decimal.NewFromInt(6000),
		EscrowFee:            decimal.NewFromInt(500),
		MarketProcurementFee: decimal.NewFromInt(2500),
		DeliveryFee:          decimal.NewFromInt(1000),
		TotalAmount:          decimal.NewFromInt(10000),
		Status:               fx.status,
		PaymentStatus:        enums.OrderPaymentPending,
		DeliveryStatus:       fx.delivery,
		RiderID:              fx.riderID,
		AssignedAgentID:      fx.agentID,
		CreatedAt:            fx.created,
	}
	if fx.released != nil {
		order.PaymentStatus = enums.OrderPaymentReleased
	}
	require.NoError(t, conn.Create(order).Error)
	if fx.released != nil {
		payment := &models.Payment{
			OrderID:          order.ID,
			BuyerID:          order.BuyerID,
			Amount:           order.TotalAmount,
			PaymentMethod:    order.PaymentMethod,
			Gateway:          "paystack",
			Reference:        "PAY-" + uuid.NewString(),
			Status:           enums.PaymentStatusReleased,
			EscrowStatus:     enums.EscrowReleasedToSellers,
			EscrowReleasedAt: fx.released,
			Fees: models.PaymentFees{
				PlatformTotal: decimal.NullDecimal{Decimal: decimal.NewFromInt(4400), Valid: true},
			},
		}
		require.NoError(t, conn.Create(payment).Error)
	}
	return order
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn), users.NewRepository(conn))
	require.NoError(t, err)
	return svc, conn
}

func TestRevenueGroupsReleasedOrdersByDay(t *testing.T) {
	svc, conn := newTestService(t)
	now := time.Now().UTC()
	dayOne := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	dayTwo := time.Date(2026, 3, 3, 15, 30, 0, 0, time.UTC)
	seed(t, conn, orderFixture{status: enums.OrderStatusDelivered, released: &dayOne, created: now})
	seed(t, conn, orderFixture{status: enums.OrderStatusDelivered, released: &dayOne, created: now})
	seed(t, conn, orderFixture{status: enums.OrderStatusDelivered, released: &dayTwo, created: now})
	seed(t, conn, orderFixture{status: enums.OrderStatusConfirmed, created: now})

	report, err := svc.Revenue(context.Background(), enums.RoleAdmin,
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 3, report.Summary.Orders)
	assert.Equal(t, "30000", report.Summary.Total.String())
	assert.Equal(t, "1500", report.Summary.EscrowFees.String())
	assert.Equal(t, "3000", report.Summary.DeliveryFees.String())
	assert.Equal(t, "13200", report.Summary.PlatformEarnings.String())
	require.Len(t, report.Daily, 2)
	assert.Equal(t, "2026-03-02", report.Daily[0].Date)
	assert.Equal(t, 2, report.Daily[0].Orders)
	assert.Equal(t, "2026-03-03", report.Daily[1].Date)

	_, err = svc.Revenue(context.Background(), enums.RoleCustomerService, time.Time{}, time.Time{})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = svc.Revenue(context.Background(), enums.RoleAdmin, dayTwo, dayOne)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDashboardCountsOrdersAndUsers(t *testing.T) {
	svc, conn := newTestService(t)
	now := time.Now().UTC()
	released := now.Add(-time.Hour)
	dbtest.SeedUser(t, conn, enums.RoleBuyer)
	dbtest.SeedUser(t, conn, enums.RoleBuyer)
	dbtest.SeedUser(t, conn, enums.RoleRider)
	seed(t, conn, orderFixture{status: enums.OrderStatusPending, created: now})
	seed(t, conn, orderFixture{status: enums.OrderStatusCancelled, created: now})
	seed(t, conn, orderFixture{status: enums.OrderStatusDelivered, released: &released, created: now})

	dash, err := svc.Dashboard(context.Background(), enums.RoleAdmin)
	require.NoError(t, err)
	assert.EqualValues(t, 2, dash.UsersByRole[enums.RoleBuyer])
	assert.EqualValues(t, 1, dash.UsersByRole[enums.RoleRider])
	assert.Equal(t, OrderCounts{Total: 3, Pending: 1, Delivered: 1, Cancelled: 1}, dash.Orders)
	assert.Equal(t, 1, dash.Revenue.Orders)
	assert.Len(t, dash.RecentOrders, 3)
}

func TestOrderAnalyticsWindow(t *testing.T) {
	svc, conn := newTestService(t)
	now := time.Now().UTC()
	seed(t, conn, orderFixture{status: enums.OrderStatusPending, created: now.Add(-45 * 24 * time.Hour)})
	seed(t, conn, orderFixture{status: enums.OrderStatusPending, created: now.Add(-48 * time.Hour)})
	seed(t, conn, orderFixture{status: enums.OrderStatusConfirmed, created: now.Add(-48 * time.Hour).Add(time.Minute)})
	seed(t, conn, orderFixture{status: enums.OrderStatusConfirmed, created: now})

	out, err := svc.OrderAnalytics(context.Background(), enums.RoleCustomerService, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, out.OrdersByStatus[enums.OrderStatusPending])
	assert.EqualValues(t, 2, out.OrdersByStatus[enums.OrderStatusConfirmed])
	var total int64
	for _, day := range out.OrdersByDay {
		total += day.Count
	}
	assert.EqualValues(t, 3, total)

	since := now.Add(-60 * 24 * time.Hour)
	out, err = svc.OrderAnalytics(context.Background(), enums.RoleAdmin, &since)
	require.NoError(t, err)
	assert.EqualValues(t, 2, out.OrdersByStatus[enums.OrderStatusPending])

	_, err = svc.OrderAnalytics(context.Background(), enums.RoleAgent, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestRiderAndAgentStats(t *testing.T) {
	svc, conn := newTestService(t)
	now := time.Now().UTC()
	rider, agent := uuid.New(), uuid.New()
	released := now.Add(-time.Hour)
	seed(t, conn, orderFixture{status: enums.OrderStatusOutForDelivery, delivery: enums.DeliveryInTransit, riderID: &rider, agentID: &agent, created: now})
	seed(t, conn, orderFixture{status: enums.OrderStatusDelivered, delivery: enums.DeliveryDelivered, riderID: &rider, agentID: &agent, released: &released, created: now})
	seed(t, conn, orderFixture{status: enums.OrderStatusDelivered, delivery: enums.DeliveryDelivered, riderID: &rider, created: now})
	seed(t, conn, orderFixture{status: enums.OrderStatusShopping, agentID: &agent, created: now})

	riderStats, err := svc.RiderStats(context.Background(), rider)
	require.NoError(t, err)
	assert.EqualValues(t, 1, riderStats.ActiveDeliveries)
	assert.EqualValues(t, 2, riderStats.CompletedDeliveries)
	assert.Equal(t, "900", riderStats.TotalEarnings.String())

	agentStats, err := svc.AgentStats(context.Background(), agent)
	require.NoError(t, err)
	assert.Equal(t, AgentStats{TotalAssigned: 3, InProgress: 1, Completed: 2}, *agentStats)
}

func addItem(t *testing.T, conn *gorm.DB, order *models.Order, sellerID, productID uuid.UUID, name string, qty int, subtotal int64) {
	t.Helper()
	require.NoError(t, conn.Create(&models.OrderItem{
		OrderID:     order.ID,
		ProductID:   productID,
		SellerID:    sellerID,
		ProductName: name,
		Quantity:    qty,
		UnitPrice:   decimal.NewFromInt(subtotal / int64(qty)),
		Subtotal:    decimal.NewFromInt(subtotal),
	}).Error)
}

func TestSellerAnalyticsCoversOwnItems(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	today := time.Now().UTC().Truncate(24 * time.Hour)
	dayOne := today.AddDate(0, 0, -3).Add(10 * time.Hour)
	dayTwo := today.AddDate(0, 0, -1).Add(10 * time.Hour)
	seller, rival := uuid.New(), uuid.New()
	rice, beans, garri := uuid.New(), uuid.New(), uuid.New()

	first := seed(t, conn, orderFixture{status: enums.OrderStatusDelivered, created: dayOne})
	addItem(t, conn, first, seller, rice, "Ofada rice", 2, 7000)
	addItem(t, conn, first, rival, uuid.New(), "Honey beans", 9, 9000)
	second := seed(t, conn, orderFixture{status: enums.OrderStatusDelivered, created: dayOne.Add(time.Minute)})
	addItem(t, conn, second, seller, rice, "Ofada rice", 1, 3500)
	addItem(t, conn, second, seller, beans, "Brown beans", 3, 6000)
	shopping := seed(t, conn, orderFixture{status: enums.OrderStatusShopping, created: dayTwo})
	addItem(t, conn, shopping, seller, garri, "Ijebu garri", 4, 2000)
	cancelled := seed(t, conn, orderFixture{status: enums.OrderStatusCancelled, created: dayTwo.Add(time.Minute)})
	addItem(t, conn, cancelled, seller, uuid.New(), "Yam tubers", 50, 50000)
	confirmed := seed(t, conn, orderFixture{status: enums.OrderStatusConfirmed, created: dayTwo.Add(2 * time.Minute)})
	addItem(t, conn, confirmed, seller, uuid.New(), "Pepper", 1, 500)
	addItem(t, conn, confirmed, seller, uuid.New(), "Onions", 1, 400)
	addItem(t, conn, confirmed, seller, uuid.New(), "Palm oil", 1, 3000)
	old := seed(t, conn, orderFixture{status: enums.OrderStatusDelivered, created: today.AddDate(0, 0, -40)})
	addItem(t, conn, old, seller, rice, "Ofada rice", 10, 35000)

	period, err := ParsePeriod("")
	require.NoError(t, err)
	require.Equal(t, Period30Days, period)

	out, err := svc.SellerAnalytics(ctx, seller, enums.RoleSeller, period)
	require.NoError(t, err)
	require.Len(t, out.Revenue, 1)
	assert.Equal(t, dayOne.Format("2006-01-02"), out.Revenue[0].Date)
	assert.Equal(t, "16500", out.Revenue[0].Amount.String())
	assert.Equal(t, []DayCount{
		{Date: dayOne.Format("2006-01-02"), Count: 6},
		{Date: dayTwo.Format("2006-01-02"), Count: 7},
	}, out.UnitsSold)
	require.Len(t, out.TopProducts, 5)
	var names []string
	for _, product := range out.TopProducts {
		names = append(names, product.ProductName)
	}
	assert.Equal(t, []string{"Ijebu garri", "Brown beans", "Ofada rice", "Onions", "Palm oil"}, names)
	assert.Equal(t, rice, out.TopProducts[2].ProductID)
	assert.EqualValues(t, 3, out.TopProducts[2].UnitsSold)
	assert.Equal(t, map[enums.OrderStatus]int64{
		enums.OrderStatusDelivered: 2,
		enums.OrderStatusShopping:  1,
		enums.OrderStatusCancelled: 1,
		enums.OrderStatusConfirmed: 1,
	}, out.OrdersByStatus)

	out, err = svc.SellerAnalytics(ctx, seller, enums.RoleSeller, Period90Days)
	require.NoError(t, err)
	require.Len(t, out.Revenue, 2)
	assert.Equal(t, "35000", out.Revenue[0].Amount.String())
	assert.Equal(t, "Ofada rice", out.TopProducts[0].ProductName)
	assert.EqualValues(t, 13, out.TopProducts[0].UnitsSold)
	assert.EqualValues(t, 3, out.OrdersByStatus[enums.OrderStatusDelivered])

	out, err = svc.SellerAnalytics(ctx, rival, enums.RoleSeller, Period7Days)
	require.NoError(t, err)
	require.Len(t, out.TopProducts, 1)
	assert.Equal(t, "Honey beans", out.TopProducts[0].ProductName)
	assert.Equal(t, "9000", out.Revenue[0].Amount.String())

	_, err = svc.SellerAnalytics(ctx, seller, enums.RoleAdmin, Period30Days)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = ParsePeriod("2weeks")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
