package shoppinglists

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/naijamall/naijamall-backend/internal/catalog"
	"github.com/naijamall/naijamall-backend/internal/fees"
	"github.com/naijamall/naijamall-backend/internal/orders"
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
	buyer  *models.User
	agent  *models.User
	cs     *models.User
	yam    *models.Product
	tomato *models.Product
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client := dbtest.Client(t)
	conn := client.DB()
	events := outbox.NewService(outbox.NewRepository(conn), nil)
	stock, err := catalog.NewService(catalog.NewRepository(conn))
	require.NoError(t, err)
	engine, err := settlement.NewEngine(events, nil, nil, nil)
	require.NoError(t, err)
	userRepo := users.NewRepository(conn)
	orderSvc, err := orders.NewService(orders.NewRepository(conn), client, events, stock, engine, userRepo, fees.NewCalculator(nil), nil)
	require.NoError(t, err)
	svc, err := NewService(NewRepository(conn), client, events, orderSvc, userRepo, nil)
	require.NoError(t, err)

	seller := dbtest.SeedUser(t, conn, enums.RoleSeller)
	return fixture{
		conn:   conn,
		svc:    svc,
		buyer:  dbtest.SeedUser(t, conn, enums.RoleBuyer),
		agent:  dbtest.SeedUser(t, conn, enums.RoleAgent),
		cs:     dbtest.SeedUser(t, conn, enums.RoleCustomerService),
		yam:    dbtest.SeedProduct(t, conn, seller.ID, "Yam tuber", "2500", 6),
		tomato: dbtest.SeedProduct(t, conn, seller.ID, "Tomato basket", "4000", 2),
	}
}

func (f fixture) address() orders.AddressDTO {
	return orders.AddressDTO{Street: "7 Ogui Road", City: "Enugu", State: "Enugu", Phone: "+2348091112222"}
}

func (f fixture) create(t *testing.T, items ...ItemInput) *ShoppingListDTO {
	t.Helper()
	dto, err := f.svc.Create(context.Background(), CreateInput{
		BuyerID:         f.buyer.ID,
		Items:           items,
		ShippingAddress: f.address(),
	})
	require.NoError(t, err)
	return dto
}

func (f fixture) assign(t *testing.T, id uuid.UUID) {
	t.Helper()
	_, err := f.svc.Assign(context.Background(), AssignInput{
		ListID: id, AgentID: f.agent.ID, ActorID: f.cs.ID, ActorRole: enums.RoleCustomerService,
	})
	require.NoError(t, err)
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	assert.Equal(t, code, typed.Code(), typed.Error())
}

func TestCreateEstimatesRequestedPrices(t *testing.T) {
	f := newFixture(t)
	price := decimal.NewFromInt(1200)
	dto := f.create(t,
		ItemInput{Name: "Ugu leaves", Quantity: 3, RequestedPrice: &price},
		ItemInput{ProductID: &f.yam.ID, Name: "Yam tuber", Quantity: 1},
	)
	assert.Equal(t, enums.ShoppingListPending, dto.Status)
	require.NotNil(t, dto.EstimatedTotal)
	assert.Equal(t, "3600", dto.EstimatedTotal.String())
	assert.Len(t, dto.Items, 2)

	_, err := f.svc.Create(context.Background(), CreateInput{BuyerID: f.buyer.ID, ShippingAddress: f.address()})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestAssignRecordsHistory(t *testing.T) {
	f := newFixture(t)
	dto := f.create(t, ItemInput{ProductID: &f.yam.ID, Name: "Yam tuber", Quantity: 1})

	_, err := f.svc.Assign(context.Background(), AssignInput{
		ListID: dto.ID, AgentID: f.agent.ID, ActorID: f.agent.ID, ActorRole: enums.RoleAgent,
	})
	requireCode(t, err, pkgerrors.CodeForbidden)

	_, err = f.svc.Assign(context.Background(), AssignInput{
		ListID: dto.ID, AgentID: f.buyer.ID, ActorID: f.cs.ID, ActorRole: enums.RoleCustomerService,
	})
	requireCode(t, err, pkgerrors.CodeInvalidAssignee)

	f.assign(t, dto.ID)
	got, err := f.svc.Get(context.Background(), dto.ID, orders.Viewer{UserID: f.cs.ID, Role: enums.RoleCustomerService})
	require.NoError(t, err)
	assert.Equal(t, enums.ShoppingListAssigned, got.Status)
	require.NotNil(t, got.AssignedTo)
	assert.Equal(t, f.agent.ID, *got.AssignedTo)
	assert.Equal(t, f.cs.ID, *got.CustomerServiceID)
	require.Len(t, got.AssignmentHistory, 1)

	var events int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventShoppingListAssigned).Count(&events).Error)
	assert.EqualValues(t, 1, events)
}

func TestConvertPlacesOrderForBuyer(t *testing.T) {
	f := newFixture(t)
	dto := f.create(t,
		ItemInput{ProductID: &f.yam.ID, Name: "Yam tuber", Quantity: 2},
		ItemInput{ProductID: &f.tomato.ID, Name: "Tomato basket", Quantity: 1},
	)
	f.assign(t, dto.ID)

	stranger := dbtest.SeedUser(t, f.conn, enums.RoleAgent)
	_, err := f.svc.Convert(context.Background(), ConvertInput{
		ListID: dto.ID, ActorID: stranger.ID, ActorRole: enums.RoleAgent, PaymentMethod: enums.PaymentMethodBankTransfer,
	})
	requireCode(t, err, pkgerrors.CodeForbidden)

	result, err := f.svc.Convert(context.Background(), ConvertInput{
		ListID: dto.ID, ActorID: f.agent.ID, ActorRole: enums.RoleAgent, PaymentMethod: enums.PaymentMethodBankTransfer,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.ShoppingListConverted, result.ShoppingList.Status)
	require.NotNil(t, result.ShoppingList.ConvertedOrderID)
	assert.Equal(t, result.OrderID, *result.ShoppingList.ConvertedOrderID)

	var order models.Order
	require.NoError(t, f.conn.First(&order, "id = ?", result.OrderID).Error)
	assert.Equal(t, f.buyer.ID, order.BuyerID)
	assert.Equal(t, "9000", order.ItemsTotal.String())
	assert.Equal(t, "Enugu", order.ShippingAddress.City)

	var yam models.Product
	require.NoError(t, f.conn.First(&yam, "id = ?", f.yam.ID).Error)
	assert.Equal(t, 4, yam.Stock)

	_, err = f.svc.Convert(context.Background(), ConvertInput{
		ListID: dto.ID, ActorID: f.cs.ID, ActorRole: enums.RoleCustomerService, PaymentMethod: enums.PaymentMethodCard,
	})
	requireCode(t, err, pkgerrors.CodeInvalidTransition)
}

func TestConvertRejectsFreeTextItems(t *testing.T) {
	f := newFixture(t)
	dto := f.create(t,
		ItemInput{ProductID: &f.yam.ID, Name: "Yam tuber", Quantity: 1},
		ItemInput{Name: "Fresh pepper", Quantity: 1},
	)
	_, err := f.svc.Convert(context.Background(), ConvertInput{
		ListID: dto.ID, ActorID: f.cs.ID, ActorRole: enums.RoleCustomerService, PaymentMethod: enums.PaymentMethodCard,
	})
	requireCode(t, err, pkgerrors.CodeValidation)

	var orderCount int64
	require.NoError(t, f.conn.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Zero(t, orderCount)
}

func TestConvertRollsBackWhenStockIsShort(t *testing.T) {
	f := newFixture(t)
	dto := f.create(t, ItemInput{ProductID: &f.tomato.ID, Name: "Tomato basket", Quantity: 5})
	_, err := f.svc.Convert(context.Background(), ConvertInput{
		ListID: dto.ID, ActorID: f.cs.ID, ActorRole: enums.RoleCustomerService, PaymentMethod: enums.PaymentMethodCard,
	})
	requireCode(t, err, pkgerrors.CodeValidation)

	got, err := f.svc.Get(context.Background(), dto.ID, orders.Viewer{UserID: f.buyer.ID, Role: enums.RoleBuyer})
	require.NoError(t, err)
	assert.Equal(t, enums.ShoppingListPending, got.Status)
	assert.Nil(t, got.ConvertedOrderID)
}

func TestVisibilityAndStatus(t *testing.T) {
	f := newFixture(t)
	dto := f.create(t, ItemInput{Name: "Egusi", Quantity: 1})
	other := dbtest.SeedUser(t, f.conn, enums.RoleBuyer)

	_, err := f.svc.Get(context.Background(), dto.ID, orders.Viewer{UserID: other.ID, Role: enums.RoleBuyer})
	requireCode(t, err, pkgerrors.CodeForbidden)
	_, err = f.svc.List(context.Background(), orders.Viewer{UserID: f.buyer.ID, Role: enums.RoleBuyer}, ListFilters{}, pagination.Params{})
	requireCode(t, err, pkgerrors.CodeForbidden)

	pending := enums.ShoppingListPending
	page, err := f.svc.List(context.Background(), orders.Viewer{UserID: f.cs.ID, Role: enums.RoleCustomerService}, ListFilters{Status: &pending}, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, page.ShoppingLists, 1)

	_, err = f.svc.UpdateStatus(context.Background(), StatusInput{
		ListID: dto.ID, Status: enums.ShoppingListReviewed, ActorID: f.buyer.ID, ActorRole: enums.RoleBuyer,
	})
	requireCode(t, err, pkgerrors.CodeForbidden)

	cancelled, err := f.svc.UpdateStatus(context.Background(), StatusInput{
		ListID: dto.ID, Status: enums.ShoppingListCancelled, ActorID: f.buyer.ID, ActorRole: enums.RoleBuyer,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.ShoppingListCancelled, cancelled.Status)

	_, err = f.svc.UpdateStatus(context.Background(), StatusInput{
		ListID: dto.ID, Status: enums.ShoppingListReviewed, ActorID: f.cs.ID, ActorRole: enums.RoleCustomerService,
	})
	requireCode(t, err, pkgerrors.CodeInvalidTransition)

	mine, err := f.svc.ListMine(context.Background(), orders.Viewer{UserID: f.buyer.ID, Role: enums.RoleBuyer}, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, mine.ShoppingLists, 1)
}
