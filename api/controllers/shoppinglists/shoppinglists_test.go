package shoppinglists

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naijamall/naijamall-backend/api/middleware"
	internalorders "github.com/naijamall/naijamall-backend/internal/orders"
	internallists "github.com/naijamall/naijamall-backend/internal/shoppinglists"
	"github.com/naijamall/naijamall-backend/pkg/enums"
	pkgerrors "github.com/naijamall/naijamall-backend/pkg/errors"
	"github.com/naijamall/naijamall-backend/pkg/pagination"
)

type stubListService struct {
	internallists.Service
	createFn  func(ctx context.Context, input internallists.CreateInput) (*internallists.ShoppingListDTO, error)
	listFn    func(ctx context.Context, viewer internalorders.Viewer, filters internallists.ListFilters, params pagination.Params) (*internallists.ShoppingListPage, error)
	convertFn func(ctx context.Context, input internallists.ConvertInput) (*internallists.ConvertResult, error)
}

func (s stubListService) Create(ctx context.Context, input internallists.CreateInput) (*internallists.ShoppingListDTO, error) {
	return s.createFn(ctx, input)
}

func (s stubListService) List(ctx context.Context, viewer internalorders.Viewer, filters internallists.ListFilters, params pagination.Params) (*internallists.ShoppingListPage, error) {
	return s.listFn(ctx, viewer, filters, params)
}

func (s stubListService) Convert(ctx context.Context, input internallists.ConvertInput) (*internallists.ConvertResult, error) {
	return s.convertFn(ctx, input)
}

func authedRequest(method, target string, body io.Reader, role enums.Role, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, body)
	rc := chi.NewRouteContext()
	for key, value := range params {
		rc.URLParams.Add(key, value)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rc)
	ctx = middleware.WithUserID(ctx, uuid.NewString())
	ctx = middleware.WithRole(ctx, role)
	return req.WithContext(ctx)
}

func TestCreateAcceptsFreeFormAndCatalogItems(t *testing.T) {
	productID := uuid.New()
	var captured internallists.CreateInput
	svc := stubListService{createFn: func(_ context.Context, input internallists.CreateInput) (*internallists.ShoppingListDTO, error) {
		captured = input
		return &internallists.ShoppingListDTO{ID: uuid.New(), Status: enums.ShoppingListPending}, nil
	}}
	body := `{"items":[{"name":"Garri (ijebu)","quantity":2},{"product_id":"` + productID.String() + `","name":"Palm oil","quantity":1,"requested_price":"3500"}],
		"shipping_address":{"street":"4 Broad St","city":"Lagos Island","state":"Lagos","phone":"0802"}}`
	resp := httptest.NewRecorder()
	Create(svc, nil).ServeHTTP(resp, authedRequest(http.MethodPost, "/", strings.NewReader(body), enums.RoleBuyer, nil))

	require.Equal(t, http.StatusCreated, resp.Code)
	require.Len(t, captured.Items, 2)
	assert.Nil(t, captured.Items[0].ProductID)
	require.NotNil(t, captured.Items[1].ProductID)
	assert.Equal(t, productID, *captured.Items[1].ProductID)
	require.NotNil(t, captured.Items[1].RequestedPrice)
	assert.Equal(t, "3500", captured.Items[1].RequestedPrice.String())
}

func TestListParsesStatusFilter(t *testing.T) {
	svc := stubListService{listFn: func(_ context.Context, _ internalorders.Viewer, filters internallists.ListFilters, _ pagination.Params) (*internallists.ShoppingListPage, error) {
		require.NotNil(t, filters.Status)
		assert.Equal(t, enums.ShoppingListAssigned, *filters.Status)
		return &internallists.ShoppingListPage{}, nil
	}}
	resp := httptest.NewRecorder()
	List(svc, nil).ServeHTTP(resp, authedRequest(http.MethodGet, "/?status=assigned", nil, enums.RoleCustomerService, nil))
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestConvertMapsServiceErrors(t *testing.T) {
	listID := uuid.New()
	svc := stubListService{convertFn: func(_ context.Context, input internallists.ConvertInput) (*internallists.ConvertResult, error) {
		assert.Equal(t, listID, input.ListID)
		assert.Equal(t, enums.PaymentMethodCard, input.PaymentMethod)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "list has no catalog items")
	}}
	params := map[string]string{"listID": listID.String()}
	resp := httptest.NewRecorder()
	Convert(svc, nil).ServeHTTP(resp, authedRequest(http.MethodPost, "/", strings.NewReader(`{"payment_method":"card"}`), enums.RoleAgent, params))
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = httptest.NewRecorder()
	Convert(svc, nil).ServeHTTP(resp, authedRequest(http.MethodPost, "/", strings.NewReader(`{"payment_method":"card"}`), enums.RoleAgent, map[string]string{"listID": "nope"}))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
