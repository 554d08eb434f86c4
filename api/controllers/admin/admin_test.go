package admin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/naijamall/naijamall-backend/api/middleware"
	"github.com/naijamall/naijamall-backend/internal/reports"
	internalusers "github.com/naijamall/naijamall-backend/internal/users"
	"github.com/naijamall/naijamall-backend/pkg/enums"
	pkgerrors "github.com/naijamall/naijamall-backend/pkg/errors"
)

type stubReports struct {
	from, to time.Time
}

func (s *stubReports) Dashboard(_ context.Context, role enums.Role) (*reports.Dashboard, error) {
	if !role.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return &reports.Dashboard{}, nil
}

func (s *stubReports) Revenue(_ context.Context, _ enums.Role, from, to time.Time) (*reports.RevenueReport, error) {
	s.from, s.to = from, to
	return &reports.RevenueReport{From: from, To: to}, nil
}

type stubUsers struct {
	internalusers.Service
	updateFn func(ctx context.Context, input internalusers.UpdateRoleInput) (*internalusers.UserDTO, error)
	statusFn func(ctx context.Context, input internalusers.UpdateStatusInput) (*internalusers.UserDTO, error)
}

func (s stubUsers) UpdateRole(ctx context.Context, input internalusers.UpdateRoleInput) (*internalusers.UserDTO, error) {
	return s.updateFn(ctx, input)
}

func (s stubUsers) UpdateStatus(ctx context.Context, input internalusers.UpdateStatusInput) (*internalusers.UserDTO, error) {
	return s.statusFn(ctx, input)
}

func adminRequest(method, target, body string, role enums.Role, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rc := chi.NewRouteContext()
	for key, value := range params {
		rc.URLParams.Add(key, value)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rc)
	ctx = middleware.WithUserID(ctx, uuid.NewString())
	ctx = middleware.WithRole(ctx, role)
	return req.WithContext(ctx)
}

func TestDashboardRequiresAdmin(t *testing.T) {
	svc := &stubReports{}
	resp := httptest.NewRecorder()
	Dashboard(svc, nil).ServeHTTP(resp, adminRequest(http.MethodGet, "/", "", enums.RoleCustomerService, nil))
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = httptest.NewRecorder()
	Dashboard(svc, nil).ServeHTTP(resp, adminRequest(http.MethodGet, "/", "", enums.RoleAdmin, nil))
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestRevenueDefaultsMissingDates(t *testing.T) {
	svc := &stubReports{}
	resp := httptest.NewRecorder()
	Revenue(svc, nil).ServeHTTP(resp, adminRequest(http.MethodGet, "/?start_date=2026-04-01", "", enums.RoleAdmin, nil))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), svc.from)
	assert.True(t, svc.to.IsZero())
}

func TestUpdateRoleValidatesRole(t *testing.T) {
	userID := uuid.New()
	svc := stubUsers{updateFn: func(_ context.Context, input internalusers.UpdateRoleInput) (*internalusers.UserDTO, error) {
		assert.Equal(t, userID, input.UserID)
		assert.Equal(t, enums.RoleRider, input.NewRole)
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot manage this user")
	}}
	params := map[string]string{"userID": userID.String()}

	resp := httptest.NewRecorder()
	UpdateRole(svc, nil).ServeHTTP(resp, adminRequest(http.MethodPatch, "/", `{"role":"overlord"}`, enums.RoleAdmin, params))
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = httptest.NewRecorder()
	UpdateRole(svc, nil).ServeHTTP(resp, adminRequest(http.MethodPatch, "/", `{"role":"rider"}`, enums.RoleAdmin, params))
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestUpdateUserStatusRequiresFlag(t *testing.T) {
	userID := uuid.New()
	var got []bool
	svc := stubUsers{statusFn: func(_ context.Context, input internalusers.UpdateStatusInput) (*internalusers.UserDTO, error) {
		assert.Equal(t, userID, input.UserID)
		assert.Equal(t, enums.RoleAdmin, input.ActorRole)
		got = append(got, input.IsActive)
		return &internalusers.UserDTO{ID: input.UserID, IsActive: input.IsActive}, nil
	}}
	params := map[string]string{"userID": userID.String()}

	resp := httptest.NewRecorder()
	UpdateUserStatus(svc, nil).ServeHTTP(resp, adminRequest(http.MethodPatch, "/", `{}`, enums.RoleAdmin, params))
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = httptest.NewRecorder()
	UpdateUserStatus(svc, nil).ServeHTTP(resp, adminRequest(http.MethodPatch, "/", `{"is_active":"no"}`, enums.RoleAdmin, params))
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = httptest.NewRecorder()
	UpdateUserStatus(svc, nil).ServeHTTP(resp, adminRequest(http.MethodPatch, "/", `{"is_active":false}`, enums.RoleAdmin, params))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"is_active":false`)

	resp = httptest.NewRecorder()
	UpdateUserStatus(svc, nil).ServeHTTP(resp, adminRequest(http.MethodPatch, "/", `{"is_active":true}`, enums.RoleAdmin, map[string]string{"userID": "not-a-uuid"}))
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	assert.Equal(t, []bool{false}, got)
}
