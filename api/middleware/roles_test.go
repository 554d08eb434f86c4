package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/naijamall/naijamall-backend/pkg/enums"
)

func TestRequireMinRole(t *testing.T) {
	cases := []struct {
		role enums.Role
		want int
	}{
		{enums.RoleBuyer, http.StatusForbidden},
		{enums.RoleAgent, http.StatusForbidden},
		{enums.RoleCustomerService, http.StatusOK},
		{enums.RoleSuperAdmin, http.StatusOK},
		{"", http.StatusForbidden},
	}
	handler := RequireMinRole(enums.RoleCustomerService, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithRole(req.Context(), tc.role))
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != tc.want {
			t.Fatalf("role %q: expected %d got %d", tc.role, tc.want, resp.Code)
		}
	}
}

func TestRequireRoleMatchesExactly(t *testing.T) {
	handler := RequireRole(nil, enums.RoleRider)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for role, want := range map[enums.Role]int{
		enums.RoleRider:      http.StatusOK,
		enums.RoleAgent:      http.StatusForbidden,
		enums.RoleSuperAdmin: http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithRole(req.Context(), role))
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != want {
			t.Fatalf("role %q: expected %d got %d", role, want, resp.Code)
		}
	}
}
