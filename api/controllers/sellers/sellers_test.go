package sellers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/naijamall/naijamall-backend/api/middleware"
	"github.com/naijamall/naijamall-backend/internal/reports"
	"github.com/naijamall/naijamall-backend/pkg/enums"
)

type stubAnalytics struct {
	sellerID uuid.UUID
	periods  []reports.Period
}

func (s *stubAnalytics) SellerAnalytics(_ context.Context, sellerID uuid.UUID, _ enums.Role, period reports.Period) (*reports.SellerAnalytics, error) {
	s.sellerID = sellerID
	s.periods = append(s.periods, period)
	return &reports.SellerAnalytics{Period: period}, nil
}

func sellerRequest(target string, userID uuid.UUID) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	ctx := middleware.WithUserID(req.Context(), userID.String())
	ctx = middleware.WithRole(ctx, enums.RoleSeller)
	return req.WithContext(ctx)
}

func TestAnalyticsParsesPeriod(t *testing.T) {
	svc := &stubAnalytics{}
	seller := uuid.New()

	resp := httptest.NewRecorder()
	Analytics(svc, nil).ServeHTTP(resp, sellerRequest("/", seller))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"period":"30days"`)
	assert.Equal(t, seller, svc.sellerID)

	resp = httptest.NewRecorder()
	Analytics(svc, nil).ServeHTTP(resp, sellerRequest("/?period=6months", seller))
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = httptest.NewRecorder()
	Analytics(svc, nil).ServeHTTP(resp, sellerRequest("/?period=fortnight", seller))
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	assert.Equal(t, []reports.Period{reports.Period30Days, reports.Period6Months}, svc.periods)
}
