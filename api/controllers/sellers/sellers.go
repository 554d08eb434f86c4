package sellers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/naijamall/naijamall-backend/api/controllers/principal"
	"github.com/naijamall/naijamall-backend/api/responses"
	"github.com/naijamall/naijamall-backend/internal/reports"
	"github.com/naijamall/naijamall-backend/pkg/enums"
	"github.com/naijamall/naijamall-backend/pkg/logger"
)

type analyticsService interface {
	SellerAnalytics(ctx context.Context, sellerID uuid.UUID, actorRole enums.Role, period reports.Period) (*reports.SellerAnalytics, error)
}

// Analytics reports the caller's revenue, units sold and top products over ?period=, 30days by default.
func Analytics(svc analyticsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := principal.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		period, err := reports.ParsePeriod(r.URL.Query().Get("period"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		analytics, err := svc.SellerAnalytics(r.Context(), actor.UserID, actor.Role, period)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, analytics)
	}
}
