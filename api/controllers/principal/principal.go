package principal

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/naijamall/naijamall-backend/api/middleware"
	internalorders "github.com/naijamall/naijamall-backend/internal/orders"
	pkgerrors "github.com/naijamall/naijamall-backend/pkg/errors"
)

// Resolve extracts the authenticated caller attached by the auth middleware.
func Resolve(r *http.Request) (internalorders.Viewer, error) {
	ctx := r.Context()
	rawID := middleware.UserIDFromContext(ctx)
	if rawID == "" {
		return internalorders.Viewer{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context required")
	}
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return internalorders.Viewer{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	role := middleware.ActorRoleFromContext(ctx)
	if role == "" {
		return internalorders.Viewer{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "role context required")
	}
	return internalorders.Viewer{UserID: userID, Role: role}, nil
}
