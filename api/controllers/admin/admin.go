package admin

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/naijamall/naijamall-backend/api/controllers/principal"
	"github.com/naijamall/naijamall-backend/api/responses"
	"github.com/naijamall/naijamall-backend/api/validators"
	"github.com/naijamall/naijamall-backend/internal/reports"
	internalusers "github.com/naijamall/naijamall-backend/internal/users"
	"github.com/naijamall/naijamall-backend/pkg/enums"
	pkgerrors "github.com/naijamall/naijamall-backend/pkg/errors"
	"github.com/naijamall/naijamall-backend/pkg/logger"
)

type reportService interface {
	Dashboard(ctx context.Context, actorRole enums.Role) (*reports.Dashboard, error)
	Revenue(ctx context.Context, actorRole enums.Role, from, to time.Time) (*reports.RevenueReport, error)
}

type updateRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

type updateStatusRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

func Dashboard(svc reportService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := principal.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dashboard, err := svc.Dashboard(r.Context(), actor.Role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dashboard)
	}
}

// Revenue reports released orders between start_date and end_date.
func Revenue(svc reportService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := principal.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		from, err := validators.ParseQueryDate(r, "start_date")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := validators.ParseQueryDate(r, "end_date")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var fromValue, toValue time.Time
		if from != nil {
			fromValue = *from
		}
		if to != nil {
			toValue = *to
		}
		report, err := svc.Revenue(r.Context(), actor.Role, fromValue, toValue)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

// Roles lists the roles the caller may grant.
func Roles(svc internalusers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := principal.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"roles": svc.AssignableRoles(actor.Role)})
	}
}

func ListUsers(svc internalusers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := principal.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		role, err := validators.ParseQueryEnum(r, "role", enums.ParseRole)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		active, err := validators.ParseQueryBool(r, "is_active")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters := internalusers.ListFilters{
			Role:     role,
			IsActive: active,
			Search:   validators.SanitizeString(r.URL.Query().Get("search"), 100),
		}
		list, err := svc.List(r.Context(), actor.Role, filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func UpdateRole(svc internalusers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := principal.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := validators.ParseUUIDParam(r, "userID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req updateRoleRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		role, err := enums.ParseRole(strings.TrimSpace(req.Role))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role"))
			return
		}
		user, err := svc.UpdateRole(r.Context(), internalusers.UpdateRoleInput{
			UserID:      userID,
			NewRole:     role,
			ActorUserID: actor.UserID,
			ActorRole:   actor.Role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

// UpdateUserStatus activates or deactivates an account without deleting it.
func UpdateUserStatus(svc internalusers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := principal.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := validators.ParseUUIDParam(r, "userID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req updateStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := svc.UpdateStatus(r.Context(), internalusers.UpdateStatusInput{
			UserID:      userID,
			IsActive:    *req.IsActive,
			ActorUserID: actor.UserID,
			ActorRole:   actor.Role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

// DeleteUser deactivates the account; rows are kept for order history.
func DeleteUser(svc internalusers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := principal.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := validators.ParseUUIDParam(r, "userID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), internalusers.DeleteUserInput{
			UserID:      userID,
			ActorUserID: actor.UserID,
			ActorRole:   actor.Role,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deleted": true, "user_id": userID})
	}
}
