package support

import (
	"net/http"

	"github.com/google/uuid"

	ordercontrollers "github.com/naijamall/naijamall-backend/api/controllers/orders"
	"github.com/naijamall/naijamall-backend/api/controllers/principal"
	"github.com/naijamall/naijamall-backend/api/responses"
	"github.com/naijamall/naijamall-backend/api/validators"
	internalorders "github.com/naijamall/naijamall-backend/internal/orders"
	internalsupport "github.com/naijamall/naijamall-backend/internal/support"
	"github.com/naijamall/naijamall-backend/pkg/enums"
	pkgerrors "github.com/naijamall/naijamall-backend/pkg/errors"
	"github.com/naijamall/naijamall-backend/pkg/logger"
)

const maxNotesLength = 2000

type assignAgentRequest struct {
	AgentID string  `json:"agent_id" validate:"required,uuid"`
	Notes   *string `json:"notes"`
}

type notesRequest struct {
	Notes string `json:"notes" validate:"required"`
}

func ListOrders(svc internalsupport.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := principal.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters, err := ordercontrollers.ParseListFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListOrders(r.Context(), actor, filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// MyOrders lists orders this customer-service user has handled.
func MyOrders(svc internalsupport.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := principal.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := validators.ParseQueryEnum(r, "status", enums.ParseOrderStatus)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.MyOrders(r.Context(), actor, status, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func Detail(svc internalsupport.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, orderID, ok := resolveOrderRequest(w, r, logg)
		if !ok {
			return
		}
		order, err := svc.Get(r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func AssignAgent(svc internalsupport.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, orderID, ok := resolveOrderRequest(w, r, logg)
		if !ok {
			return
		}
		var req assignAgentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		agentID, err := uuid.Parse(req.AgentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid agent id"))
			return
		}
		order, err := svc.AssignAgent(r.Context(), internalorders.AssignAgentInput{
			OrderID:   orderID,
			AgentID:   agentID,
			ActorID:   actor.UserID,
			ActorRole: actor.Role,
			Notes:     validators.SanitizeOptional(req.Notes, maxNotesLength),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func UpdateNotes(svc internalsupport.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, orderID, ok := resolveOrderRequest(w, r, logg)
		if !ok {
			return
		}
		var req notesRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.UpdateInternalNotes(r.Context(), internalorders.NotesInput{
			OrderID:   orderID,
			Notes:     validators.SanitizeString(req.Notes, maxNotesLength),
			ActorID:   actor.UserID,
			ActorRole: actor.Role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func ActiveAgents(svc internalsupport.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := principal.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		agents, err := svc.ListActiveAgents(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"agents": agents})
	}
}

// Analytics returns order counts by day and by status since start_date, 30 days back by default.
func Analytics(svc internalsupport.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := principal.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		since, err := validators.ParseQueryDate(r, "start_date")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		analytics, err := svc.Analytics(r.Context(), actor, since)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, analytics)
	}
}

func resolveOrderRequest(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (internalorders.Viewer, uuid.UUID, bool) {
	actor, err := principal.Resolve(r)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return internalorders.Viewer{}, uuid.Nil, false
	}
	orderID, err := validators.ParseUUIDParam(r, "orderID")
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return internalorders.Viewer{}, uuid.Nil, false
	}
	return actor, orderID, true
}
