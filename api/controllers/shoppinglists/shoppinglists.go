package shoppinglists

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/naijamall/naijamall-backend/api/controllers/principal"
	"github.com/naijamall/naijamall-backend/api/responses"
	"github.com/naijamall/naijamall-backend/api/validators"
	internalorders "github.com/naijamall/naijamall-backend/internal/orders"
	internallists "github.com/naijamall/naijamall-backend/internal/shoppinglists"
	"github.com/naijamall/naijamall-backend/pkg/enums"
	pkgerrors "github.com/naijamall/naijamall-backend/pkg/errors"
	"github.com/naijamall/naijamall-backend/pkg/logger"
)

const maxNotesLength = 2000

type itemRequest struct {
	ProductID      *string          `json:"product_id" validate:"omitempty,uuid"`
	Name           string           `json:"name" validate:"required,max=200"`
	Quantity       int              `json:"quantity" validate:"required,min=1,max=1000"`
	RequestedPrice *decimal.Decimal `json:"requested_price"`
	Notes          *string          `json:"notes"`
}

type addressRequest struct {
	Street  string  `json:"street" validate:"required"`
	City    string  `json:"city" validate:"required"`
	State   string  `json:"state" validate:"required"`
	ZipCode *string `json:"zip_code"`
	Phone   string  `json:"phone" validate:"required"`
}

type createRequest struct {
	Items           []itemRequest  `json:"items" validate:"required,min=1,dive"`
	ShippingAddress addressRequest `json:"shipping_address"`
	BuyerNotes      *string        `json:"buyer_notes"`
}

type assignRequest struct {
	AgentID string  `json:"agent_id" validate:"required,uuid"`
	Notes   *string `json:"notes"`
}

type statusRequest struct {
	Status string  `json:"status" validate:"required"`
	Notes  *string `json:"notes"`
}

type convertRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required"`
}

// Create records a buyer's free-form list for an agent to shop.
func Create(svc internallists.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, err := principal.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req createRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items := make([]internallists.ItemInput, 0, len(req.Items))
		for _, item := range req.Items {
			input := internallists.ItemInput{
				Name:           validators.SanitizeString(item.Name, 200),
				Quantity:       item.Quantity,
				RequestedPrice: item.RequestedPrice,
				Notes:          validators.SanitizeOptional(item.Notes, maxNotesLength),
			}
			if item.ProductID != nil {
				productID, err := uuid.Parse(*item.ProductID)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
					return
				}
				input.ProductID = &productID
			}
			items = append(items, input)
		}

		list, err := svc.Create(r.Context(), internallists.CreateInput{
			BuyerID: viewer.UserID,
			Items:   items,
			ShippingAddress: internalorders.AddressDTO{
				Street:  req.ShippingAddress.Street,
				City:    req.ShippingAddress.City,
				State:   req.ShippingAddress.State,
				ZipCode: req.ShippingAddress.ZipCode,
				Phone:   req.ShippingAddress.Phone,
			},
			BuyerNotes: validators.SanitizeOptional(req.BuyerNotes, maxNotesLength),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, list)
	}
}

// List is the staff queue; agents only see lists assigned to them.
func List(svc internallists.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, err := principal.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := validators.ParseQueryEnum(r, "status", enums.ParseShoppingListStatus)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.List(r.Context(), viewer, internallists.ListFilters{Status: status}, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func ListMine(svc internallists.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, err := principal.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListMine(r.Context(), viewer, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func Detail(svc internallists.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, listID, ok := resolveListRequest(w, r, logg)
		if !ok {
			return
		}
		list, err := svc.Get(r.Context(), listID, viewer)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func Assign(svc internallists.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, listID, ok := resolveListRequest(w, r, logg)
		if !ok {
			return
		}
		var req assignRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		agentID, err := uuid.Parse(req.AgentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid agent id"))
			return
		}
		list, err := svc.Assign(r.Context(), internallists.AssignInput{
			ListID:    listID,
			AgentID:   agentID,
			ActorID:   viewer.UserID,
			ActorRole: viewer.Role,
			Notes:     validators.SanitizeOptional(req.Notes, maxNotesLength),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func UpdateStatus(svc internallists.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, listID, ok := resolveListRequest(w, r, logg)
		if !ok {
			return
		}
		var req statusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseShoppingListStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}
		list, err := svc.UpdateStatus(r.Context(), internallists.StatusInput{
			ListID:    listID,
			Status:    status,
			ActorID:   viewer.UserID,
			ActorRole: viewer.Role,
			Notes:     validators.SanitizeOptional(req.Notes, maxNotesLength),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Convert turns the list into a pending order for its buyer.
func Convert(svc internallists.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, listID, ok := resolveListRequest(w, r, logg)
		if !ok {
			return
		}
		var req convertRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := enums.ParsePaymentMethod(req.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}
		result, err := svc.Convert(r.Context(), internallists.ConvertInput{
			ListID:        listID,
			ActorID:       viewer.UserID,
			ActorRole:     viewer.Role,
			PaymentMethod: method,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func resolveListRequest(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (internalorders.Viewer, uuid.UUID, bool) {
	viewer, err := principal.Resolve(r)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return internalorders.Viewer{}, uuid.Nil, false
	}
	listID, err := validators.ParseUUIDParam(r, "listID")
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return internalorders.Viewer{}, uuid.Nil, false
	}
	return viewer, listID, true
}
