package orders

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/naijamall/naijamall-backend/api/controllers/principal"
	"github.com/naijamall/naijamall-backend/api/responses"
	"github.com/naijamall/naijamall-backend/api/validators"
	internalorders "github.com/naijamall/naijamall-backend/internal/orders"
	"github.com/naijamall/naijamall-backend/pkg/enums"
	pkgerrors "github.com/naijamall/naijamall-backend/pkg/errors"
	"github.com/naijamall/naijamall-backend/pkg/logger"
)

const (
	maxNotesLength  = 2000
	maxReasonLength = 500
)

type orderItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1,max=1000"`
}

type addressRequest struct {
	Street  string  `json:"street" validate:"required"`
	City    string  `json:"city" validate:"required"`
	State   string  `json:"state" validate:"required"`
	ZipCode *string `json:"zip_code"`
	Phone   string  `json:"phone" validate:"required"`
}

type createOrderRequest struct {
	Items           []orderItemRequest `json:"items" validate:"required,min=1,dive"`
	ShippingAddress addressRequest     `json:"shipping_address"`
	PaymentMethod   string             `json:"payment_method" validate:"required"`
	BuyerNotes      *string            `json:"buyer_notes"`
}

type updateStatusRequest struct {
	Status      string  `json:"status" validate:"required"`
	Description string  `json:"description"`
	Location    *string `json:"location"`
	Notes       *string `json:"notes"`
}

type confirmRequest struct {
	Feedback *string `json:"feedback"`
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type assignRequest struct {
	AssigneeID string  `json:"assignee_id" validate:"required,uuid"`
	Notes      *string `json:"notes"`
}

type notesRequest struct {
	Notes string `json:"notes" validate:"required"`
}

// Create places an order with the caller as buyer and returns 201 with the priced order.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, err := principal.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := enums.ParsePaymentMethod(req.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		items := make([]internalorders.ItemInput, 0, len(req.Items))
		for _, item := range req.Items {
			productID, err := uuid.Parse(item.ProductID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
				return
			}
			items = append(items, internalorders.ItemInput{ProductID: productID, Quantity: item.Quantity})
		}

		order, err := svc.CreateOrder(r.Context(), internalorders.CreateOrderInput{
			BuyerID: viewer.UserID,
			Items:   items,
			ShippingAddress: internalorders.AddressDTO{
				Street:  req.ShippingAddress.Street,
				City:    req.ShippingAddress.City,
				State:   req.ShippingAddress.State,
				ZipCode: req.ShippingAddress.ZipCode,
				Phone:   req.ShippingAddress.Phone,
			},
			PaymentMethod: method,
			BuyerNotes:    validators.SanitizeOptional(req.BuyerNotes, maxNotesLength),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// Detail returns one order when the caller participates in it or is staff.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, orderID, ok := resolveOrderRequest(w, r, logg)
		if !ok {
			return
		}
		order, err := svc.GetOrder(r.Context(), orderID, viewer)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// ListMine returns the caller's orders scoped by role.
func ListMine(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, err := principal.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters, err := ParseListFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListMyOrders(r.Context(), viewer, filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// ListAll is the staff listing across every order.
func ListAll(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, err := principal.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters, err := ParseListFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListOrders(r.Context(), viewer, filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// UpdateStatus applies a role-authorized lifecycle transition.
func UpdateStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, orderID, ok := resolveOrderRequest(w, r, logg)
		if !ok {
			return
		}
		var req updateStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}
		order, err := svc.UpdateStatus(r.Context(), internalorders.UpdateStatusInput{
			OrderID:     orderID,
			Status:      status,
			ActorID:     viewer.UserID,
			ActorRole:   viewer.Role,
			Description: validators.SanitizeString(req.Description, maxReasonLength),
			Location:    validators.SanitizeOptional(req.Location, maxReasonLength),
			Notes:       validators.SanitizeOptional(req.Notes, maxNotesLength),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// ConfirmDelivery lets the buyer accept a delivered order, which settles escrow.
func ConfirmDelivery(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, orderID, ok := resolveOrderRequest(w, r, logg)
		if !ok {
			return
		}
		var req confirmRequest
		if err := validators.DecodeOptionalJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.ConfirmDelivery(r.Context(), internalorders.ConfirmDeliveryInput{
			OrderID:  orderID,
			BuyerID:  viewer.UserID,
			Feedback: validators.SanitizeOptional(req.Feedback, maxNotesLength),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, orderID, ok := resolveOrderRequest(w, r, logg)
		if !ok {
			return
		}
		var req cancelRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.CancelOrder(r.Context(), internalorders.CancelOrderInput{
			OrderID:   orderID,
			ActorID:   viewer.UserID,
			ActorRole: viewer.Role,
			Reason:    validators.SanitizeString(req.Reason, maxReasonLength),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func AssignRider(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, orderID, ok := resolveOrderRequest(w, r, logg)
		if !ok {
			return
		}
		assigneeID, notes, ok := decodeAssignment(w, r, logg)
		if !ok {
			return
		}
		order, err := svc.AssignRider(r.Context(), internalorders.AssignRiderInput{
			OrderID:   orderID,
			RiderID:   assigneeID,
			ActorID:   viewer.UserID,
			ActorRole: viewer.Role,
			Notes:     notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func AssignAgent(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, orderID, ok := resolveOrderRequest(w, r, logg)
		if !ok {
			return
		}
		assigneeID, notes, ok := decodeAssignment(w, r, logg)
		if !ok {
			return
		}
		order, err := svc.AssignAgent(r.Context(), internalorders.AssignAgentInput{
			OrderID:   orderID,
			AgentID:   assigneeID,
			ActorID:   viewer.UserID,
			ActorRole: viewer.Role,
			Notes:     notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func UpdateNotes(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, orderID, ok := resolveOrderRequest(w, r, logg)
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
			ActorID:   viewer.UserID,
			ActorRole: viewer.Role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// ParseListFilters reads the order listing filters shared by buyer, staff and admin listings.
func ParseListFilters(r *http.Request) (internalorders.ListFilters, error) {
	var filters internalorders.ListFilters
	var err error
	if filters.Status, err = validators.ParseQueryEnum(r, "status", enums.ParseOrderStatus); err != nil {
		return filters, err
	}
	if filters.DeliveryStatus, err = validators.ParseQueryEnum(r, "delivery_status", enums.ParseDeliveryStatus); err != nil {
		return filters, err
	}
	if filters.PaymentStatus, err = validators.ParseQueryEnum(r, "payment_status", enums.ParseOrderPaymentStatus); err != nil {
		return filters, err
	}
	if filters.CreatedFrom, err = validators.ParseQueryDate(r, "from"); err != nil {
		return filters, err
	}
	if filters.CreatedTo, err = validators.ParseQueryDate(r, "to"); err != nil {
		return filters, err
	}
	filters.OrderNumber = strings.TrimSpace(r.URL.Query().Get("order_number"))
	return filters, nil
}

func resolveOrderRequest(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (internalorders.Viewer, uuid.UUID, bool) {
	viewer, err := principal.Resolve(r)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return internalorders.Viewer{}, uuid.Nil, false
	}
	orderID, err := validators.ParseUUIDParam(r, "orderID")
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return internalorders.Viewer{}, uuid.Nil, false
	}
	return viewer, orderID, true
}

func decodeAssignment(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (uuid.UUID, *string, bool) {
	var req assignRequest
	if err := validators.DecodeJSONBody(r, &req); err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return uuid.Nil, nil, false
	}
	assigneeID, err := uuid.Parse(req.AssigneeID)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid assignee id"))
		return uuid.Nil, nil, false
	}
	return assigneeID, validators.SanitizeOptional(req.Notes, maxNotesLength), true
}
