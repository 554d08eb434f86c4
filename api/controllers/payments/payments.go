package payments

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/naijamall/naijamall-backend/api/controllers/principal"
	"github.com/naijamall/naijamall-backend/api/responses"
	"github.com/naijamall/naijamall-backend/api/validators"
	internalorders "github.com/naijamall/naijamall-backend/internal/orders"
	internalpayments "github.com/naijamall/naijamall-backend/internal/payments"
	pkgerrors "github.com/naijamall/naijamall-backend/pkg/errors"
	"github.com/naijamall/naijamall-backend/pkg/logger"
)

const maxReasonLength = 500

type initializeRequest struct {
	OrderID string `json:"order_id" validate:"required,uuid"`
}

type reasonRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// Initialize starts a gateway checkout for the caller's unpaid order.
func Initialize(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, err := principal.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req initializeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := uuid.Parse(req.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}
		payment, err := svc.InitializePayment(r.Context(), orderID, viewer)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payment)
	}
}

// Verify re-checks a payment with the gateway. Repeating it is safe.
func Verify(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := principal.Resolve(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		reference := strings.TrimSpace(chi.URLParam(r, "reference"))
		if reference == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required"))
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithPaymentReference(ctx, reference)
		}
		payment, err := svc.VerifyPayment(ctx, reference)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, payment)
	}
}

func Refund(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, paymentID, reason, ok := resolveEscrowAction(w, r, logg)
		if !ok {
			return
		}
		payment, err := svc.RefundPayment(r.Context(), internalpayments.RefundInput{
			PaymentID: paymentID,
			ActorID:   viewer.UserID,
			ActorRole: viewer.Role,
			Reason:    reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payment)
	}
}

// ReleaseEscrow settles a delivered order's held funds without waiting for buyer confirmation.
func ReleaseEscrow(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, paymentID, reason, ok := resolveEscrowAction(w, r, logg)
		if !ok {
			return
		}
		payment, err := svc.ReleaseEscrow(r.Context(), internalpayments.ReleaseInput{
			PaymentID: paymentID,
			ActorID:   viewer.UserID,
			ActorRole: viewer.Role,
			Reason:    reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payment)
	}
}

func Detail(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, err := principal.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		paymentID, err := validators.ParseUUIDParam(r, "paymentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payment, err := svc.GetPayment(r.Context(), paymentID, viewer)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payment)
	}
}

// ListMine returns payments the caller made or receives a share of.
func ListMine(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
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
		list, err := svc.ListMyPayments(r.Context(), viewer, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func resolveEscrowAction(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (internalorders.Viewer, uuid.UUID, string, bool) {
	viewer, err := principal.Resolve(r)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return internalorders.Viewer{}, uuid.Nil, "", false
	}
	paymentID, err := validators.ParseUUIDParam(r, "paymentID")
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return internalorders.Viewer{}, uuid.Nil, "", false
	}
	var req reasonRequest
	if err := validators.DecodeJSONBody(r, &req); err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return internalorders.Viewer{}, uuid.Nil, "", false
	}
	return viewer, paymentID, validators.SanitizeString(req.Reason, maxReasonLength), true
}
