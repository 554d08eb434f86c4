package orders

import (
	"strings"

	"github.com/google/uuid"

	"github.com/naijamall/naijamall-backend/pkg/db/models"
	"github.com/naijamall/naijamall-backend/pkg/enums"
	pkgerrors "github.com/naijamall/naijamall-backend/pkg/errors"
)

// ItemInput requests quantity units of one catalog product.
type ItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

type CreateOrderInput struct {
	BuyerID         uuid.UUID
	Items           []ItemInput
	ShippingAddress AddressDTO
	PaymentMethod   enums.PaymentMethod
	BuyerNotes      *string
	// Source labels the first tracking entry, e.g. a converted shopping list.
	Source string
}

type UpdateStatusInput struct {
	OrderID     uuid.UUID
	Status      enums.OrderStatus
	ActorID     uuid.UUID
	ActorRole   enums.Role
	Description string
	Location    *string
	Notes       *string
}

type ConfirmDeliveryInput struct {
	OrderID  uuid.UUID
	BuyerID  uuid.UUID
	Feedback *string
}

type CancelOrderInput struct {
	OrderID   uuid.UUID
	ActorID   uuid.UUID
	ActorRole enums.Role
	Reason    string
}

type AssignRiderInput struct {
	OrderID   uuid.UUID
	RiderID   uuid.UUID
	ActorID   uuid.UUID
	ActorRole enums.Role
	Notes     *string
}

type AssignAgentInput struct {
	OrderID   uuid.UUID
	AgentID   uuid.UUID
	ActorID   uuid.UUID
	ActorRole enums.Role
	Notes     *string
}

// DeliveryStatusInput is a rider reporting progress on a delivery they hold.
type DeliveryStatusInput struct {
	OrderID  uuid.UUID
	RiderID  uuid.UUID
	Status   enums.DeliveryStatus
	Location *string
	Notes    *string
}

type NotesInput struct {
	OrderID   uuid.UUID
	Notes     string
	ActorID   uuid.UUID
	ActorRole enums.Role
}

func (in CreateOrderInput) validate() error {
	problems := map[string]string{}
	if in.BuyerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if len(in.Items) == 0 {
		problems["items"] = "at least one item is required"
	}
	for _, item := range in.Items {
		if item.ProductID == uuid.Nil {
			problems["items.product_id"] = "product id is required"
		}
		if item.Quantity < 1 {
			problems["items.quantity"] = "quantity must be at least 1"
		}
	}
	addr := in.ShippingAddress
	for field, value := range map[string]string{
		"shipping_address.street": addr.Street,
		"shipping_address.city":   addr.City,
		"shipping_address.state":  addr.State,
		"shipping_address.phone":  addr.Phone,
	} {
		if strings.TrimSpace(value) == "" {
			problems[field] = "is required"
		}
	}
	if !in.PaymentMethod.IsValid() {
		problems["payment_method"] = "must be one of card, bank_transfer, ussd, mobile_money"
	}
	if len(problems) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid order request").WithDetails(problems)
	}
	return nil
}

func (a AddressDTO) toModel() models.Address {
	return models.Address{
		Street:  strings.TrimSpace(a.Street),
		City:    strings.TrimSpace(a.City),
		State:   strings.TrimSpace(a.State),
		ZipCode: a.ZipCode,
		Phone:   strings.TrimSpace(a.Phone),
	}
}
