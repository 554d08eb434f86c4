package shoppinglists

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/naijamall/naijamall-backend/internal/orders"
	"github.com/naijamall/naijamall-backend/pkg/db/models"
	"github.com/naijamall/naijamall-backend/pkg/enums"
)

type ItemDTO struct {
	ProductID      *uuid.UUID       `json:"product_id,omitempty"`
	Name           string           `json:"name"`
	Quantity       int              `json:"quantity"`
	RequestedPrice *decimal.Decimal `json:"requested_price,omitempty"`
	Notes          *string          `json:"notes,omitempty"`
}

type AssignmentDTO struct {
	AssignedBy *uuid.UUID `json:"assigned_by,omitempty"`
	AssignedTo uuid.UUID  `json:"assigned_to"`
	Role       enums.Role `json:"role"`
	Notes      *string    `json:"notes,omitempty"`
	AssignedAt time.Time  `json:"assigned_at"`
}

type ShoppingListDTO struct {
	ID                uuid.UUID                `json:"id"`
	BuyerID           uuid.UUID                `json:"buyer_id"`
	Status            enums.ShoppingListStatus `json:"status"`
	ShippingAddress   orders.AddressDTO        `json:"shipping_address"`
	BuyerNotes        *string                  `json:"buyer_notes,omitempty"`
	AssignedTo        *uuid.UUID               `json:"assigned_to,omitempty"`
	CustomerServiceID *uuid.UUID               `json:"customer_service_id,omitempty"`
	ConvertedOrderID  *uuid.UUID               `json:"converted_order_id,omitempty"`
	InternalNotes     *string                  `json:"internal_notes,omitempty"`
	EstimatedTotal    *decimal.Decimal         `json:"estimated_total,omitempty"`
	Items             []ItemDTO                `json:"items"`
	AssignmentHistory []AssignmentDTO          `json:"assignment_history,omitempty"`
	CreatedAt         time.Time                `json:"created_at"`
	UpdatedAt         time.Time                `json:"updated_at"`
}

type ShoppingListPage struct {
	ShoppingLists []ShoppingListDTO `json:"shopping_lists"`
	NextCursor    string            `json:"next_cursor,omitempty"`
}

// FromModel renders a list. Internal notes and assignment history are staff-only.
func FromModel(l *models.ShoppingList, viewerRole enums.Role) *ShoppingListDTO {
	dto := &ShoppingListDTO{
		ID:      l.ID,
		BuyerID: l.BuyerID,
		Status:  l.Status,
		ShippingAddress: orders.AddressDTO{
			Street:  l.ShippingAddress.Street,
			City:    l.ShippingAddress.City,
			State:   l.ShippingAddress.State,
			ZipCode: l.ShippingAddress.ZipCode,
			Phone:   l.ShippingAddress.Phone,
		},
		BuyerNotes:        l.BuyerNotes,
		AssignedTo:        l.AssignedToID,
		CustomerServiceID: l.CustomerServiceID,
		ConvertedOrderID:  l.ConvertedOrderID,
		Items:             make([]ItemDTO, 0, len(l.Items)),
		CreatedAt:         l.CreatedAt,
		UpdatedAt:         l.UpdatedAt,
	}
	if l.EstimatedTotal.Valid {
		total := l.EstimatedTotal.Decimal
		dto.EstimatedTotal = &total
	}
	for _, item := range l.Items {
		out := ItemDTO{ProductID: item.ProductID, Name: item.Name, Quantity: item.Quantity, Notes: item.Notes}
		if item.RequestedPrice.Valid {
			price := item.RequestedPrice.Decimal
			out.RequestedPrice = &price
		}
		dto.Items = append(dto.Items, out)
	}
	if viewerRole.AtLeast(enums.RoleAgent) {
		dto.InternalNotes = l.InternalNotes
		for _, a := range l.AssignmentHistory {
			dto.AssignmentHistory = append(dto.AssignmentHistory, AssignmentDTO{
				AssignedBy: a.AssignedByID,
				AssignedTo: a.AssignedToID,
				Role:       a.Role,
				Notes:      a.Notes,
				AssignedAt: a.AssignedAt,
			})
		}
	}
	return dto
}
