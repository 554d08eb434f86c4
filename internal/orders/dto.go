package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/naijamall/naijamall-backend/pkg/db/models"
	"github.com/naijamall/naijamall-backend/pkg/enums"
)

// Viewer is the authenticated principal reading orders.
type Viewer struct {
	UserID uuid.UUID
	Role   enums.Role
}

// ListFilters narrow order listings.
type ListFilters struct {
	Status         *enums.OrderStatus
	Statuses       []enums.OrderStatus
	DeliveryStatus *enums.DeliveryStatus
	PaymentStatus  *enums.OrderPaymentStatus
	OrderNumber    string
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
}

// Query is ListFilters plus the participant scope derived from the viewer.
type Query struct {
	ListFilters
	BuyerID           *uuid.UUID
	SellerID          *uuid.UUID
	RiderID           *uuid.UUID
	AgentID           *uuid.UUID
	CustomerServiceID *uuid.UUID
}

// AddressDTO is the shipping destination on the wire.
type AddressDTO struct {
	Street  string  `json:"street"`
	City    string  `json:"city"`
	State   string  `json:"state"`
	ZipCode *string `json:"zip_code,omitempty"`
	Phone   string  `json:"phone"`
}

type ItemDTO struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	SellerID    uuid.UUID       `json:"seller_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type TrackingDTO struct {
	Status      string    `json:"status"`
	Description string    `json:"description"`
	Location    *string   `json:"location,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type AssignmentDTO struct {
	AssignedBy *uuid.UUID `json:"assigned_by,omitempty"`
	AssignedTo uuid.UUID  `json:"assigned_to"`
	Role       enums.Role `json:"role"`
	Notes      *string    `json:"notes,omitempty"`
	AssignedAt time.Time  `json:"assigned_at"`
}

type BuyerConfirmationDTO struct {
	Confirmed   bool       `json:"confirmed"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	Feedback    *string    `json:"feedback,omitempty"`
}

// OrderDTO is the full order view. InternalNotes is only populated for staff viewers.
type OrderDTO struct {
	ID                   uuid.UUID                `json:"id"`
	OrderNumber          string                   `json:"order_number"`
	BuyerID              uuid.UUID                `json:"buyer_id"`
	Items                []ItemDTO                `json:"items"`
	ShippingAddress      AddressDTO               `json:"shipping_address"`
	PaymentMethod        enums.PaymentMethod      `json:"payment_method"`
	PaymentReference     *string                  `json:"payment_reference,omitempty"`
	ItemsTotal           decimal.Decimal          `json:"items_total"`
	EscrowFee            decimal.Decimal          `json:"escrow_fee"`
	MarketProcurementFee decimal.Decimal          `json:"market_procurement_fee"`
	DeliveryFee          decimal.Decimal          `json:"delivery_fee"`
	TotalAmount          decimal.Decimal          `json:"total_amount"`
	Status               enums.OrderStatus        `json:"status"`
	PaymentStatus        enums.OrderPaymentStatus `json:"payment_status"`
	DeliveryStatus       enums.DeliveryStatus     `json:"delivery_status"`
	RiderID              *uuid.UUID               `json:"rider_id,omitempty"`
	AssignedAgentID      *uuid.UUID               `json:"assigned_agent_id,omitempty"`
	CustomerServiceID    *uuid.UUID               `json:"customer_service_id,omitempty"`
	BuyerConfirmation    BuyerConfirmationDTO     `json:"buyer_confirmation"`
	CancellationReason   *string                  `json:"cancellation_reason,omitempty"`
	CancelledBy          *uuid.UUID               `json:"cancelled_by,omitempty"`
	CancelledAt          *time.Time               `json:"cancelled_at,omitempty"`
	EstimatedDeliveryAt  *time.Time               `json:"estimated_delivery_time,omitempty"`
	ActualDeliveryAt     *time.Time               `json:"actual_delivery_time,omitempty"`
	BuyerNotes           *string                  `json:"buyer_notes,omitempty"`
	InternalNotes        *string                  `json:"internal_notes,omitempty"`
	TrackingHistory      []TrackingDTO            `json:"tracking_history,omitempty"`
	AssignmentHistory    []AssignmentDTO          `json:"assignment_history,omitempty"`
	CreatedAt            time.Time                `json:"created_at"`
	UpdatedAt            time.Time                `json:"updated_at"`
}

// OrderList is one page of orders.
type OrderList struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// FromModel maps an order for viewer. Internal notes stay hidden below customer service.
func FromModel(o *models.Order, viewer enums.Role) *OrderDTO {
	if o == nil {
		return nil
	}
	dto := &OrderDTO{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		BuyerID:     o.BuyerID,
		ShippingAddress: AddressDTO{
			Street:  o.ShippingAddress.Street,
			City:    o.ShippingAddress.City,
			State:   o.ShippingAddress.State,
			ZipCode: o.ShippingAddress.ZipCode,
			Phone:   o.ShippingAddress.Phone,
		},
		PaymentMethod:        o.PaymentMethod,
		PaymentReference:     o.PaymentReference,
		ItemsTotal:           o.ItemsTotal,
		EscrowFee:            o.EscrowFee,
		MarketProcurementFee: o.MarketProcurementFee,
		DeliveryFee:          o.DeliveryFee,
		TotalAmount:          o.TotalAmount,
		Status:               o.Status,
		PaymentStatus:        o.PaymentStatus,
		DeliveryStatus:       o.DeliveryStatus,
		RiderID:              o.RiderID,
		AssignedAgentID:      o.AssignedAgentID,
		CustomerServiceID:    o.CustomerServiceID,
		BuyerConfirmation: BuyerConfirmationDTO{
			Confirmed:   o.BuyerConfirmed,
			ConfirmedAt: o.BuyerConfirmedAt,
			Feedback:    o.BuyerFeedback,
		},
		CancellationReason:  o.CancellationReason,
		CancelledBy:         o.CancelledByID,
		CancelledAt:         o.CancelledAt,
		EstimatedDeliveryAt: o.EstimatedDeliveryAt,
		ActualDeliveryAt:    o.ActualDeliveryAt,
		BuyerNotes:          o.BuyerNotes,
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
	}
	if viewer.AtLeast(enums.RoleAgent) {
		dto.InternalNotes = o.InternalNotes
	}

	dto.Items = make([]ItemDTO, 0, len(o.Items))
	for _, item := range o.Items {
		dto.Items = append(dto.Items, ItemDTO{
			ID:          item.ID,
			ProductID:   item.ProductID,
			SellerID:    item.SellerID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Subtotal:    item.Subtotal,
		})
	}
	for _, entry := range o.TrackingHistory {
		dto.TrackingHistory = append(dto.TrackingHistory, TrackingDTO{
			Status:      entry.Status,
			Description: entry.Description,
			Location:    entry.Location,
			CreatedAt:   entry.CreatedAt,
		})
	}
	for _, a := range o.AssignmentHistory {
		dto.AssignmentHistory = append(dto.AssignmentHistory, AssignmentDTO{
			AssignedBy: a.AssignedByID,
			AssignedTo: a.AssignedToID,
			Role:       a.Role,
			Notes:      a.Notes,
			AssignedAt: a.AssignedAt,
		})
	}
	return dto
}
