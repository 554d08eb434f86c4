package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/naijamall/naijamall-backend/pkg/enums"
)

// Order is a buyer checkout with its price snapshot, lifecycle state and audit logs.
type Order struct {
	ID                   uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber          string                   `gorm:"column:order_number;not null;uniqueIndex"`
	BuyerID              uuid.UUID                `gorm:"column:buyer_id;type:uuid;not null"`
	ShippingAddress      Address                  `gorm:"embedded;embeddedPrefix:shipping_"`
	PaymentMethod        enums.PaymentMethod      `gorm:"column:payment_method;type:text;not null"`
	PaymentReference     *string                  `gorm:"column:payment_reference"`
	ItemsTotal           decimal.Decimal          `gorm:"column:items_total;type:numeric(14,2);not null"`
	EscrowFee            decimal.Decimal          `gorm:"column:escrow_fee;type:numeric(14,2);not null"`
	MarketProcurementFee decimal.Decimal          `gorm:"column:market_procurement_fee;type:numeric(14,2);not null"`
	DeliveryFee          decimal.Decimal          `gorm:"column:delivery_fee;type:numeric(14,2);not null"`
	TotalAmount          decimal.Decimal          `gorm:"column:total_amount;type:numeric(14,2);not null"`
	Status               enums.OrderStatus        `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentStatus        enums.OrderPaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	DeliveryStatus       enums.DeliveryStatus     `gorm:"column:delivery_status;type:text;not null;default:'not_assigned'"`
	RiderID              *uuid.UUID               `gorm:"column:rider_id;type:uuid"`
	AssignedAgentID      *uuid.UUID               `gorm:"column:assigned_agent_id;type:uuid"`
	CustomerServiceID    *uuid.UUID               `gorm:"column:customer_service_id;type:uuid"`
	BuyerConfirmed       bool                     `gorm:"column:buyer_confirmed;not null;default:false"`
	BuyerConfirmedAt     *time.Time               `gorm:"column:buyer_confirmed_at"`
	BuyerFeedback        *string                  `gorm:"column:buyer_feedback"`
	CancellationReason   *string                  `gorm:"column:cancellation_reason"`
	CancelledByID        *uuid.UUID               `gorm:"column:cancelled_by;type:uuid"`
	CancelledAt          *time.Time               `gorm:"column:cancelled_at"`
	StockReleased        bool                     `gorm:"column:stock_released;not null;default:false"`
	EstimatedDeliveryAt  *time.Time               `gorm:"column:estimated_delivery_time"`
	ActualDeliveryAt     *time.Time               `gorm:"column:actual_delivery_time"`
	BuyerNotes           *string                  `gorm:"column:buyer_notes"`
	InternalNotes        *string                  `gorm:"column:internal_notes"`
	Items                []OrderItem              `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	TrackingHistory      []OrderTrackingEntry     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	AssignmentHistory    []OrderAssignment        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt            time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

// PricingConsistent reports whether the persisted total equals the sum of its components.
func (o *Order) PricingConsistent() bool {
	sum := o.ItemsTotal.Add(o.EscrowFee).Add(o.MarketProcurementFee).Add(o.DeliveryFee)
	return sum.Equal(o.TotalAmount)
}

// HasSeller reports whether any line item belongs to sellerID.
func (o *Order) HasSeller(sellerID uuid.UUID) bool {
	for _, item := range o.Items {
		if item.SellerID == sellerID {
			return true
		}
	}
	return false
}

// NextTrackingSeq returns the sequence number for the next tracking entry.
func (o *Order) NextTrackingSeq() int {
	max := 0
	for _, entry := range o.TrackingHistory {
		if entry.Seq > max {
			max = entry.Seq
		}
	}
	return max + 1
}

// OrderItem is the immutable price snapshot of one product in an order.
type OrderItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID       `gorm:"column:order_id;type:uuid;not null"`
	ProductID   uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	SellerID    uuid.UUID       `gorm:"column:seller_id;type:uuid;not null"`
	ProductName string          `gorm:"column:product_name;not null"`
	Quantity    int             `gorm:"column:quantity;not null"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(14,2);not null"`
	Subtotal    decimal.Decimal `gorm:"column:subtotal;type:numeric(14,2);not null"`
	Position    int             `gorm:"column:position;not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// OrderTrackingEntry is one append-only line of the order audit trail.
type OrderTrackingEntry struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	Seq         int       `gorm:"column:seq;not null"`
	Status      string    `gorm:"column:status;not null"`
	Description string    `gorm:"column:description;not null"`
	Location    *string   `gorm:"column:location"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

// OrderAssignment records one delegation of an order to a rider, agent or support user.
type OrderAssignment struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID      uuid.UUID  `gorm:"column:order_id;type:uuid;not null"`
	AssignedByID *uuid.UUID `gorm:"column:assigned_by;type:uuid"`
	AssignedToID uuid.UUID  `gorm:"column:assigned_to;type:uuid;not null"`
	Role         enums.Role `gorm:"column:role;type:text;not null"`
	Notes        *string    `gorm:"column:notes"`
	AssignedAt   time.Time  `gorm:"column:assigned_at;autoCreateTime"`
}
