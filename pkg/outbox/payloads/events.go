package payloads

import (
	"time"

	"github.com/google/uuid"
)

// OrderCreatedEvent is emitted once an order and its stock reservation commit.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	BuyerID     uuid.UUID `json:"buyer_id"`
	TotalAmount string    `json:"total_amount"`
	ItemCount   int       `json:"item_count"`
}

// OrderStatusChangedEvent covers every persisted status transition.
type OrderStatusChangedEvent struct {
	OrderID        uuid.UUID `json:"order_id"`
	OrderNumber    string    `json:"order_number"`
	FromStatus     string    `json:"from_status"`
	ToStatus       string    `json:"to_status"`
	DeliveryStatus string    `json:"delivery_status"`
}

// OrderAssignedEvent records a delegation to a rider, agent or support user.
type OrderAssignedEvent struct {
	OrderID      uuid.UUID  `json:"order_id"`
	AssignedToID uuid.UUID  `json:"assigned_to_id"`
	AssignedByID *uuid.UUID `json:"assigned_by_id,omitempty"`
	Role         string     `json:"role"`
}

type OrderCancelledEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	CancelledBy uuid.UUID `json:"cancelled_by"`
	Reason      string    `json:"reason,omitempty"`
	Refunded    bool      `json:"refunded"`
}

type OrderDeliveryConfirmedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	BuyerID     uuid.UUID `json:"buyer_id"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

// PaymentEvent is shared by the payment lifecycle events.
type PaymentEvent struct {
	PaymentID uuid.UUID `json:"payment_id"`
	OrderID   uuid.UUID `json:"order_id"`
	Reference string    `json:"reference"`
	Amount    string    `json:"amount"`
	Status    string    `json:"status"`
	Reason    string    `json:"reason,omitempty"`
}

type DistributionLine struct {
	RecipientID   *uuid.UUID `json:"recipient_id,omitempty"`
	RecipientType string     `json:"recipient_type"`
	Amount        string     `json:"amount"`
}

type EscrowReleasedEvent struct {
	PaymentID    uuid.UUID          `json:"payment_id"`
	OrderID      uuid.UUID          `json:"order_id"`
	Amount       string             `json:"amount"`
	Reason       string             `json:"reason"`
	Distribution []DistributionLine `json:"distribution"`
}

type EscrowStaleEvent struct {
	PaymentID    uuid.UUID `json:"payment_id"`
	OrderID      uuid.UUID `json:"order_id"`
	EscrowHeldAt time.Time `json:"escrow_held_at"`
	HeldFor      string    `json:"held_for"`
}

type ShoppingListEvent struct {
	ShoppingListID uuid.UUID  `json:"shopping_list_id"`
	BuyerID        uuid.UUID  `json:"buyer_id"`
	AssignedToID   *uuid.UUID `json:"assigned_to_id,omitempty"`
	OrderID        *uuid.UUID `json:"order_id,omitempty"`
}

type UserRoleChangedEvent struct {
	UserID  uuid.UUID `json:"user_id"`
	OldRole string    `json:"old_role"`
	NewRole string    `json:"new_role"`
}

type UserStatusChangedEvent struct {
	UserID   uuid.UUID `json:"user_id"`
	IsActive bool      `json:"is_active"`
}
