package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/naijamall/naijamall-backend/pkg/enums"
)

// ShoppingList is a free-text wishlist a buyer asks the market team to procure.
type ShoppingList struct {
	ID                uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID           uuid.UUID                `gorm:"column:buyer_id;type:uuid;not null"`
	Status            enums.ShoppingListStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	ShippingAddress   Address                  `gorm:"embedded;embeddedPrefix:shipping_"`
	BuyerNotes        *string                  `gorm:"column:buyer_notes"`
	AssignedToID      *uuid.UUID               `gorm:"column:assigned_to;type:uuid"`
	CustomerServiceID *uuid.UUID               `gorm:"column:customer_service_id;type:uuid"`
	ConvertedOrderID  *uuid.UUID               `gorm:"column:converted_order_id;type:uuid"`
	InternalNotes     *string                  `gorm:"column:internal_notes"`
	EstimatedTotal    decimal.NullDecimal      `gorm:"column:estimated_total;type:numeric(14,2)"`
	Items             []ShoppingListItem       `gorm:"foreignKey:ShoppingListID;constraint:OnDelete:CASCADE"`
	AssignmentHistory []ShoppingListAssignment `gorm:"foreignKey:ShoppingListID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

type ShoppingListItem struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ShoppingListID uuid.UUID           `gorm:"column:shopping_list_id;type:uuid;not null"`
	ProductID      *uuid.UUID          `gorm:"column:product_id;type:uuid"`
	Name           string              `gorm:"column:name;not null"`
	Quantity       int                 `gorm:"column:quantity;not null"`
	RequestedPrice decimal.NullDecimal `gorm:"column:requested_price;type:numeric(14,2)"`
	Notes          *string             `gorm:"column:notes"`
}

type ShoppingListAssignment struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ShoppingListID uuid.UUID  `gorm:"column:shopping_list_id;type:uuid;not null"`
	AssignedByID   *uuid.UUID `gorm:"column:assigned_by;type:uuid"`
	AssignedToID   uuid.UUID  `gorm:"column:assigned_to;type:uuid;not null"`
	Role           enums.Role `gorm:"column:role;type:text;not null"`
	Notes          *string    `gorm:"column:notes"`
	AssignedAt     time.Time  `gorm:"column:assigned_at;autoCreateTime"`
}
