package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/naijamall/naijamall-backend/pkg/enums"
)

// Payment is the escrow ledger entry for one order.
type Payment struct {
	ID                  uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID             uuid.UUID             `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	BuyerID             uuid.UUID             `gorm:"column:buyer_id;type:uuid;not null"`
	Amount              decimal.Decimal       `gorm:"column:amount;type:numeric(14,2);not null"`
	PaymentMethod       enums.PaymentMethod   `gorm:"column:payment_method;type:text;not null"`
	Gateway             string                `gorm:"column:gateway;not null;default:'paystack'"`
	Reference           string                `gorm:"column:reference;not null;uniqueIndex"`
	GatewayReference    *string               `gorm:"column:gateway_reference"`
	TransactionID       *string               `gorm:"column:transaction_id"`
	AuthorizationURL    *string               `gorm:"column:authorization_url"`
	AccessCode          *string               `gorm:"column:access_code"`
	Status              enums.PaymentStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	EscrowStatus        enums.EscrowStatus    `gorm:"column:escrow_status;type:text;not null;default:'not_started'"`
	EscrowHeldAt        *time.Time            `gorm:"column:escrow_held_at"`
	EscrowReleasedAt    *time.Time            `gorm:"column:escrow_released_at"`
	EscrowReleaseReason *string               `gorm:"column:escrow_release_reason"`
	Fees                PaymentFees           `gorm:"embedded;embeddedPrefix:fee_"`
	Refund              PaymentRefund         `gorm:"embedded;embeddedPrefix:refund_"`
	FailureReason       *string               `gorm:"column:failure_reason"`
	FailedAt            *time.Time            `gorm:"column:failed_at"`
	GatewayResponse     json.RawMessage       `gorm:"column:gateway_response;type:jsonb"`
	Distribution        []PaymentDistribution `gorm:"foreignKey:PaymentID;constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// PaymentFees is the fee block computed once at release.
type PaymentFees struct {
	EscrowFee            decimal.NullDecimal `gorm:"column:escrow_fee;type:numeric(14,2)"`
	MarketProcurementFee decimal.NullDecimal `gorm:"column:market_procurement_fee;type:numeric(14,2)"`
	SellerCommission     decimal.NullDecimal `gorm:"column:seller_commission;type:numeric(14,2)"`
	RiderFee             decimal.NullDecimal `gorm:"column:rider_fee;type:numeric(14,2)"`
	PlatformTotal        decimal.NullDecimal `gorm:"column:platform_total;type:numeric(14,2)"`
}

// PaymentRefund is present only when escrow ended refunded_to_buyer.
type PaymentRefund struct {
	Amount     decimal.NullDecimal `gorm:"column:amount;type:numeric(14,2)"`
	Reason     *string             `gorm:"column:reason"`
	RefundedAt *time.Time          `gorm:"column:refunded_at"`
	Reference  *string             `gorm:"column:reference"`
}

// DistributionTotal sums every distribution line.
func (p *Payment) DistributionTotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range p.Distribution {
		total = total.Add(line.Amount)
	}
	return total
}

// HasRecipient reports whether userID receives any distribution line.
func (p *Payment) HasRecipient(userID uuid.UUID) bool {
	for _, line := range p.Distribution {
		if line.RecipientID != nil && *line.RecipientID == userID {
			return true
		}
	}
	return false
}

// PaymentDistribution is one settlement line written at escrow release.
type PaymentDistribution struct {
	ID            uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PaymentID     uuid.UUID                `gorm:"column:payment_id;type:uuid;not null"`
	RecipientID   *uuid.UUID               `gorm:"column:recipient_id;type:uuid"`
	RecipientType enums.RecipientType      `gorm:"column:recipient_type;type:text;not null"`
	Amount        decimal.Decimal          `gorm:"column:amount;type:numeric(14,2);not null"`
	Status        enums.DistributionStatus `gorm:"column:status;type:text;not null"`
	PaidAt        *time.Time               `gorm:"column:paid_at"`
	CreatedAt     time.Time                `gorm:"column:created_at;autoCreateTime"`
}

// PaymentAttempt is one checkout reference issued for a payment. Re-arming a checkout issues a
// new reference; older ones stay resolvable so a late gateway callback still finds its payment.
type PaymentAttempt struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PaymentID uuid.UUID `gorm:"column:payment_id;type:uuid;not null"`
	Reference string    `gorm:"column:reference;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
