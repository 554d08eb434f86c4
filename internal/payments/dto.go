package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/naijamall/naijamall-backend/pkg/db/models"
	"github.com/naijamall/naijamall-backend/pkg/enums"
)

type DistributionDTO struct {
	RecipientID   *uuid.UUID               `json:"recipient_id,omitempty"`
	RecipientType enums.RecipientType      `json:"recipient_type"`
	Amount        decimal.Decimal          `json:"amount"`
	Status        enums.DistributionStatus `json:"status"`
	PaidAt        *time.Time               `json:"paid_at,omitempty"`
}

type FeesDTO struct {
	EscrowFee            decimal.Decimal `json:"escrow_fee"`
	MarketProcurementFee decimal.Decimal `json:"market_procurement_fee"`
	SellerCommission     decimal.Decimal `json:"seller_commission"`
	RiderFee             decimal.Decimal `json:"rider_fee"`
	PlatformTotal        decimal.Decimal `json:"platform_total"`
}

type RefundDTO struct {
	Amount     decimal.Decimal `json:"amount"`
	Reason     *string         `json:"reason,omitempty"`
	RefundedAt *time.Time      `json:"refunded_at,omitempty"`
	Reference  *string         `json:"reference,omitempty"`
}

// PaymentDTO is the ledger entry as returned to clients. The raw gateway response stays internal.
type PaymentDTO struct {
	ID                  uuid.UUID           `json:"id"`
	OrderID             uuid.UUID           `json:"order_id"`
	BuyerID             uuid.UUID           `json:"buyer_id"`
	Amount              decimal.Decimal     `json:"amount"`
	PaymentMethod       enums.PaymentMethod `json:"payment_method"`
	Gateway             string              `json:"gateway"`
	Reference           string              `json:"reference"`
	TransactionID       *string             `json:"transaction_id,omitempty"`
	AuthorizationURL    *string             `json:"authorization_url,omitempty"`
	AccessCode          *string             `json:"access_code,omitempty"`
	Status              enums.PaymentStatus `json:"status"`
	EscrowStatus        enums.EscrowStatus  `json:"escrow_status"`
	EscrowHeldAt        *time.Time          `json:"escrow_held_at,omitempty"`
	EscrowReleasedAt    *time.Time          `json:"escrow_released_at,omitempty"`
	EscrowReleaseReason *string             `json:"escrow_release_reason,omitempty"`
	Fees                *FeesDTO            `json:"fees,omitempty"`
	Refund              *RefundDTO          `json:"refund,omitempty"`
	FailureReason       *string             `json:"failure_reason,omitempty"`
	Distribution        []DistributionDTO   `json:"distribution"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

type PaymentList struct {
	Payments   []PaymentDTO `json:"payments"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

func FromModel(p *models.Payment) *PaymentDTO {
	if p == nil {
		return nil
	}
	dto := &PaymentDTO{
		ID:                  p.ID,
		OrderID:             p.OrderID,
		BuyerID:             p.BuyerID,
		Amount:              p.Amount,
		PaymentMethod:       p.PaymentMethod,
		Gateway:             p.Gateway,
		Reference:           p.Reference,
		TransactionID:       p.TransactionID,
		AuthorizationURL:    p.AuthorizationURL,
		AccessCode:          p.AccessCode,
		Status:              p.Status,
		EscrowStatus:        p.EscrowStatus,
		EscrowHeldAt:        p.EscrowHeldAt,
		EscrowReleasedAt:    p.EscrowReleasedAt,
		EscrowReleaseReason: p.EscrowReleaseReason,
		FailureReason:       p.FailureReason,
		Distribution:        make([]DistributionDTO, 0, len(p.Distribution)),
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
	if p.Fees.PlatformTotal.Valid {
		dto.Fees = &FeesDTO{
			EscrowFee:            p.Fees.EscrowFee.Decimal,
			MarketProcurementFee: p.Fees.MarketProcurementFee.Decimal,
			SellerCommission:     p.Fees.SellerCommission.Decimal,
			RiderFee:             p.Fees.RiderFee.Decimal,
			PlatformTotal:        p.Fees.PlatformTotal.Decimal,
		}
	}
	if p.Refund.Amount.Valid {
		dto.Refund = &RefundDTO{
			Amount:     p.Refund.Amount.Decimal,
			Reason:     p.Refund.Reason,
			RefundedAt: p.Refund.RefundedAt,
			Reference:  p.Refund.Reference,
		}
	}
	for _, line := range p.Distribution {
		dto.Distribution = append(dto.Distribution, DistributionDTO{
			RecipientID:   line.RecipientID,
			RecipientType: line.RecipientType,
			Amount:        line.Amount,
			Status:        line.Status,
			PaidAt:        line.PaidAt,
		})
	}
	return dto
}
