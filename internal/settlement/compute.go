// Package settlement splits an escrowed payment between sellers, the rider and the platform.
package settlement

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/naijamall/naijamall-backend/internal/fees"
	"github.com/naijamall/naijamall-backend/pkg/db/models"
	"github.com/naijamall/naijamall-backend/pkg/enums"
	pkgerrors "github.com/naijamall/naijamall-backend/pkg/errors"
)

// Line is one payout computed for a recipient.
type Line struct {
	RecipientID   *uuid.UUID
	RecipientType enums.RecipientType
	Amount        decimal.Decimal
}

// Result is the full settlement of one payment.
type Result struct {
	Lines                []Line
	EscrowFee            decimal.Decimal
	MarketProcurementFee decimal.Decimal
	SellerCommission     decimal.Decimal
	RiderFee             decimal.Decimal
	PlatformTotal        decimal.Decimal
}

// Total sums every line.
func (r *Result) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range r.Lines {
		total = total.Add(line.Amount)
	}
	return total
}

// Mismatch describes a settlement that does not add up to the escrowed amount.
type Mismatch struct {
	OrderID   uuid.UUID       `json:"order_id"`
	PaymentID uuid.UUID       `json:"payment_id"`
	Expected  decimal.Decimal `json:"expected"`
	Computed  decimal.Decimal `json:"computed"`
}

// Compute derives the distribution for payment from the order's price snapshot. Seller lines
// follow the order in which each seller first appears in the items. It writes nothing.
func Compute(order *models.Order, payment *models.Payment) (*Result, error) {
	if order == nil || payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order and payment required for settlement")
	}
	if payment.OrderID != order.ID {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment does not belong to order")
	}

	sellerOrder := make([]uuid.UUID, 0, len(order.Items))
	sellerTotals := make(map[uuid.UUID]decimal.Decimal, len(order.Items))
	for _, item := range order.Items {
		if _, seen := sellerTotals[item.SellerID]; !seen {
			sellerOrder = append(sellerOrder, item.SellerID)
			sellerTotals[item.SellerID] = decimal.Zero
		}
		sellerTotals[item.SellerID] = sellerTotals[item.SellerID].Add(item.Subtotal)
	}

	result := &Result{
		EscrowFee:            order.EscrowFee,
		MarketProcurementFee: order.MarketProcurementFee,
		SellerCommission:     decimal.Zero,
	}

	for _, sellerID := range sellerOrder {
		subtotal := sellerTotals[sellerID]
		id := sellerID
		result.Lines = append(result.Lines, Line{
			RecipientID:   &id,
			RecipientType: enums.RecipientSeller,
			Amount:        fees.SellerShare(subtotal),
		})
		result.SellerCommission = result.SellerCommission.Add(fees.SellerCommission(subtotal))
	}

	riderShare := fees.RiderShare(order.DeliveryFee)
	platform := order.EscrowFee.
		Add(order.MarketProcurementFee).
		Add(result.SellerCommission).
		Add(fees.PlatformDeliveryShare(order.DeliveryFee))

	if order.RiderID != nil {
		riderID := *order.RiderID
		result.Lines = append(result.Lines, Line{
			RecipientID:   &riderID,
			RecipientType: enums.RecipientRider,
			Amount:        riderShare,
		})
		result.RiderFee = riderShare
	} else {
		// No rider ever held the delivery; their share stays with the platform.
		platform = platform.Add(riderShare)
		result.RiderFee = decimal.Zero
	}

	result.PlatformTotal = platform
	result.Lines = append(result.Lines, Line{
		RecipientType: enums.RecipientPlatform,
		Amount:        platform,
	})

	if computed := result.Total(); !computed.Equal(payment.Amount) {
		return nil, pkgerrors.New(pkgerrors.CodeReconciliation, "settlement does not reconcile with escrowed amount").
			WithDetails(Mismatch{
				OrderID:   order.ID,
				PaymentID: payment.ID,
				Expected:  payment.Amount,
				Computed:  computed,
			})
	}
	return result, nil
}
