// Package fees prices an order: the escrow fee, the tiered market procurement fee and the
// delivery fee. Everything here is pure and uses decimal arithmetic.
package fees

import (
	"github.com/shopspring/decimal"
)

var (
	// EscrowFee is charged once per order for holding funds.
	EscrowFee = decimal.NewFromInt(500)

	// SellerCommissionRate is deducted from each seller's own subtotal at settlement.
	SellerCommissionRate = decimal.RequireFromString("0.05")
	// RiderShareRate is the part of the delivery fee paid to the rider.
	RiderShareRate = decimal.RequireFromString("0.90")
	// PlatformDeliveryRate is the part of the delivery fee kept by the platform.
	PlatformDeliveryRate = decimal.RequireFromString("0.10")
)

type procurementTier struct {
	below decimal.Decimal
	fee   decimal.Decimal
}

var procurementTiers = []procurementTier{
	{below: decimal.NewFromInt(5000), fee: decimal.NewFromInt(1500)},
	{below: decimal.NewFromInt(10000), fee: decimal.NewFromInt(2500)},
	{below: decimal.NewFromInt(20000), fee: decimal.NewFromInt(3500)},
}

var procurementCeiling = decimal.NewFromInt(5000)

// DeliveryZone carries whatever a delivery policy needs to price a drop-off.
type DeliveryZone struct {
	City  string
	State string
}

// DeliveryFeePolicy prices delivery for a zone.
type DeliveryFeePolicy interface {
	DeliveryFee(itemsTotal decimal.Decimal, zone DeliveryZone) decimal.Decimal
}

// FlatDeliveryFee charges the same amount everywhere.
type FlatDeliveryFee struct {
	Amount decimal.Decimal
}

func (f FlatDeliveryFee) DeliveryFee(decimal.Decimal, DeliveryZone) decimal.Decimal {
	return f.Amount
}

// DefaultDeliveryFee is used when no policy is configured.
var DefaultDeliveryFee = FlatDeliveryFee{Amount: decimal.NewFromInt(1000)}

// Breakdown is the fee set stamped on an order at creation.
type Breakdown struct {
	EscrowFee            decimal.Decimal
	MarketProcurementFee decimal.Decimal
	DeliveryFee          decimal.Decimal
}

// Total returns itemsTotal plus every fee.
func (b Breakdown) Total(itemsTotal decimal.Decimal) decimal.Decimal {
	return itemsTotal.Add(b.EscrowFee).Add(b.MarketProcurementFee).Add(b.DeliveryFee)
}

// Calculator computes fee breakdowns with a pluggable delivery policy.
type Calculator struct {
	delivery DeliveryFeePolicy
}

func NewCalculator(delivery DeliveryFeePolicy) *Calculator {
	if delivery == nil {
		delivery = DefaultDeliveryFee
	}
	return &Calculator{delivery: delivery}
}

func (c *Calculator) Compute(itemsTotal decimal.Decimal, zone DeliveryZone) Breakdown {
	return Breakdown{
		EscrowFee:            EscrowFee,
		MarketProcurementFee: MarketProcurementFee(itemsTotal),
		DeliveryFee:          c.delivery.DeliveryFee(itemsTotal, zone),
	}
}

// MarketProcurementFee is the tiered agent shopping charge for a basket.
func MarketProcurementFee(itemsTotal decimal.Decimal) decimal.Decimal {
	for _, tier := range procurementTiers {
		if itemsTotal.LessThan(tier.below) {
			return tier.fee
		}
	}
	return procurementCeiling
}

// SellerShare is what a seller receives for subtotal after commission.
func SellerShare(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Sub(SellerCommission(subtotal))
}

func SellerCommission(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(SellerCommissionRate)
}

// RiderShare is the rider's cut of the delivery fee.
func RiderShare(deliveryFee decimal.Decimal) decimal.Decimal {
	return deliveryFee.Mul(RiderShareRate)
}

func PlatformDeliveryShare(deliveryFee decimal.Decimal) decimal.Decimal {
	return deliveryFee.Sub(RiderShare(deliveryFee))
}
