package reports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/naijamall/naijamall-backend/pkg/db/models"
	"github.com/naijamall/naijamall-backend/pkg/enums"
)

// Repository runs the read-only aggregate queries behind dashboards and stats.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// OrderScope narrows aggregate queries. Nil fields match everything.
type OrderScope struct {
	RiderID *uuid.UUID
	AgentID *uuid.UUID
	Since   *time.Time
	Until   *time.Time
}

func (r *Repository) scoped(ctx context.Context, scope OrderScope) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if scope.RiderID != nil {
		query = query.Where("rider_id = ?", *scope.RiderID)
	}
	if scope.AgentID != nil {
		query = query.Where("assigned_agent_id = ?", *scope.AgentID)
	}
	if scope.Since != nil {
		query = query.Where("created_at >= ?", *scope.Since)
	}
	if scope.Until != nil {
		query = query.Where("created_at < ?", *scope.Until)
	}
	return query
}

func (r *Repository) CountOrdersByStatus(ctx context.Context, scope OrderScope) (map[enums.OrderStatus]int64, error) {
	var rows []struct {
		Status enums.OrderStatus
		Count  int64
	}
	if err := r.scoped(ctx, scope).Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[enums.OrderStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

func (r *Repository) CountDeliveriesByStatus(ctx context.Context, scope OrderScope) (map[enums.DeliveryStatus]int64, error) {
	var rows []struct {
		DeliveryStatus enums.DeliveryStatus
		Count          int64
	}
	if err := r.scoped(ctx, scope).Select("delivery_status, COUNT(*) AS count").Group("delivery_status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[enums.DeliveryStatus]int64, len(rows))
	for _, row := range rows {
		out[row.DeliveryStatus] = row.Count
	}
	return out, nil
}

// SettledDeliveryFees returns the delivery fee of every delivered order whose escrow was released.
func (r *Repository) SettledDeliveryFees(ctx context.Context, scope OrderScope) ([]decimal.Decimal, error) {
	var fees []decimal.Decimal
	err := r.scoped(ctx, scope).
		Where("delivery_status = ? AND payment_status = ?", enums.DeliveryDelivered, enums.OrderPaymentReleased).
		Pluck("delivery_fee", &fees).Error
	return fees, err
}

// OrderCreationTimes returns creation timestamps in scope, oldest first.
func (r *Repository) OrderCreationTimes(ctx context.Context, scope OrderScope) ([]time.Time, error) {
	var times []time.Time
	err := r.scoped(ctx, scope).Order("created_at ASC").Pluck("created_at", &times).Error
	return times, err
}

// RevenueRow is one released order with the escrow release time.
type RevenueRow struct {
	TotalAmount          decimal.Decimal
	EscrowFee            decimal.Decimal
	MarketProcurementFee decimal.Decimal
	DeliveryFee          decimal.Decimal
	PlatformTotal        decimal.NullDecimal
	ReleasedAt           time.Time
}

// ReleasedRevenue lists orders whose escrow was released in [from, to). Zero bounds are open.
func (r *Repository) ReleasedRevenue(ctx context.Context, from, to time.Time) ([]RevenueRow, error) {
	query := r.db.WithContext(ctx).
		Table("orders AS o").
		Select("o.total_amount, o.escrow_fee, o.market_procurement_fee, o.delivery_fee, p.fee_platform_total AS platform_total, p.escrow_released_at AS released_at").
		Joins("JOIN payments p ON p.order_id = o.id").
		Where("o.payment_status = ? AND p.escrow_status = ?", enums.OrderPaymentReleased, enums.EscrowReleasedToSellers)
	if !from.IsZero() {
		query = query.Where("p.escrow_released_at >= ?", from)
	}
	if !to.IsZero() {
		query = query.Where("p.escrow_released_at < ?", to)
	}
	var rows []RevenueRow
	err := query.Order("p.escrow_released_at ASC").Scan(&rows).Error
	return rows, err
}

func (r *Repository) RecentOrders(ctx context.Context, limit int) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// SellerItemRow is one line item a seller supplied, with its order's status and placement time.
type SellerItemRow struct {
	OrderID     uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	Quantity    int
	Subtotal    decimal.Decimal
	Status      enums.OrderStatus
	OrderedAt   time.Time
}

// SellerItems lists the seller's line items on orders placed since the given time, oldest first.
func (r *Repository) SellerItems(ctx context.Context, sellerID uuid.UUID, since time.Time) ([]SellerItemRow, error) {
	var rows []SellerItemRow
	err := r.db.WithContext(ctx).
		Table("order_items AS i").
		Select("i.order_id, i.product_id, i.product_name, i.quantity, i.subtotal, o.status, o.created_at AS ordered_at").
		Joins("JOIN orders o ON o.id = i.order_id").
		Where("i.seller_id = ? AND o.created_at >= ?", sellerID, since).
		Order("o.created_at ASC, i.position ASC").
		Scan(&rows).Error
	return rows, err
}
