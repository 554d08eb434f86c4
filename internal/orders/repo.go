package orders

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/naijamall/naijamall-backend/pkg/db"
	"github.com/naijamall/naijamall-backend/pkg/db/models"
	"github.com/naijamall/naijamall-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the order with its items and initial tracking entries.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := withHistory(r.db.WithContext(ctx)).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindForUpdate locks the order row and loads everything a transition needs.
func (r *repository) FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := withHistory(db.ForUpdate(r.db.WithContext(ctx))).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindPaymentForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := db.ForUpdate(r.db.WithContext(ctx)).
		Where("order_id = ?", orderID).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) List(ctx context.Context, q Query, params pagination.Params) ([]models.Order, string, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{}).Preload("Items", orderItems)

	if q.BuyerID != nil {
		query = query.Where("orders.buyer_id = ?", *q.BuyerID)
	}
	if q.SellerID != nil {
		query = query.Where("EXISTS (SELECT 1 FROM order_items oi WHERE oi.order_id = orders.id AND oi.seller_id = ?)", *q.SellerID)
	}
	if q.RiderID != nil {
		query = query.Where("orders.rider_id = ?", *q.RiderID)
	}
	if q.AgentID != nil {
		query = query.Where("orders.assigned_agent_id = ?", *q.AgentID)
	}
	if q.CustomerServiceID != nil {
		query = query.Where("orders.customer_service_id = ?", *q.CustomerServiceID)
	}
	if q.Status != nil {
		query = query.Where("orders.status = ?", *q.Status)
	}
	if len(q.Statuses) > 0 {
		query = query.Where("orders.status IN ?", q.Statuses)
	}
	if q.DeliveryStatus != nil {
		query = query.Where("orders.delivery_status = ?", *q.DeliveryStatus)
	}
	if q.PaymentStatus != nil {
		query = query.Where("orders.payment_status = ?", *q.PaymentStatus)
	}
	if number := strings.ToUpper(strings.TrimSpace(q.OrderNumber)); number != "" {
		query = query.Where("orders.order_number LIKE ?", number+"%")
	}
	if q.CreatedFrom != nil {
		query = query.Where("orders.created_at >= ?", *q.CreatedFrom)
	}
	if q.CreatedTo != nil {
		query = query.Where("orders.created_at < ?", *q.CreatedTo)
	}

	query, err := pagination.Apply(query, "orders", params)
	if err != nil {
		return nil, "", err
	}
	var rows []models.Order
	if err := query.Find(&rows).Error; err != nil {
		return nil, "", err
	}
	rows, next := pagination.Trim(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return rows, next, nil
}

// Update writes a column map; struct updates would upsert loaded associations.
func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) AppendTracking(ctx context.Context, entry *models.OrderTrackingEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) AppendAssignment(ctx context.Context, assignment *models.OrderAssignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func withHistory(tx *gorm.DB) *gorm.DB {
	return tx.
		Preload("Items", orderItems).
		Preload("TrackingHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("seq ASC")
		}).
		Preload("AssignmentHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("assigned_at ASC").Order("id ASC")
		})
}

func orderItems(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}
