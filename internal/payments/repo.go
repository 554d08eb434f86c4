package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/naijamall/naijamall-backend/pkg/db/models"
	"github.com/naijamall/naijamall-backend/pkg/enums"
	"github.com/naijamall/naijamall-backend/pkg/pagination"
)

// Repository persists payments and reads their distribution.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Preload("Distribution", byCreated).
		First(&payment, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindByReference resolves the current reference first, then any earlier checkout attempt.
func (r *Repository) FindByReference(ctx context.Context, reference string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Preload("Distribution", byCreated).
		First(&payment, "reference = ?", reference).Error
	if err == nil {
		return &payment, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	var attempt models.PaymentAttempt
	if err := r.db.WithContext(ctx).First(&attempt, "reference = ?", reference).Error; err != nil {
		return nil, err
	}
	return r.FindByID(ctx, attempt.PaymentID)
}

// RecordAttempt keeps reference resolvable after the payment is re-armed.
func (r *Repository) RecordAttempt(ctx context.Context, paymentID uuid.UUID, reference string) error {
	return r.db.WithContext(ctx).Create(&models.PaymentAttempt{PaymentID: paymentID, Reference: reference}).Error
}

// ListAttempts returns every reference issued for the payment, oldest first.
func (r *Repository) ListAttempts(ctx context.Context, paymentID uuid.UUID) ([]models.PaymentAttempt, error) {
	var rows []models.PaymentAttempt
	err := r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, "order_id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// UpdateIf writes updates only while the payment still has one of the expected statuses. It
// reports whether a row changed.
func (r *Repository) UpdateIf(ctx context.Context, id uuid.UUID, expected []enums.PaymentStatus, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status IN ?", id, expected).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListForUser returns payments the user made or receives a distribution line from, newest first.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Payment, string, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Preload("Distribution", byCreated).
		Where("payments.buyer_id = ? OR EXISTS (SELECT 1 FROM payment_distributions pd WHERE pd.payment_id = payments.id AND pd.recipient_id = ?)", userID, userID)
	query, err := pagination.Apply(query, "payments", params)
	if err != nil {
		return nil, "", err
	}
	var rows []models.Payment
	if err := query.Find(&rows).Error; err != nil {
		return nil, "", err
	}
	rows, next := pagination.Trim(rows, params.Limit, func(p models.Payment) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	return rows, next, nil
}

// ListStuckProcessing returns payments left in processing since before cutoff.
func (r *Repository) ListStuckProcessing(ctx context.Context, cutoff time.Time, limit int) ([]models.Payment, error) {
	var rows []models.Payment
	err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", enums.PaymentStatusProcessing, cutoff).
		Order("updated_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// ListHeldSince returns escrows held since before cutoff, oldest first.
func (r *Repository) ListHeldSince(ctx context.Context, cutoff time.Time, limit int) ([]models.Payment, error) {
	var rows []models.Payment
	err := r.db.WithContext(ctx).
		Where("escrow_status = ? AND escrow_held_at < ?", enums.EscrowHeld, cutoff).
		Order("escrow_held_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func byCreated(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC").Order("recipient_type ASC")
}
