package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/naijamall/naijamall-backend/internal/catalog"
	"github.com/naijamall/naijamall-backend/internal/settlement"
	"github.com/naijamall/naijamall-backend/pkg/db/models"
	"github.com/naijamall/naijamall-backend/pkg/outbox"
	"github.com/naijamall/naijamall-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their audit tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindPaymentForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	List(ctx context.Context, query Query, params pagination.Params) ([]models.Order, string, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	AppendTracking(ctx context.Context, entry *models.OrderTrackingEntry) error
	AppendAssignment(ctx context.Context, assignment *models.OrderAssignment) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// StockReserver takes and returns catalog stock inside the caller's transaction.
type StockReserver interface {
	Reserve(ctx context.Context, tx *gorm.DB, lines []catalog.LineRequest) ([]catalog.ReservedLine, error)
	Restore(ctx context.Context, tx *gorm.DB, lines []catalog.LineRequest) error
}

// Escrow moves held funds out of escrow inside the caller's transaction.
type Escrow interface {
	Release(ctx context.Context, tx *gorm.DB, order *models.Order, payment *models.Payment, input settlement.ReleaseInput) (*settlement.Result, error)
	Refund(ctx context.Context, tx *gorm.DB, order *models.Order, payment *models.Payment, input settlement.RefundInput) error
}

// UserLookup resolves assignees before any order row is locked.
type UserLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}
