package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/naijamall/naijamall-backend/internal/orders"
	"github.com/naijamall/naijamall-backend/pkg/db/models"
	"github.com/naijamall/naijamall-backend/pkg/outbox"
	"github.com/naijamall/naijamall-backend/pkg/paystack"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Gateway is the part of the Paystack client the ledger drives directly. Refunds go through the
// settlement engine.
type Gateway interface {
	Initialize(ctx context.Context, req paystack.InitializeRequest) (*paystack.InitializeResult, error)
	Verify(ctx context.Context, reference string) (*paystack.VerifyResult, error)
}

// OrderLifecycle applies payment outcomes to an order already locked by tx.
type OrderLifecycle interface {
	ApplyPaymentHeld(ctx context.Context, tx *gorm.DB, order *models.Order, reference string) error
	ApplyRefund(ctx context.Context, tx *gorm.DB, order *models.Order, actor orders.Viewer, reason string) error
}

type UserLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// WebhookDeduper claims provider deliveries so retries are processed once.
type WebhookDeduper interface {
	MarkWebhookProcessed(ctx context.Context, provider, eventID string, ttl time.Duration) (bool, error)
	ReleaseWebhook(ctx context.Context, provider, eventID string) error
}

// SignatureVerifier checks webhook bodies against the merchant secret.
type SignatureVerifier interface {
	VerifySignature(body []byte, signature string) bool
}
