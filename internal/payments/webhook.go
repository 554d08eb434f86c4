package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	pkgerrors "github.com/naijamall/naijamall-backend/pkg/errors"
	"github.com/naijamall/naijamall-backend/pkg/logger"
)

const (
	webhookProvider   = "paystack"
	defaultWebhookTTL = 72 * time.Hour

	EventChargeSuccess = "charge.success"
	EventChargeFailed  = "charge.failed"
)

type webhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		ID        json.Number `json:"id"`
		Reference string      `json:"reference"`
		Status    string      `json:"status"`
	} `json:"data"`
}

// WebhookHandler turns signed Paystack deliveries into VerifyPayment calls. The body is never
// trusted for the outcome: the gateway is asked again.
type WebhookHandler struct {
	verifier SignatureVerifier
	dedupe   WebhookDeduper
	payments Service
	ttl      time.Duration
	logg     *logger.Logger
}

func NewWebhookHandler(verifier SignatureVerifier, dedupe WebhookDeduper, payments Service, ttl time.Duration, logg *logger.Logger) (*WebhookHandler, error) {
	if verifier == nil {
		return nil, fmt.Errorf("signature verifier required")
	}
	if dedupe == nil {
		return nil, fmt.Errorf("webhook deduper required")
	}
	if payments == nil {
		return nil, fmt.Errorf("payments service required")
	}
	if ttl <= 0 {
		ttl = defaultWebhookTTL
	}
	return &WebhookHandler{verifier: verifier, dedupe: dedupe, payments: payments, ttl: ttl, logg: logg}, nil
}

// Handle processes one delivery. Duplicates and events the ledger does not track return nil so the
// gateway stops retrying; a failed verification releases the claim so a retry can succeed.
func (h *WebhookHandler) Handle(ctx context.Context, body []byte, signature string) error {
	if signature == "" || !h.verifier.VerifySignature(body, signature) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature")
	}
	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode webhook payload")
	}
	if event.Event != EventChargeSuccess && event.Event != EventChargeFailed {
		return nil
	}
	reference := strings.TrimSpace(event.Data.Reference)
	if reference == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "webhook reference missing")
	}
	if h.logg != nil {
		ctx = h.logg.WithFields(ctx, map[string]any{"payment_reference": reference, "webhook_event": event.Event})
	}

	eventID := event.Event + ":" + reference
	if id := event.Data.ID.String(); id != "" {
		eventID += ":" + id
	}
	first, err := h.dedupe.MarkWebhookProcessed(ctx, webhookProvider, eventID, h.ttl)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim webhook")
	}
	if !first {
		h.info(ctx, "duplicate paystack webhook ignored")
		return nil
	}

	if _, err := h.payments.VerifyPayment(ctx, reference); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			h.info(ctx, "webhook for unknown payment reference")
			return nil
		}
		if releaseErr := h.dedupe.ReleaseWebhook(ctx, webhookProvider, eventID); releaseErr != nil && h.logg != nil {
			h.logg.Error(ctx, "release webhook claim", releaseErr)
		}
		return err
	}
	return nil
}

func (h *WebhookHandler) info(ctx context.Context, msg string) {
	if h.logg != nil {
		h.logg.Info(ctx, msg)
	}
}
