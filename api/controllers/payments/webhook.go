package payments

import (
	"context"
	"io"
	"net/http"

	"github.com/naijamall/naijamall-backend/api/responses"
	pkgerrors "github.com/naijamall/naijamall-backend/pkg/errors"
	"github.com/naijamall/naijamall-backend/pkg/logger"
)

const (
	paystackSignatureHeader = "X-Paystack-Signature"
	maxWebhookBodyBytes     = 1 << 20
)

type webhookHandler interface {
	Handle(ctx context.Context, body []byte, signature string) error
}

// PaystackWebhook verifies and applies Paystack charge notifications. Every accepted delivery gets
// a 200 so the gateway stops retrying.
func PaystackWebhook(handler webhookHandler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if handler == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook handler unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		if err := handler.Handle(ctx, payload, r.Header.Get(paystackSignatureHeader)); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}
