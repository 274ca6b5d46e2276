package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/platterly/platterly-backend/api/responses"
	"github.com/platterly/platterly-backend/internal/reconcile"
	pkgerrors "github.com/platterly/platterly-backend/pkg/errors"
	"github.com/platterly/platterly-backend/pkg/logger"
)

const signatureHeader = "X-Gateway-Signature"

// GatewayEventService consumes reconciliation events.
type GatewayEventService interface {
	HandleEvent(ctx context.Context, event reconcile.GatewayEvent) error
}

// SplitShareService settles split shares ahead of regular reconciliation.
type SplitShareService interface {
	IsShareEvent(merchantOrderID string) bool
	SettleShare(ctx context.Context, gatewayOrderRef string) error
}

type webhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type secretSource interface {
	WebhookSecret() string
}

// Gateway handles inbound payment gateway events: shared-secret HMAC
// verification, redis replay guard, then dispatch to split settlement or
// order reconciliation.
func Gateway(svc GatewayEventService, splits SplitShareService, client secretSource, guard webhookGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil || client == nil || guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook pipeline unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		if !verifySignature(payload, r.Header.Get(signatureHeader), client.WebhookSecret()) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "signature mismatch"))
			return
		}

		var event reconcile.GatewayEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode event"))
			return
		}

		// The gateway does not send a delivery id; the body hash stands in
		// for one.
		eventID := bodyDigest(payload)
		alreadyProcessed, err := guard.CheckAndMark(ctx, eventID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if alreadyProcessed {
			responses.WriteSuccess(w, nil)
			return
		}

		if splits != nil && event.Event == reconcile.EventCheckoutCompleted && splits.IsShareEvent(event.Payload.MerchantOrderID) {
			if err := splits.SettleShare(ctx, event.Payload.GatewayOrderID); err != nil {
				_ = guard.Delete(ctx, eventID)
				responses.WriteError(ctx, logg, w, err)
				return
			}
			responses.WriteSuccess(w, nil)
			return
		}

		if err := svc.HandleEvent(ctx, event); err != nil {
			_ = guard.Delete(ctx, eventID)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, nil)
	}
}

func verifySignature(payload []byte, provided, secret string) bool {
	if provided == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(provided))
}

func bodyDigest(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
