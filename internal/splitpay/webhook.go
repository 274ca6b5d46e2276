package splitpay

import "context"

// WebhookAdapter exposes the split-share surface the gateway webhook
// controller routes through.
type WebhookAdapter struct {
	svc Service
}

// NewWebhookAdapter wraps the service for webhook routing.
func NewWebhookAdapter(svc Service) *WebhookAdapter {
	return &WebhookAdapter{svc: svc}
}

// IsShareEvent reports whether a merchant order id names a split share.
func (a *WebhookAdapter) IsShareEvent(merchantOrderID string) bool {
	return IsShareRef(merchantOrderID)
}

// SettleShare marks the share paid and finalizes the session when it was the
// last one outstanding.
func (a *WebhookAdapter) SettleShare(ctx context.Context, gatewayOrderRef string) error {
	_, err := a.svc.HandleSharePaid(ctx, gatewayOrderRef)
	return err
}
