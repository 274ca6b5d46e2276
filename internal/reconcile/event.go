package reconcile

import "strings"

// Gateway event kinds. Delivery is at-least-once; every handler tolerates
// replays.
const (
	EventCheckoutCompleted = "checkout.completed"
	EventCheckoutFailed    = "checkout.failed"
	EventRefundCompleted   = "refund.completed"
	EventRefundFailed      = "refund.failed"
)

// addonRefPrefix namespaces merchant order ids that belong to add-on
// payments rather than full orders.
const addonRefPrefix = "ADDON-"

// GatewayEvent is the decoded webhook body.
type GatewayEvent struct {
	Event   string       `json:"event"`
	Payload EventPayload `json:"payload"`
}

// EventPayload is the gateway's transaction snapshot. merchantOrderId
// carries the platform-side reference: an order id, an ADDON-namespaced
// add-on reference, or (for refund events) a refund record id.
type EventPayload struct {
	MerchantOrderID         string              `json:"merchantOrderId"`
	OriginalMerchantOrderID string              `json:"originalMerchantOrderId"`
	GatewayOrderID          string              `json:"gatewayOrderId"`
	GatewayRefundID         string              `json:"refundId"`
	State                   string              `json:"state"`
	AmountMinor             int64               `json:"amountMinorUnits"`
	PaymentDetails          []GatewayPaymentLeg `json:"paymentDetails"`
}

// GatewayPaymentLeg is one instrument split reported by the gateway.
type GatewayPaymentLeg struct {
	Instrument string `json:"instrument"`
	Amount     int64  `json:"amount"`
}

// IsAddonRef reports whether a merchant order id names an add-on payment.
func IsAddonRef(merchantOrderID string) bool {
	return strings.HasPrefix(merchantOrderID, addonRefPrefix)
}

// AddonRef builds the namespaced gateway reference for an add-on request.
func AddonRef(suffix string) string {
	return addonRefPrefix + suffix
}
