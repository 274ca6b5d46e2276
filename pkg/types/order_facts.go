package types

import (
	"time"

	"github.com/platterly/platterly-backend/pkg/enums"
)

// ItemAddOn is an optional extra attached to an order item.
type ItemAddOn struct {
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// OrderItem is one purchased line on an order. LineTotal is qty x unit price
// plus add-ons, computed when the item is appended.
type OrderItem struct {
	ItemID    string      `json:"item_id"`
	Name      string      `json:"name"`
	Qty       int         `json:"qty"`
	UnitPrice int64       `json:"unit_price"`
	LineTotal int64       `json:"line_total"`
	AddOns    []ItemAddOn `json:"add_ons,omitempty"`
	AddedAt   *time.Time  `json:"added_at,omitempty"`
}

// OrderItemList is the jsonb column shape for order items.
type OrderItemList []OrderItem

// Total sums line totals.
func (l OrderItemList) Total() int64 {
	var total int64
	for _, item := range l {
		total += item.LineTotal
	}
	return total
}

// PaymentDetail is one immutable payment attempt/confirmation fact. The list
// is append-only; the order's paid state is derived from it, never stored.
type PaymentDetail struct {
	Method         enums.PaymentMethod `json:"method"`
	GatewayRef     string              `json:"gateway_ref,omitempty"`
	GatewayOrderID string              `json:"gateway_order_id,omitempty"`
	Amount         int64               `json:"amount"`
	Status         enums.PaymentStatus `json:"status"`
	RecordedAt     time.Time           `json:"recorded_at"`
}

// PaymentDetailList is the jsonb column shape for payment facts.
type PaymentDetailList []PaymentDetail

// PaidTotal sums the amounts of all paid facts.
func (l PaymentDetailList) PaidTotal() int64 {
	var total int64
	for _, d := range l {
		if d.Status == enums.PaymentStatusPaid {
			total += d.Amount
		}
	}
	return total
}

// OnlinePaid returns the paid facts settled through the gateway, in recorded
// order. Refunds draw against these sequentially.
func (l PaymentDetailList) OnlinePaid() []PaymentDetail {
	out := make([]PaymentDetail, 0, len(l))
	for _, d := range l {
		if d.Method == enums.PaymentMethodOnline && d.Status == enums.PaymentStatusPaid {
			out = append(out, d)
		}
	}
	return out
}

// HasGatewayRef reports whether a paid fact with the given gateway reference
// already exists, which makes webhook re-delivery a no-op.
func (l PaymentDetailList) HasGatewayRef(ref string) bool {
	if ref == "" {
		return false
	}
	for _, d := range l {
		if d.GatewayRef == ref && d.Status == enums.PaymentStatusPaid {
			return true
		}
	}
	return false
}

// StatusChange is one entry in the order's append-only status history.
type StatusChange struct {
	Status     enums.OrderStatus      `json:"status"`
	Source     enums.TransitionSource `json:"source"`
	Note       string                 `json:"note,omitempty"`
	RecordedAt time.Time              `json:"recorded_at"`
}

// StatusHistory is the jsonb column shape for the status log.
type StatusHistory []StatusChange
