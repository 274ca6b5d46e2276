package types

// SplitShareStatus is the payment state of one share.
type SplitShareStatus string

const (
	SplitShareStatusUnpaid SplitShareStatus = "unpaid"
	SplitShareStatusPaid   SplitShareStatus = "paid"
)

// SplitShare is one participant's slice of a split bill. The initiator share
// absorbs any rounding remainder so shares always sum to the total.
type SplitShare struct {
	ShareID         string           `json:"share_id"`
	Initiator       bool             `json:"initiator,omitempty"`
	Amount          int64            `json:"amount"`
	Status          SplitShareStatus `json:"status"`
	GatewayOrderRef string           `json:"gateway_order_ref"`
}

// SplitShareList is the jsonb column shape for session shares.
type SplitShareList []SplitShare

// AllPaid reports whether every share has settled.
func (l SplitShareList) AllPaid() bool {
	if len(l) == 0 {
		return false
	}
	for _, s := range l {
		if s.Status != SplitShareStatusPaid {
			return false
		}
	}
	return true
}
