package enums

import "fmt"

// RefundStatus tracks cumulative refund progress on an order.
type RefundStatus string

const (
	RefundStatusNone      RefundStatus = "none"
	RefundStatusPartial   RefundStatus = "partial"
	RefundStatusCompleted RefundStatus = "completed"
)

var validRefundStatuses = []RefundStatus{
	RefundStatusNone,
	RefundStatusPartial,
	RefundStatusCompleted,
}

// String implements fmt.Stringer.
func (r RefundStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RefundStatus.
func (r RefundStatus) IsValid() bool {
	for _, candidate := range validRefundStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRefundStatus converts raw input into a RefundStatus.
func ParseRefundStatus(value string) (RefundStatus, error) {
	for _, candidate := range validRefundStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid refund status %q", value)
}

// RefundRecordStatus is the state of one gateway refund call.
type RefundRecordStatus string

const (
	RefundRecordStatusPending   RefundRecordStatus = "pending"
	RefundRecordStatusCompleted RefundRecordStatus = "completed"
	RefundRecordStatusFailed    RefundRecordStatus = "failed"
)

var validRefundRecordStatuses = []RefundRecordStatus{
	RefundRecordStatusPending,
	RefundRecordStatusCompleted,
	RefundRecordStatusFailed,
}

// String implements fmt.Stringer.
func (r RefundRecordStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RefundRecordStatus.
func (r RefundRecordStatus) IsValid() bool {
	for _, candidate := range validRefundRecordStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}
