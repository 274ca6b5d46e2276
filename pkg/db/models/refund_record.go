package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/platterly/platterly-backend/pkg/enums"
)

// RefundRecord is one gateway refund call. Immutable once created; a logical
// refund spanning several original payments produces several records sharing
// only the order id.
type RefundRecord struct {
	ID               uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID                `gorm:"column:order_id;type:uuid;not null;index"`
	PaymentRef       string                   `gorm:"column:payment_ref;not null"`
	GatewayRefundRef string                   `gorm:"column:gateway_refund_ref"`
	Amount           int64                    `gorm:"column:amount;not null"`
	Status           enums.RefundRecordStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Reason           string                   `gorm:"column:reason"`
	Notes            *string                  `gorm:"column:notes"`
	CreatedAt        time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
