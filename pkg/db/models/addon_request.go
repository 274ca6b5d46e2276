package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/platterly/platterly-backend/pkg/types"
)

// AddonRequestStatus is the lifecycle of a pending add-on payment.
type AddonRequestStatus string

const (
	AddonRequestStatusPending   AddonRequestStatus = "pending"
	AddonRequestStatusCompleted AddonRequestStatus = "completed"
)

// AddonRequest is a secondary payment request that appends items to an
// already-placed order once its gateway checkout completes. The gateway
// reference carries the ADDON namespace prefix so the reconciliation engine
// can tell it apart from a regular order payment.
type AddonRequest struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	GatewayRef string              `gorm:"column:gateway_ref;not null;uniqueIndex"`
	Items      types.OrderItemList `gorm:"column:items;type:jsonb;serializer:json"`
	Subtotal   int64               `gorm:"column:subtotal;not null"`
	Tax        int64               `gorm:"column:tax;not null;default:0"`
	Status     AddonRequestStatus  `gorm:"column:status;type:text;not null;default:'pending'"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
