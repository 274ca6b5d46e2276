package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/platterly/platterly-backend/pkg/enums"
	"github.com/platterly/platterly-backend/pkg/types"
)

// SplitSessionStatus is the lifecycle of a split-payment session.
type SplitSessionStatus string

const (
	SplitSessionStatusOpen      SplitSessionStatus = "open"
	SplitSessionStatusFinalized SplitSessionStatus = "finalized"
)

// SplitSession tracks per-participant shares of one bill. When every share is
// paid the session finalizes the underlying order exactly once; the status
// column is the compare-and-set guard for that trigger.
type SplitSession struct {
	ID            uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BusinessID    uuid.UUID            `gorm:"column:business_id;type:uuid;not null"`
	BaseOrderID   *uuid.UUID           `gorm:"column:base_order_id;type:uuid"`
	InitiatorKind enums.ActorKind      `gorm:"column:initiator_kind;type:text;not null;default:'guest'"`
	OrderDraft    types.OrderItemList  `gorm:"column:order_draft;type:jsonb;serializer:json"`
	TotalAmount   int64                `gorm:"column:total_amount;not null"`
	Shares        types.SplitShareList `gorm:"column:shares;type:jsonb;serializer:json"`
	Status        SplitSessionStatus   `gorm:"column:status;type:text;not null;default:'open'"`
	CreatedAt     time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
