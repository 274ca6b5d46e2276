package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/platterly/platterly-backend/pkg/enums"
	"github.com/platterly/platterly-backend/pkg/types"
)

// Order is the central purchase aggregate. Mutations go through the state
// machine; paymentDetails and statusHistory are append-only fact logs.
type Order struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BusinessID   uuid.UUID          `gorm:"column:business_id;type:uuid;not null;index"`
	BusinessKind enums.BusinessKind `gorm:"column:business_kind;type:text;not null;default:'restaurant'"`
	ActorID      uuid.UUID          `gorm:"column:actor_id;type:uuid;not null;index"`
	ActorKind    enums.ActorKind    `gorm:"column:actor_kind;type:text;not null;default:'guest'"`
	Status       enums.OrderStatus  `gorm:"column:status;type:text;not null;default:'pending'"`
	DeliveryType enums.DeliveryType `gorm:"column:delivery_type;type:text;not null;default:'delivery'"`

	Items          types.OrderItemList     `gorm:"column:items;type:jsonb;serializer:json"`
	Subtotal       int64                   `gorm:"column:subtotal;not null"`
	Tax            int64                   `gorm:"column:tax;not null;default:0"`
	DeliveryFee    int64                   `gorm:"column:delivery_fee;not null;default:0"`
	PackagingFee   int64                   `gorm:"column:packaging_fee;not null;default:0"`
	PlatformFee    int64                   `gorm:"column:platform_fee;not null;default:0"`
	ConvenienceFee int64                   `gorm:"column:convenience_fee;not null;default:0"`
	ServiceFee     int64                   `gorm:"column:service_fee;not null;default:0"`
	Discount       int64                   `gorm:"column:discount;not null;default:0"`
	TotalAmount    int64                   `gorm:"column:total_amount;not null"`
	PaymentDetails types.PaymentDetailList `gorm:"column:payment_details;type:jsonb;serializer:json"`
	StatusHistory  types.StatusHistory     `gorm:"column:status_history;type:jsonb;serializer:json"`

	RefundStatus  enums.RefundStatus `gorm:"column:refund_status;type:text;not null;default:'none'"`
	RefundAmount  int64              `gorm:"column:refund_amount;not null;default:0"`
	RefundedItems []string           `gorm:"column:refunded_items;type:jsonb;serializer:json"`
	RefundIDs     []uuid.UUID        `gorm:"column:refund_ids;type:jsonb;serializer:json"`

	CourierID   *uuid.UUID `gorm:"column:courier_id;type:uuid;index"`
	DineInTabID *string    `gorm:"column:dine_in_tab_id;index"`
	DineInToken *string    `gorm:"column:dine_in_token;index"`

	PlacedAt  time.Time `gorm:"column:placed_at;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// IsPaid derives the paid state from the payment fact log.
func (o *Order) IsPaid() bool {
	return o.PaymentDetails.PaidTotal() >= o.TotalAmount && o.TotalAmount > 0
}

// RemainingRefundable is the amount still eligible for refund.
func (o *Order) RemainingRefundable() int64 {
	remaining := o.TotalAmount - o.RefundAmount
	if remaining < 0 {
		return 0
	}
	return remaining
}
