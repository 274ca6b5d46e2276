package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/platterly/platterly-backend/pkg/types"
)

// GuestProfile backs unauthenticated ordering for a phone number without a
// registered account. It is created lazily and deleted when the phone first
// logs in (migration re-points its orders to the user).
type GuestProfile struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Phone     string            `gorm:"column:phone;not null;uniqueIndex"`
	Addresses types.AddressList `gorm:"column:addresses;type:jsonb;serializer:json"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}
