package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/platterly/platterly-backend/pkg/types"
)

// User is a registered customer account.
type User struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Phone     string            `gorm:"column:phone;not null;uniqueIndex"`
	Name      string            `gorm:"column:name"`
	Email     *string           `gorm:"column:email"`
	Addresses types.AddressList `gorm:"column:addresses;type:jsonb;serializer:json"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
