package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/platterly/platterly-backend/pkg/enums"
)

// Business is a selling location (restaurant, shop or street vendor). The
// registered coordinates feed the dispatch distance term.
type Business struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Kind      enums.BusinessKind `gorm:"column:kind;type:text;not null;default:'restaurant'"`
	Name      string             `gorm:"column:name;not null"`
	Lat       *float64           `gorm:"column:lat"`
	Lng       *float64           `gorm:"column:lng"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// BusinessCustomer is the per-business customer statistics record. It is
// keyed by the resolved actor id and re-keyed from guest to user during the
// login-time migration.
type BusinessCustomer struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BusinessID  uuid.UUID       `gorm:"column:business_id;type:uuid;not null;uniqueIndex:idx_business_actor"`
	ActorID     uuid.UUID       `gorm:"column:actor_id;type:uuid;not null;uniqueIndex:idx_business_actor"`
	ActorKind   enums.ActorKind `gorm:"column:actor_kind;type:text;not null"`
	OrdersCount int             `gorm:"column:orders_count;not null;default:0"`
	TotalSpent  int64           `gorm:"column:total_spent;not null;default:0"`
	JoinedAt    *time.Time      `gorm:"column:joined_at"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
