package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/platterly/platterly-backend/pkg/enums"
)

// Courier is a delivery rider registered under a business. Location and
// status are written by the courier's own device; assignment is written by
// the dispatch flow.
type Courier struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BusinessID         uuid.UUID           `gorm:"column:business_id;type:uuid;not null;index"`
	Name               string              `gorm:"column:name;not null"`
	Phone              string              `gorm:"column:phone;not null"`
	Status             enums.CourierStatus `gorm:"column:status;type:text;not null;default:'inactive'"`
	LastLat            *float64            `gorm:"column:last_lat"`
	LastLng            *float64            `gorm:"column:last_lng"`
	LastLocationUpdate *time.Time          `gorm:"column:last_location_update"`
	DeliveriesToday    int                 `gorm:"column:deliveries_today;not null;default:0"`
	TotalDeliveries    int                 `gorm:"column:total_deliveries;not null;default:0"`
	AvgDeliveryTimeMin float64             `gorm:"column:avg_delivery_time_min;not null;default:0"`
	AvgRating          float64             `gorm:"column:avg_rating;not null;default:0"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
