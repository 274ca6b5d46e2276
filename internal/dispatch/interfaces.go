package dispatch

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/platterly/platterly-backend/pkg/db/models"
)

// CourierRepository manages courier records and their device-reported state.
type CourierRepository interface {
	WithTx(tx *gorm.DB) CourierRepository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Courier, error)
	ListByBusiness(ctx context.Context, businessID uuid.UUID) ([]models.Courier, error)
	Save(ctx context.Context, courier *models.Courier) error
	UpdateLocation(ctx context.Context, id uuid.UUID, lat, lng float64) error
	IncrementDeliveries(ctx context.Context, id uuid.UUID) error
}

// BusinessRepository supplies the registered coordinates the distance term
// needs.
type BusinessRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Business, error)
}
