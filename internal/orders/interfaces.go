package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/platterly/platterly-backend/pkg/db/models"
	"github.com/platterly/platterly-backend/pkg/enums"
)

// Repository is the persistence surface for orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	Save(ctx context.Context, order *models.Order) error

	FindActiveByActor(ctx context.Context, actorID uuid.UUID, placedAfter time.Time) ([]models.Order, error)
	FindByDineInTab(ctx context.Context, businessID uuid.UUID, tabID string) ([]models.Order, error)
	FindByDineInToken(ctx context.Context, businessID uuid.UUID, token string) ([]models.Order, error)
	FindActiveByCourier(ctx context.Context, courierID uuid.UUID) ([]models.Order, error)
	FindInFlightDeliveries(ctx context.Context, businessID uuid.UUID) ([]models.Order, error)
	ReassignActor(ctx context.Context, fromActorID, toActorID uuid.UUID, toKind enums.ActorKind) error
}
