package identity

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/platterly/platterly-backend/pkg/db/models"
	"github.com/platterly/platterly-backend/pkg/types"
)

// UserRepository is the registered-account lookup surface the resolver needs.
type UserRepository interface {
	WithTx(tx *gorm.DB) UserRepository
	FindByPhone(ctx context.Context, phone string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Save(ctx context.Context, user *models.User) error
}

// GuestRepository manages guest profiles keyed by canonical phone.
type GuestRepository interface {
	WithTx(tx *gorm.DB) GuestRepository
	FindByPhone(ctx context.Context, phone string) (*models.GuestProfile, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.GuestProfile, error)
	Create(ctx context.Context, guest *models.GuestProfile) error
	AppendAddress(ctx context.Context, id uuid.UUID, address types.Address) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// CustomerStatsRepository moves per-business customer records between actors
// during the login-time migration.
type CustomerStatsRepository interface {
	WithTx(tx *gorm.DB) CustomerStatsRepository
	ListByActor(ctx context.Context, actorID uuid.UUID) ([]models.BusinessCustomer, error)
	FindByBusinessAndActor(ctx context.Context, businessID, actorID uuid.UUID) (*models.BusinessCustomer, error)
	Save(ctx context.Context, record *models.BusinessCustomer) error
	Delete(ctx context.Context, id uuid.UUID) error
}
