package identity

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/platterly/platterly-backend/pkg/db/models"
	"github.com/platterly/platterly-backend/pkg/types"
)

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository builds the registered-account repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) WithTx(tx *gorm.DB) UserRepository {
	if tx == nil {
		return r
	}
	return &userRepository{db: tx}
}

func (r *userRepository) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("phone = ?", phone).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Save(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

type guestRepository struct {
	db *gorm.DB
}

// NewGuestRepository builds the guest-profile repository.
func NewGuestRepository(db *gorm.DB) GuestRepository {
	return &guestRepository{db: db}
}

func (r *guestRepository) WithTx(tx *gorm.DB) GuestRepository {
	if tx == nil {
		return r
	}
	return &guestRepository{db: tx}
}

func (r *guestRepository) FindByPhone(ctx context.Context, phone string) (*models.GuestProfile, error) {
	var guest models.GuestProfile
	err := r.db.WithContext(ctx).
		Where("phone = ?", phone).
		First(&guest).Error
	if err != nil {
		return nil, err
	}
	return &guest, nil
}

func (r *guestRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.GuestProfile, error) {
	var guest models.GuestProfile
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&guest).Error
	if err != nil {
		return nil, err
	}
	return &guest, nil
}

func (r *guestRepository) Create(ctx context.Context, guest *models.GuestProfile) error {
	return r.db.WithContext(ctx).Create(guest).Error
}

func (r *guestRepository) AppendAddress(ctx context.Context, id uuid.UUID, address types.Address) error {
	guest, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	guest.Addresses = types.AddressList{address}.MergeInto(guest.Addresses)
	return r.db.WithContext(ctx).Save(guest).Error
}

func (r *guestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.GuestProfile{}).Error
}

type customerStatsRepository struct {
	db *gorm.DB
}

// NewCustomerStatsRepository builds the per-business customer stats repository.
func NewCustomerStatsRepository(db *gorm.DB) CustomerStatsRepository {
	return &customerStatsRepository{db: db}
}

func (r *customerStatsRepository) WithTx(tx *gorm.DB) CustomerStatsRepository {
	if tx == nil {
		return r
	}
	return &customerStatsRepository{db: tx}
}

func (r *customerStatsRepository) ListByActor(ctx context.Context, actorID uuid.UUID) ([]models.BusinessCustomer, error) {
	var records []models.BusinessCustomer
	err := r.db.WithContext(ctx).
		Where("actor_id = ?", actorID).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *customerStatsRepository) FindByBusinessAndActor(ctx context.Context, businessID, actorID uuid.UUID) (*models.BusinessCustomer, error) {
	var record models.BusinessCustomer
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND actor_id = ?", businessID, actorID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *customerStatsRepository) Save(ctx context.Context, record *models.BusinessCustomer) error {
	return r.db.WithContext(ctx).Save(record).Error
}

func (r *customerStatsRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.BusinessCustomer{}).Error
}
