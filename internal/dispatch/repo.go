package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/platterly/platterly-backend/pkg/db/models"
)

type courierRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewCourierRepository builds the courier repository.
func NewCourierRepository(db *gorm.DB) CourierRepository {
	return &courierRepository{db: db, now: time.Now}
}

func (r *courierRepository) WithTx(tx *gorm.DB) CourierRepository {
	if tx == nil {
		return r
	}
	return &courierRepository{db: tx, now: r.now}
}

func (r *courierRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Courier, error) {
	var courier models.Courier
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&courier).Error
	if err != nil {
		return nil, err
	}
	return &courier, nil
}

func (r *courierRepository) ListByBusiness(ctx context.Context, businessID uuid.UUID) ([]models.Courier, error) {
	var couriers []models.Courier
	err := r.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Order("name ASC").
		Find(&couriers).Error
	if err != nil {
		return nil, err
	}
	return couriers, nil
}

func (r *courierRepository) Save(ctx context.Context, courier *models.Courier) error {
	return r.db.WithContext(ctx).Save(courier).Error
}

func (r *courierRepository) UpdateLocation(ctx context.Context, id uuid.UUID, lat, lng float64) error {
	return r.db.WithContext(ctx).
		Model(&models.Courier{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_lat":             lat,
			"last_lng":             lng,
			"last_location_update": r.now(),
		}).Error
}

func (r *courierRepository) IncrementDeliveries(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Courier{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"deliveries_today": gorm.Expr("deliveries_today + 1"),
			"total_deliveries": gorm.Expr("total_deliveries + 1"),
		}).Error
}

type businessRepository struct {
	db *gorm.DB
}

// NewBusinessRepository builds a read-only business lookup.
func NewBusinessRepository(db *gorm.DB) BusinessRepository {
	return &businessRepository{db: db}
}

func (r *businessRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Business, error) {
	var business models.Business
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&business).Error
	if err != nil {
		return nil, err
	}
	return &business, nil
}
