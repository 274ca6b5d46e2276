package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/platterly/platterly-backend/pkg/db/models"
	"github.com/platterly/platterly-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) Save(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Save(order).Error
}

func (r *repository) FindActiveByActor(ctx context.Context, actorID uuid.UUID, placedAfter time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("actor_id = ? AND placed_at > ?", actorID, placedAfter).
		Order("placed_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// FindByDineInTab matches the tab id under both column spellings a tab may
// have been written with; the caller merges and status-filters in memory so
// no composite index is required.
func (r *repository) FindByDineInTab(ctx context.Context, businessID uuid.UUID, tabID string) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND (dine_in_tab_id = ? OR dine_in_token = ?)", businessID, tabID, tabID).
		Order("placed_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) FindByDineInToken(ctx context.Context, businessID uuid.UUID, token string) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND dine_in_token = ?", businessID, token).
		Order("placed_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) FindActiveByCourier(ctx context.Context, courierID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("courier_id = ?", courierID).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return filterDeliveryPipeline(orders), nil
}

func (r *repository) FindInFlightDeliveries(ctx context.Context, businessID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND delivery_type = ? AND courier_id IS NOT NULL", businessID, enums.DeliveryTypeDelivery).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return filterDeliveryPipeline(orders), nil
}

func (r *repository) ReassignActor(ctx context.Context, fromActorID, toActorID uuid.UUID, toKind enums.ActorKind) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("actor_id = ?", fromActorID).
		Updates(map[string]any{
			"actor_id":   toActorID,
			"actor_kind": toKind,
		}).Error
}

func filterDeliveryPipeline(orders []models.Order) []models.Order {
	out := orders[:0]
	for _, o := range orders {
		switch o.Status {
		case enums.OrderStatusDispatched,
			enums.OrderStatusReachedRestaurant,
			enums.OrderStatusPickedUp,
			enums.OrderStatusOnTheWay,
			enums.OrderStatusDeliveryAttempted:
			out = append(out, o)
		}
	}
	return out
}
