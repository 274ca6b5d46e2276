package reconcile

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/platterly/platterly-backend/pkg/db/models"
)

type addonRequestRepository struct {
	db *gorm.DB
}

// NewAddonRequestRepository builds the add-on request repository.
func NewAddonRequestRepository(db *gorm.DB) AddonRequestRepository {
	return &addonRequestRepository{db: db}
}

func (r *addonRequestRepository) WithTx(tx *gorm.DB) AddonRequestRepository {
	if tx == nil {
		return r
	}
	return &addonRequestRepository{db: tx}
}

func (r *addonRequestRepository) Create(ctx context.Context, request *models.AddonRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *addonRequestRepository) FindByGatewayRef(ctx context.Context, ref string) (*models.AddonRequest, error) {
	var request models.AddonRequest
	err := r.db.WithContext(ctx).
		Where("gateway_ref = ?", ref).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *addonRequestRepository) Save(ctx context.Context, request *models.AddonRequest) error {
	return r.db.WithContext(ctx).Save(request).Error
}

type refundRecordRepository struct {
	db *gorm.DB
}

// NewRefundRecordRepository builds the refund record repository.
func NewRefundRecordRepository(db *gorm.DB) RefundRecordRepository {
	return &refundRecordRepository{db: db}
}

func (r *refundRecordRepository) WithTx(tx *gorm.DB) RefundRecordRepository {
	if tx == nil {
		return r
	}
	return &refundRecordRepository{db: tx}
}

func (r *refundRecordRepository) Create(ctx context.Context, record *models.RefundRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *refundRecordRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.RefundRecord, error) {
	var record models.RefundRecord
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *refundRecordRepository) FindByGatewayRefundRef(ctx context.Context, ref string) (*models.RefundRecord, error) {
	var record models.RefundRecord
	err := r.db.WithContext(ctx).
		Where("gateway_refund_ref = ?", ref).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *refundRecordRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.RefundRecord, error) {
	var records []models.RefundRecord
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *refundRecordRepository) Save(ctx context.Context, record *models.RefundRecord) error {
	return r.db.WithContext(ctx).Save(record).Error
}
