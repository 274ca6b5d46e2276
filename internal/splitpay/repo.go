package splitpay

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/platterly/platterly-backend/pkg/db/models"
)

type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository builds the split session repository.
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) WithTx(tx *gorm.DB) SessionRepository {
	if tx == nil {
		return r
	}
	return &sessionRepository{db: tx}
}

func (r *sessionRepository) Create(ctx context.Context, session *models.SplitSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *sessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.SplitSession, error) {
	var session models.SplitSession
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// FindByShareRef locates the session holding a share by its gateway checkout
// reference. Shares live inside a jsonb column, so this scans the document
// with a containment match on the serialized list.
func (r *sessionRepository) FindByShareRef(ctx context.Context, gatewayOrderRef string) (*models.SplitSession, error) {
	var session models.SplitSession
	err := r.db.WithContext(ctx).
		Where("shares::text LIKE ?", "%"+gatewayOrderRef+"%").
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) Save(ctx context.Context, session *models.SplitSession) error {
	return r.db.WithContext(ctx).Save(session).Error
}

// MarkFinalized flips the session from open to finalized in one statement.
// Exactly one caller observes true when two share-paid events race on the
// last share.
func (r *sessionRepository) MarkFinalized(ctx context.Context, id uuid.UUID, baseOrderID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.SplitSession{}).
		Where("id = ? AND status = ?", id, models.SplitSessionStatusOpen).
		Updates(map[string]any{
			"status":        models.SplitSessionStatusFinalized,
			"base_order_id": baseOrderID,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
