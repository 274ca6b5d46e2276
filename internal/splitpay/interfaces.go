package splitpay

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/platterly/platterly-backend/pkg/db/models"
	"github.com/platterly/platterly-backend/pkg/gateway"
)

// SessionRepository manages split-payment sessions. MarkFinalized is the
// compare-and-set that makes order finalization a single-winner race.
type SessionRepository interface {
	WithTx(tx *gorm.DB) SessionRepository
	Create(ctx context.Context, session *models.SplitSession) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.SplitSession, error)
	FindByShareRef(ctx context.Context, gatewayOrderRef string) (*models.SplitSession, error)
	Save(ctx context.Context, session *models.SplitSession) error
	MarkFinalized(ctx context.Context, id uuid.UUID, baseOrderID uuid.UUID) (bool, error)
}

// CheckoutGateway is the slice of the gateway client used to mint one
// checkout per share.
type CheckoutGateway interface {
	CreateCheckout(ctx context.Context, req gateway.CheckoutRequest) (*gateway.CheckoutResult, error)
}
