package reconcile

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/platterly/platterly-backend/pkg/db/models"
	"github.com/platterly/platterly-backend/pkg/gateway"
)

// AddonRequestRepository manages pending add-on payment requests.
type AddonRequestRepository interface {
	WithTx(tx *gorm.DB) AddonRequestRepository
	Create(ctx context.Context, request *models.AddonRequest) error
	FindByGatewayRef(ctx context.Context, ref string) (*models.AddonRequest, error)
	Save(ctx context.Context, request *models.AddonRequest) error
}

// RefundRecordRepository manages immutable per-leg refund records.
type RefundRecordRepository interface {
	WithTx(tx *gorm.DB) RefundRecordRepository
	Create(ctx context.Context, record *models.RefundRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.RefundRecord, error)
	FindByGatewayRefundRef(ctx context.Context, ref string) (*models.RefundRecord, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.RefundRecord, error)
	Save(ctx context.Context, record *models.RefundRecord) error
}

// RefundGateway is the slice of the gateway client the refund loop calls.
type RefundGateway interface {
	Refund(ctx context.Context, req gateway.RefundRequest) (*gateway.RefundResult, error)
}

// CheckoutGateway mints the hosted checkout an add-on request is paid
// against.
type CheckoutGateway interface {
	CreateCheckout(ctx context.Context, req gateway.CheckoutRequest) (*gateway.CheckoutResult, error)
}
