package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/platterly/platterly-backend/pkg/db/models"
	"github.com/platterly/platterly-backend/pkg/enums"
	pkgerrors "github.com/platterly/platterly-backend/pkg/errors"
	"github.com/platterly/platterly-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CourierStats records courier bookkeeping when an order closes out.
type CourierStats interface {
	MarkDelivered(ctx context.Context, tx *gorm.DB, courierID uuid.UUID) error
}

// StatusNotifier publishes order status changes. Publish failures are logged
// by the implementation and never fail the transition.
type StatusNotifier interface {
	OrderStatusChanged(ctx context.Context, order *models.Order)
}

// Service owns human-actor order mutations: staff and courier status writes.
type Service interface {
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	StaffUpdateStatus(ctx context.Context, input StaffStatusInput) (*models.Order, error)
	CourierUpdateStatus(ctx context.Context, input CourierStatusInput) (*models.Order, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	courier CourierStats
	notify  StatusNotifier
	metrics *metrics.ReconcileMetrics
	now     func() time.Time
}

// ServiceParams collects the order service dependencies.
type ServiceParams struct {
	Repo         Repository
	Tx           txRunner
	CourierStats CourierStats
	Notifier     StatusNotifier
	Metrics      *metrics.ReconcileMetrics
	Now          func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		courier: params.CourierStats,
		notify:  params.Notifier,
		metrics: params.Metrics,
		now:     now,
	}, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) StaffUpdateStatus(ctx context.Context, input StaffStatusInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.BusinessID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "business context missing")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.BusinessID != input.BusinessID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to business")
		}

		changed, err := ApplyTransition(order, input.Status, enums.TransitionSourceHuman, input.Note, s.now())
		if err != nil {
			s.metrics.IncGuardRejection(string(enums.TransitionSourceHuman))
			return err
		}
		if !changed {
			updated = order
			return nil
		}

		if err := repo.Save(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save order")
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.notify != nil {
		s.notify.OrderStatusChanged(ctx, updated)
	}
	return updated, nil
}

func (s *service) CourierUpdateStatus(ctx context.Context, input CourierStatusInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.CourierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "courier identity missing")
	}
	if !isCourierStage(input.Status) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status not reachable from a courier device").
			WithDetails(map[string]any{"status": input.Status})
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.CourierID == nil || *order.CourierID != input.CourierID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order is not assigned to courier")
		}

		changed, err := ApplyTransition(order, input.Status, enums.TransitionSourceHuman, input.Note, s.now())
		if err != nil {
			s.metrics.IncGuardRejection(string(enums.TransitionSourceHuman))
			return err
		}
		if !changed {
			updated = order
			return nil
		}

		if err := repo.Save(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save order")
		}

		if input.Status == enums.OrderStatusDelivered && s.courier != nil {
			if err := s.courier.MarkDelivered(ctx, tx, input.CourierID); err != nil {
				return err
			}
		}

		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.notify != nil {
		s.notify.OrderStatusChanged(ctx, updated)
	}
	return updated, nil
}

func isCourierStage(status enums.OrderStatus) bool {
	switch status {
	case enums.OrderStatusReachedRestaurant,
		enums.OrderStatusPickedUp,
		enums.OrderStatusOnTheWay,
		enums.OrderStatusDeliveryAttempted,
		enums.OrderStatusReturnedToRestaurant,
		enums.OrderStatusDelivered:
		return true
	default:
		return false
	}
}
