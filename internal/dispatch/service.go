package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/platterly/platterly-backend/internal/orders"
	"github.com/platterly/platterly-backend/pkg/db/models"
	"github.com/platterly/platterly-backend/pkg/enums"
	pkgerrors "github.com/platterly/platterly-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// AssignInput identifies the order and courier being paired.
type AssignInput struct {
	BusinessID uuid.UUID
	OrderID    uuid.UUID
	CourierID  uuid.UUID
}

// Service ranks couriers and applies assignments.
type Service interface {
	ListScored(ctx context.Context, businessID uuid.UUID) ([]ScoredCourier, error)
	Assign(ctx context.Context, input AssignInput) (*models.Order, error)
	PingLocation(ctx context.Context, courierID uuid.UUID, lat, lng float64) error
	UpdateStatus(ctx context.Context, courierID uuid.UUID, status enums.CourierStatus) error
	MarkDelivered(ctx context.Context, tx *gorm.DB, courierID uuid.UUID) error
}

type service struct {
	couriers      CourierRepository
	businesses    BusinessRepository
	orders        orders.Repository
	tx            txRunner
	signalTimeout time.Duration
	now           func() time.Time
}

// ServiceParams collects the dispatch service dependencies.
type ServiceParams struct {
	Couriers      CourierRepository
	Businesses    BusinessRepository
	Orders        orders.Repository
	Tx            txRunner
	SignalTimeout time.Duration
	Now           func() time.Time
}

// NewService builds the dispatch service.
func NewService(params ServiceParams) (Service, error) {
	if params.Couriers == nil {
		return nil, fmt.Errorf("courier repository required")
	}
	if params.Businesses == nil {
		return nil, fmt.Errorf("business repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.SignalTimeout <= 0 {
		params.SignalTimeout = 2 * time.Minute
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		couriers:      params.Couriers,
		businesses:    params.Businesses,
		orders:        params.Orders,
		tx:            params.Tx,
		signalTimeout: params.SignalTimeout,
		now:           now,
	}, nil
}

func (s *service) ListScored(ctx context.Context, businessID uuid.UUID) ([]ScoredCourier, error) {
	if businessID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "business id required")
	}
	business, err := s.businesses.FindByID(ctx, businessID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "business not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load business")
	}
	couriers, err := s.couriers.ListByBusiness(ctx, businessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list couriers")
	}
	inflight, err := s.orders.FindInFlightDeliveries(ctx, businessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list in-flight deliveries")
	}
	return ScoreCouriers(couriers, inflight, business, s.signalTimeout, s.now()), nil
}

// Assign pairs the courier with the order and moves the order to dispatched
// through the same guard every other status writer goes through.
func (s *service) Assign(ctx context.Context, input AssignInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil || input.CourierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and courier id required")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orders.WithTx(tx)
		courierRepo := s.couriers.WithTx(tx)

		order, err := orderRepo.FindByID(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if input.BusinessID != uuid.Nil && order.BusinessID != input.BusinessID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to business")
		}
		if order.DeliveryType != enums.DeliveryTypeDelivery {
			return pkgerrors.New(pkgerrors.CodeValidation, "order is not a delivery order")
		}

		courier, err := courierRepo.FindByID(ctx, input.CourierID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "courier not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load courier")
		}
		if courier.BusinessID != order.BusinessID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "courier belongs to a different business")
		}

		order.CourierID = &courier.ID
		if _, err := orders.ApplyTransition(order, enums.OrderStatusDispatched, enums.TransitionSourceHuman, "courier assigned", s.now()); err != nil {
			return err
		}
		if err := orderRepo.Save(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save order")
		}

		courier.Status = enums.CourierStatusOnDelivery
		if err := courierRepo.Save(ctx, courier); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save courier")
		}

		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) PingLocation(ctx context.Context, courierID uuid.UUID, lat, lng float64) error {
	if courierID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "courier id required")
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return pkgerrors.New(pkgerrors.CodeValidation, "coordinates out of range")
	}
	if err := s.couriers.UpdateLocation(ctx, courierID, lat, lng); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update courier location")
	}
	return nil
}

func (s *service) UpdateStatus(ctx context.Context, courierID uuid.UUID, status enums.CourierStatus) error {
	if courierID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "courier id required")
	}
	if !status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "status is not storable").
			WithDetails(map[string]any{"status": status})
	}
	courier, err := s.couriers.FindByID(ctx, courierID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "courier not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load courier")
	}
	courier.Status = status
	if err := s.couriers.Save(ctx, courier); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save courier")
	}
	return nil
}

// MarkDelivered runs inside the order-closing transaction: bump the delivery
// counters and free the courier if nothing else is in flight.
func (s *service) MarkDelivered(ctx context.Context, tx *gorm.DB, courierID uuid.UUID) error {
	courierRepo := s.couriers.WithTx(tx)
	if err := courierRepo.IncrementDeliveries(ctx, courierID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment courier deliveries")
	}

	remaining, err := s.orders.WithTx(tx).FindActiveByCourier(ctx, courierID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list courier active orders")
	}
	if len(remaining) > 0 {
		return nil
	}

	courier, err := courierRepo.FindByID(ctx, courierID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load courier")
	}
	courier.Status = enums.CourierStatusAvailable
	if err := courierRepo.Save(ctx, courier); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save courier")
	}
	return nil
}
