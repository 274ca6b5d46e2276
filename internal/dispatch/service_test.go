package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/platterly/platterly-backend/internal/orders"
	"github.com/platterly/platterly-backend/pkg/db/models"
	"github.com/platterly/platterly-backend/pkg/enums"
	pkgerrors "github.com/platterly/platterly-backend/pkg/errors"
)

type stubCourierRepo struct {
	findByIDFn       func(ctx context.Context, id uuid.UUID) (*models.Courier, error)
	saveFn           func(ctx context.Context, courier *models.Courier) error
	updateLocationFn func(ctx context.Context, id uuid.UUID, lat, lng float64) error
	incrementFn      func(ctx context.Context, id uuid.UUID) error
}

func (s *stubCourierRepo) WithTx(tx *gorm.DB) CourierRepository { return s }
func (s *stubCourierRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Courier, error) {
	if s.findByIDFn != nil {
		return s.findByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}
func (s *stubCourierRepo) ListByBusiness(ctx context.Context, businessID uuid.UUID) ([]models.Courier, error) {
	return nil, nil
}
func (s *stubCourierRepo) Save(ctx context.Context, courier *models.Courier) error {
	if s.saveFn != nil {
		return s.saveFn(ctx, courier)
	}
	return nil
}
func (s *stubCourierRepo) UpdateLocation(ctx context.Context, id uuid.UUID, lat, lng float64) error {
	if s.updateLocationFn != nil {
		return s.updateLocationFn(ctx, id, lat, lng)
	}
	return nil
}
func (s *stubCourierRepo) IncrementDeliveries(ctx context.Context, id uuid.UUID) error {
	if s.incrementFn != nil {
		return s.incrementFn(ctx, id)
	}
	return nil
}

type stubBusinessRepo struct {
	findByIDFn func(ctx context.Context, id uuid.UUID) (*models.Business, error)
}

func (s *stubBusinessRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Business, error) {
	if s.findByIDFn != nil {
		return s.findByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

type stubDispatchOrders struct {
	findByIDFn            func(ctx context.Context, id uuid.UUID) (*models.Order, error)
	saveFn                func(ctx context.Context, order *models.Order) error
	findActiveByCourierFn func(ctx context.Context, courierID uuid.UUID) ([]models.Order, error)
}

func (s *stubDispatchOrders) WithTx(tx *gorm.DB) orders.Repository { return s }
func (s *stubDispatchOrders) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	return order, nil
}
func (s *stubDispatchOrders) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.findByIDFn != nil {
		return s.findByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}
func (s *stubDispatchOrders) Save(ctx context.Context, order *models.Order) error {
	if s.saveFn != nil {
		return s.saveFn(ctx, order)
	}
	return nil
}
func (s *stubDispatchOrders) FindActiveByActor(ctx context.Context, actorID uuid.UUID, placedAfter time.Time) ([]models.Order, error) {
	return nil, nil
}
func (s *stubDispatchOrders) FindByDineInTab(ctx context.Context, businessID uuid.UUID, tabID string) ([]models.Order, error) {
	return nil, nil
}
func (s *stubDispatchOrders) FindByDineInToken(ctx context.Context, businessID uuid.UUID, token string) ([]models.Order, error) {
	return nil, nil
}
func (s *stubDispatchOrders) FindActiveByCourier(ctx context.Context, courierID uuid.UUID) ([]models.Order, error) {
	if s.findActiveByCourierFn != nil {
		return s.findActiveByCourierFn(ctx, courierID)
	}
	return nil, nil
}
func (s *stubDispatchOrders) FindInFlightDeliveries(ctx context.Context, businessID uuid.UUID) ([]models.Order, error) {
	return nil, nil
}
func (s *stubDispatchOrders) ReassignActor(ctx context.Context, fromActorID, toActorID uuid.UUID, toKind enums.ActorKind) error {
	return nil
}

type stubTx struct{}

func (stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

func newDispatchService(t *testing.T, params ServiceParams) Service {
	t.Helper()
	if params.Couriers == nil {
		params.Couriers = &stubCourierRepo{}
	}
	if params.Businesses == nil {
		params.Businesses = &stubBusinessRepo{}
	}
	if params.Orders == nil {
		params.Orders = &stubDispatchOrders{}
	}
	if params.Tx == nil {
		params.Tx = stubTx{}
	}
	svc, err := NewService(params)
	require.NoError(t, err)
	return svc
}

func TestAssignDispatchesOrderAndBusiesCourier(t *testing.T) {
	businessID := uuid.New()
	order := &models.Order{
		ID:           uuid.New(),
		BusinessID:   businessID,
		Status:       enums.OrderStatusPreparing,
		DeliveryType: enums.DeliveryTypeDelivery,
	}
	courier := &models.Courier{ID: uuid.New(), BusinessID: businessID, Status: enums.CourierStatusAvailable}

	var savedCourier *models.Courier
	couriers := &stubCourierRepo{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Courier, error) { return courier, nil },
		saveFn: func(ctx context.Context, c *models.Courier) error {
			savedCourier = c
			return nil
		},
	}
	ordersRepo := &stubDispatchOrders{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Order, error) { return order, nil },
	}

	svc := newDispatchService(t, ServiceParams{Couriers: couriers, Orders: ordersRepo})
	updated, err := svc.Assign(context.Background(), AssignInput{
		BusinessID: businessID,
		OrderID:    order.ID,
		CourierID:  courier.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusDispatched, updated.Status)
	require.NotNil(t, updated.CourierID)
	assert.Equal(t, courier.ID, *updated.CourierID)
	require.NotNil(t, savedCourier)
	assert.Equal(t, enums.CourierStatusOnDelivery, savedCourier.Status)

	require.NotEmpty(t, updated.StatusHistory)
	assert.Equal(t, "courier assigned", updated.StatusHistory[len(updated.StatusHistory)-1].Note)
}

func TestAssignRejectsNonDeliveryOrder(t *testing.T) {
	order := &models.Order{
		ID:           uuid.New(),
		BusinessID:   uuid.New(),
		Status:       enums.OrderStatusPreparing,
		DeliveryType: enums.DeliveryTypeDineIn,
	}
	ordersRepo := &stubDispatchOrders{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Order, error) { return order, nil },
	}
	svc := newDispatchService(t, ServiceParams{Orders: ordersRepo})

	_, err := svc.Assign(context.Background(), AssignInput{OrderID: order.ID, CourierID: uuid.New()})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestAssignRejectsForeignCourier(t *testing.T) {
	order := &models.Order{
		ID:           uuid.New(),
		BusinessID:   uuid.New(),
		Status:       enums.OrderStatusPreparing,
		DeliveryType: enums.DeliveryTypeDelivery,
	}
	courier := &models.Courier{ID: uuid.New(), BusinessID: uuid.New()}

	couriers := &stubCourierRepo{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Courier, error) { return courier, nil },
	}
	ordersRepo := &stubDispatchOrders{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Order, error) { return order, nil },
	}
	svc := newDispatchService(t, ServiceParams{Couriers: couriers, Orders: ordersRepo})

	_, err := svc.Assign(context.Background(), AssignInput{OrderID: order.ID, CourierID: courier.ID})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}

func TestAssignCannotRewindDeliveredOrder(t *testing.T) {
	businessID := uuid.New()
	order := &models.Order{
		ID:           uuid.New(),
		BusinessID:   businessID,
		Status:       enums.OrderStatusDelivered,
		DeliveryType: enums.DeliveryTypeDelivery,
	}
	courier := &models.Courier{ID: uuid.New(), BusinessID: businessID}

	couriers := &stubCourierRepo{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Courier, error) { return courier, nil },
	}
	ordersRepo := &stubDispatchOrders{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Order, error) { return order, nil },
	}
	svc := newDispatchService(t, ServiceParams{Couriers: couriers, Orders: ordersRepo})

	_, err := svc.Assign(context.Background(), AssignInput{OrderID: order.ID, CourierID: courier.ID})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestPingLocationValidatesCoordinates(t *testing.T) {
	svc := newDispatchService(t, ServiceParams{})

	err := svc.PingLocation(context.Background(), uuid.New(), 123.0, 73.85)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestUpdateStatusRejectsDerivedStatus(t *testing.T) {
	svc := newDispatchService(t, ServiceParams{})

	err := svc.UpdateStatus(context.Background(), uuid.New(), enums.CourierStatusNoSignal)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestMarkDeliveredFreesIdleCourier(t *testing.T) {
	courier := &models.Courier{ID: uuid.New(), Status: enums.CourierStatusOnDelivery}

	incremented := false
	var saved *models.Courier
	couriers := &stubCourierRepo{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Courier, error) { return courier, nil },
		saveFn: func(ctx context.Context, c *models.Courier) error {
			saved = c
			return nil
		},
		incrementFn: func(ctx context.Context, id uuid.UUID) error {
			incremented = true
			return nil
		},
	}
	svc := newDispatchService(t, ServiceParams{Couriers: couriers})

	require.NoError(t, svc.MarkDelivered(context.Background(), nil, courier.ID))
	assert.True(t, incremented)
	require.NotNil(t, saved)
	assert.Equal(t, enums.CourierStatusAvailable, saved.Status)
}

func TestMarkDeliveredKeepsBusyCourierOnDelivery(t *testing.T) {
	courierID := uuid.New()
	saved := false
	couriers := &stubCourierRepo{
		saveFn: func(ctx context.Context, c *models.Courier) error {
			saved = true
			return nil
		},
	}
	ordersRepo := &stubDispatchOrders{
		findActiveByCourierFn: func(ctx context.Context, id uuid.UUID) ([]models.Order, error) {
			return []models.Order{{ID: uuid.New(), Status: enums.OrderStatusOnTheWay}}, nil
		},
	}
	svc := newDispatchService(t, ServiceParams{Couriers: couriers, Orders: ordersRepo})

	require.NoError(t, svc.MarkDelivered(context.Background(), nil, courierID))
	assert.False(t, saved)
}
