package reconcile

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
	"github.com/platterly/platterly-backend/pkg/gateway"
	"github.com/platterly/platterly-backend/pkg/types"
)

type stubReconcileOrders struct {
	findByIDFn func(ctx context.Context, id uuid.UUID) (*models.Order, error)
	saveFn     func(ctx context.Context, order *models.Order) error
}

func (s *stubReconcileOrders) WithTx(tx *gorm.DB) orders.Repository { return s }
func (s *stubReconcileOrders) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	return order, nil
}
func (s *stubReconcileOrders) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.findByIDFn != nil {
		return s.findByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}
func (s *stubReconcileOrders) Save(ctx context.Context, order *models.Order) error {
	if s.saveFn != nil {
		return s.saveFn(ctx, order)
	}
	return nil
}
func (s *stubReconcileOrders) FindActiveByActor(ctx context.Context, actorID uuid.UUID, placedAfter time.Time) ([]models.Order, error) {
	return nil, nil
}
func (s *stubReconcileOrders) FindByDineInTab(ctx context.Context, businessID uuid.UUID, tabID string) ([]models.Order, error) {
	return nil, nil
}
func (s *stubReconcileOrders) FindByDineInToken(ctx context.Context, businessID uuid.UUID, token string) ([]models.Order, error) {
	return nil, nil
}
func (s *stubReconcileOrders) FindActiveByCourier(ctx context.Context, courierID uuid.UUID) ([]models.Order, error) {
	return nil, nil
}
func (s *stubReconcileOrders) FindInFlightDeliveries(ctx context.Context, businessID uuid.UUID) ([]models.Order, error) {
	return nil, nil
}
func (s *stubReconcileOrders) ReassignActor(ctx context.Context, fromActorID, toActorID uuid.UUID, toKind enums.ActorKind) error {
	return nil
}

type stubAddonRepo struct {
	createFn           func(ctx context.Context, request *models.AddonRequest) error
	findByGatewayRefFn func(ctx context.Context, ref string) (*models.AddonRequest, error)
	saveFn             func(ctx context.Context, request *models.AddonRequest) error
}

func (s *stubAddonRepo) WithTx(tx *gorm.DB) AddonRequestRepository { return s }
func (s *stubAddonRepo) Create(ctx context.Context, request *models.AddonRequest) error {
	if s.createFn != nil {
		return s.createFn(ctx, request)
	}
	return nil
}
func (s *stubAddonRepo) FindByGatewayRef(ctx context.Context, ref string) (*models.AddonRequest, error) {
	if s.findByGatewayRefFn != nil {
		return s.findByGatewayRefFn(ctx, ref)
	}
	return nil, gorm.ErrRecordNotFound
}
func (s *stubAddonRepo) Save(ctx context.Context, request *models.AddonRequest) error {
	if s.saveFn != nil {
		return s.saveFn(ctx, request)
	}
	return nil
}

type stubRefundRepo struct {
	createFn           func(ctx context.Context, record *models.RefundRecord) error
	findByGatewayRefFn func(ctx context.Context, ref string) (*models.RefundRecord, error)
	listByOrderFn      func(ctx context.Context, orderID uuid.UUID) ([]models.RefundRecord, error)
	saveFn             func(ctx context.Context, record *models.RefundRecord) error
}

func (s *stubRefundRepo) WithTx(tx *gorm.DB) RefundRecordRepository { return s }
func (s *stubRefundRepo) Create(ctx context.Context, record *models.RefundRecord) error {
	if s.createFn != nil {
		return s.createFn(ctx, record)
	}
	return nil
}
func (s *stubRefundRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.RefundRecord, error) {
	return nil, gorm.ErrRecordNotFound
}
func (s *stubRefundRepo) FindByGatewayRefundRef(ctx context.Context, ref string) (*models.RefundRecord, error) {
	if s.findByGatewayRefFn != nil {
		return s.findByGatewayRefFn(ctx, ref)
	}
	return nil, gorm.ErrRecordNotFound
}
func (s *stubRefundRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.RefundRecord, error) {
	if s.listByOrderFn != nil {
		return s.listByOrderFn(ctx, orderID)
	}
	return nil, nil
}
func (s *stubRefundRepo) Save(ctx context.Context, record *models.RefundRecord) error {
	if s.saveFn != nil {
		return s.saveFn(ctx, record)
	}
	return nil
}

type stubGateway struct {
	refundFn   func(ctx context.Context, req gateway.RefundRequest) (*gateway.RefundResult, error)
	checkoutFn func(ctx context.Context, req gateway.CheckoutRequest) (*gateway.CheckoutResult, error)
}

func (s *stubGateway) Refund(ctx context.Context, req gateway.RefundRequest) (*gateway.RefundResult, error) {
	if s.refundFn != nil {
		return s.refundFn(ctx, req)
	}
	return &gateway.RefundResult{GatewayRefundID: "GR-" + uuid.NewString(), State: "PENDING"}, nil
}

func (s *stubGateway) CreateCheckout(ctx context.Context, req gateway.CheckoutRequest) (*gateway.CheckoutResult, error) {
	if s.checkoutFn != nil {
		return s.checkoutFn(ctx, req)
	}
	return &gateway.CheckoutResult{
		GatewayOrderID: "GWO-" + req.MerchantOrderID,
		RedirectURL:    "https://pay.example/" + req.MerchantOrderID,
		State:          "PENDING",
	}, nil
}

type stubTx struct{}

func (stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

type captureNotifier struct {
	orders []*models.Order
}

func (c *captureNotifier) OrderStatusChanged(ctx context.Context, order *models.Order) {
	c.orders = append(c.orders, order)
}

func newReconcileService(t *testing.T, params ServiceParams) Service {
	t.Helper()
	if params.Orders == nil {
		params.Orders = &stubReconcileOrders{}
	}
	if params.Addons == nil {
		params.Addons = &stubAddonRepo{}
	}
	if params.Refunds == nil {
		params.Refunds = &stubRefundRepo{}
	}
	if params.Gateway == nil {
		params.Gateway = &stubGateway{}
	}
	if params.Checkout == nil {
		params.Checkout = &stubGateway{}
	}
	if params.Tx == nil {
		params.Tx = stubTx{}
	}
	svc, err := NewService(params)
	require.NoError(t, err)
	return svc
}

func paidOrder(status enums.OrderStatus) *models.Order {
	return &models.Order{
		ID:           uuid.New(),
		BusinessID:   uuid.New(),
		Status:       status,
		DeliveryType: enums.DeliveryTypeDelivery,
		Subtotal:     50000,
		TotalAmount:  50000,
		PlacedAt:     time.Now().Add(-time.Hour),
	}
}

func TestHandleEventUnknownKindAckedAndDropped(t *testing.T) {
	loadedOrder := false
	ordersRepo := &stubReconcileOrders{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
			loadedOrder = true
			return nil, gorm.ErrRecordNotFound
		},
	}
	svc := newReconcileService(t, ServiceParams{Orders: ordersRepo})

	// Acked so the gateway stops retrying a kind this system never handles.
	err := svc.HandleEvent(context.Background(), GatewayEvent{Event: "checkout.teleported"})
	require.NoError(t, err)
	assert.False(t, loadedOrder)
}

func TestCheckoutCompletedConfirmsPendingOrder(t *testing.T) {
	order := paidOrder(enums.OrderStatusPending)
	var saved *models.Order
	ordersRepo := &stubReconcileOrders{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Order, error) { return order, nil },
		saveFn: func(ctx context.Context, o *models.Order) error {
			saved = o
			return nil
		},
	}
	notifier := &captureNotifier{}
	svc := newReconcileService(t, ServiceParams{Orders: ordersRepo, Notifier: notifier})

	err := svc.HandleEvent(context.Background(), GatewayEvent{
		Event: EventCheckoutCompleted,
		Payload: EventPayload{
			MerchantOrderID: order.ID.String(),
			GatewayOrderID:  "GW-1",
			AmountMinor:     50000,
		},
	})
	require.NoError(t, err)

	require.NotNil(t, saved)
	assert.Equal(t, enums.OrderStatusConfirmed, saved.Status)
	require.Len(t, saved.PaymentDetails, 1)
	assert.Equal(t, enums.PaymentStatusPaid, saved.PaymentDetails[0].Status)
	assert.Equal(t, "GW-1", saved.PaymentDetails[0].GatewayRef)
	assert.True(t, saved.IsPaid())
	assert.Len(t, notifier.orders, 1)
}

func TestCheckoutCompletedLateWebhookKeepsProgress(t *testing.T) {
	order := paidOrder(enums.OrderStatusPreparing)
	ordersRepo := &stubReconcileOrders{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Order, error) { return order, nil },
	}
	svc := newReconcileService(t, ServiceParams{Orders: ordersRepo})

	err := svc.HandleEvent(context.Background(), GatewayEvent{
		Event: EventCheckoutCompleted,
		Payload: EventPayload{
			MerchantOrderID: order.ID.String(),
			GatewayOrderID:  "GW-2",
			AmountMinor:     50000,
		},
	})
	require.NoError(t, err)

	// The payment fact lands; the fulfillment stage does not move back.
	assert.Equal(t, enums.OrderStatusPreparing, order.Status)
	require.Len(t, order.PaymentDetails, 1)
	assert.Equal(t, enums.PaymentStatusPaid, order.PaymentDetails[0].Status)
}

func TestCheckoutCompletedReplayIsNoOp(t *testing.T) {
	order := paidOrder(enums.OrderStatusConfirmed)
	order.PaymentDetails = types.PaymentDetailList{{
		Method:     enums.PaymentMethodOnline,
		GatewayRef: "GW-3",
		Amount:     50000,
		Status:     enums.PaymentStatusPaid,
	}}
	saves := 0
	ordersRepo := &stubReconcileOrders{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Order, error) { return order, nil },
		saveFn: func(ctx context.Context, o *models.Order) error {
			saves++
			return nil
		},
	}
	svc := newReconcileService(t, ServiceParams{Orders: ordersRepo})

	for i := 0; i < 3; i++ {
		err := svc.HandleEvent(context.Background(), GatewayEvent{
			Event: EventCheckoutCompleted,
			Payload: EventPayload{
				MerchantOrderID: order.ID.String(),
				GatewayOrderID:  "GW-3",
				AmountMinor:     50000,
			},
		})
		require.NoError(t, err)
	}

	assert.Zero(t, saves)
	assert.Len(t, order.PaymentDetails, 1)
}

func TestCheckoutCompletedMalformedIDAcked(t *testing.T) {
	svc := newReconcileService(t, ServiceParams{})

	err := svc.HandleEvent(context.Background(), GatewayEvent{
		Event:   EventCheckoutCompleted,
		Payload: EventPayload{MerchantOrderID: "not-a-uuid"},
	})
	// Acked so the gateway stops retrying a permanently bad event.
	require.NoError(t, err)
}

func TestCheckoutFailedRecordsFactOnce(t *testing.T) {
	order := paidOrder(enums.OrderStatusPending)
	ordersRepo := &stubReconcileOrders{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Order, error) { return order, nil },
	}
	svc := newReconcileService(t, ServiceParams{Orders: ordersRepo})

	event := GatewayEvent{
		Event: EventCheckoutFailed,
		Payload: EventPayload{
			MerchantOrderID: order.ID.String(),
			GatewayOrderID:  "GW-4",
			AmountMinor:     50000,
		},
	}
	require.NoError(t, svc.HandleEvent(context.Background(), event))
	require.NoError(t, svc.HandleEvent(context.Background(), event))

	require.Len(t, order.PaymentDetails, 1)
	assert.Equal(t, enums.PaymentStatusFailed, order.PaymentDetails[0].Status)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.False(t, order.IsPaid())
}

func TestAddonCompletedMergesItemsAndTotals(t *testing.T) {
	order := paidOrder(enums.OrderStatusPreparing)
	order.Items = types.OrderItemList{
		{ItemID: "base-1", Name: "Thali", Qty: 1, UnitPrice: 50000, LineTotal: 50000},
	}
	order.Tax = 2500
	order.TotalAmount = 52500

	ref := AddonRef(uuid.NewString())
	request := &models.AddonRequest{
		ID:         uuid.New(),
		OrderID:    order.ID,
		GatewayRef: ref,
		Items: types.OrderItemList{
			{ItemID: "extra-1", Name: "Lassi", Qty: 2, UnitPrice: 6000, LineTotal: 12000},
		},
		Subtotal: 12000,
		Tax:      600,
		Status:   models.AddonRequestStatusPending,
	}

	var savedRequest *models.AddonRequest
	addons := &stubAddonRepo{
		findByGatewayRefFn: func(ctx context.Context, gotRef string) (*models.AddonRequest, error) {
			assert.Equal(t, ref, gotRef)
			return request, nil
		},
		saveFn: func(ctx context.Context, r *models.AddonRequest) error {
			savedRequest = r
			return nil
		},
	}
	ordersRepo := &stubReconcileOrders{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Order, error) { return order, nil },
	}
	svc := newReconcileService(t, ServiceParams{Orders: ordersRepo, Addons: addons})

	err := svc.HandleEvent(context.Background(), GatewayEvent{
		Event: EventCheckoutCompleted,
		Payload: EventPayload{
			MerchantOrderID: ref,
			GatewayOrderID:  "GW-5",
			AmountMinor:     12600,
		},
	})
	require.NoError(t, err)

	require.Len(t, order.Items, 2)
	// Pre-existing items are stamped with the order's placement time, new
	// ones with the merge time.
	require.NotNil(t, order.Items[0].AddedAt)
	assert.Equal(t, order.PlacedAt, *order.Items[0].AddedAt)
	require.NotNil(t, order.Items[1].AddedAt)
	assert.True(t, order.Items[1].AddedAt.After(order.PlacedAt))

	assert.Equal(t, int64(62000), order.Subtotal)
	assert.Equal(t, int64(3100), order.Tax)
	assert.Equal(t, int64(65100), order.TotalAmount)
	assert.Equal(t, enums.OrderStatusPreparing, order.Status)

	require.NotNil(t, savedRequest)
	assert.Equal(t, models.AddonRequestStatusCompleted, savedRequest.Status)

	require.Len(t, order.StatusHistory, 1)
	assert.Equal(t, "add-on paid: 1 item(s)", order.StatusHistory[0].Note)
}

func TestAddonCompletedReplayIsNoOp(t *testing.T) {
	ref := AddonRef(uuid.NewString())
	request := &models.AddonRequest{
		ID:         uuid.New(),
		OrderID:    uuid.New(),
		GatewayRef: ref,
		Status:     models.AddonRequestStatusCompleted,
	}
	loadedOrder := false
	addons := &stubAddonRepo{
		findByGatewayRefFn: func(ctx context.Context, gotRef string) (*models.AddonRequest, error) {
			return request, nil
		},
	}
	ordersRepo := &stubReconcileOrders{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
			loadedOrder = true
			return nil, gorm.ErrRecordNotFound
		},
	}
	svc := newReconcileService(t, ServiceParams{Orders: ordersRepo, Addons: addons})

	err := svc.HandleEvent(context.Background(), GatewayEvent{
		Event:   EventCheckoutCompleted,
		Payload: EventPayload{MerchantOrderID: ref},
	})
	require.NoError(t, err)
	assert.False(t, loadedOrder)
}

func TestRefundCompletedSettlesRecord(t *testing.T) {
	record := &models.RefundRecord{
		ID:               uuid.New(),
		OrderID:          uuid.New(),
		GatewayRefundRef: "GR-1",
		Amount:           10000,
		Status:           enums.RefundRecordStatusPending,
	}
	refunds := &stubRefundRepo{
		findByGatewayRefFn: func(ctx context.Context, ref string) (*models.RefundRecord, error) {
			return record, nil
		},
	}
	svc := newReconcileService(t, ServiceParams{Refunds: refunds})

	event := GatewayEvent{
		Event:   EventRefundCompleted,
		Payload: EventPayload{GatewayRefundID: "GR-1"},
	}
	require.NoError(t, svc.HandleEvent(context.Background(), event))
	assert.Equal(t, enums.RefundRecordStatusCompleted, record.Status)

	// Replay leaves it settled.
	require.NoError(t, svc.HandleEvent(context.Background(), event))
	assert.Equal(t, enums.RefundRecordStatusCompleted, record.Status)
}

func TestRefundFailedReturnsAmountOnce(t *testing.T) {
	order := paidOrder(enums.OrderStatusDelivered)
	order.RefundAmount = 10000
	order.RefundStatus = enums.RefundStatusPartial

	record := &models.RefundRecord{
		ID:               uuid.New(),
		OrderID:          order.ID,
		GatewayRefundRef: "GR-2",
		Amount:           10000,
		Status:           enums.RefundRecordStatusPending,
	}
	refunds := &stubRefundRepo{
		findByGatewayRefFn: func(ctx context.Context, ref string) (*models.RefundRecord, error) {
			return record, nil
		},
	}
	ordersRepo := &stubReconcileOrders{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Order, error) { return order, nil },
	}
	svc := newReconcileService(t, ServiceParams{Orders: ordersRepo, Refunds: refunds})

	event := GatewayEvent{
		Event:   EventRefundFailed,
		Payload: EventPayload{GatewayRefundID: "GR-2"},
	}
	require.NoError(t, svc.HandleEvent(context.Background(), event))

	assert.Equal(t, enums.RefundRecordStatusFailed, record.Status)
	assert.Equal(t, int64(0), order.RefundAmount)
	assert.Equal(t, enums.RefundStatusNone, order.RefundStatus)

	// Second delivery of the same failure must not double-credit.
	order.RefundAmount = 5000
	order.RefundStatus = enums.RefundStatusPartial
	require.NoError(t, svc.HandleEvent(context.Background(), event))
	assert.Equal(t, int64(5000), order.RefundAmount)
}

func TestRefundEventWithoutReferenceAcked(t *testing.T) {
	svc := newReconcileService(t, ServiceParams{})

	err := svc.HandleEvent(context.Background(), GatewayEvent{Event: EventRefundCompleted})
	require.NoError(t, err)
}

func TestMerchantRefundIDShape(t *testing.T) {
	id := uuid.MustParse("a1b2c3d4-e5f6-4788-9a0b-1c2d3e4f5a6b")
	ref := merchantRefundID(id)
	assert.Equal(t, "RF-A1B2C3D4E5F647889A0B", ref)
}
