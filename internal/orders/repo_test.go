package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/platterly/platterly-backend/pkg/db/models"
	"github.com/platterly/platterly-backend/pkg/enums"
	"github.com/platterly/platterly-backend/pkg/types"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  business_id TEXT NOT NULL,
  business_kind TEXT NOT NULL DEFAULT 'restaurant',
  actor_id TEXT NOT NULL,
  actor_kind TEXT NOT NULL DEFAULT 'guest',
  status TEXT NOT NULL DEFAULT 'pending',
  delivery_type TEXT NOT NULL DEFAULT 'delivery',
  items TEXT,
  subtotal INTEGER NOT NULL DEFAULT 0,
  tax INTEGER NOT NULL DEFAULT 0,
  delivery_fee INTEGER NOT NULL DEFAULT 0,
  packaging_fee INTEGER NOT NULL DEFAULT 0,
  platform_fee INTEGER NOT NULL DEFAULT 0,
  convenience_fee INTEGER NOT NULL DEFAULT 0,
  service_fee INTEGER NOT NULL DEFAULT 0,
  discount INTEGER NOT NULL DEFAULT 0,
  total_amount INTEGER NOT NULL DEFAULT 0,
  payment_details TEXT,
  status_history TEXT,
  refund_status TEXT NOT NULL DEFAULT 'none',
  refund_amount INTEGER NOT NULL DEFAULT 0,
  refunded_items TEXT,
  refund_ids TEXT,
  courier_id TEXT,
  dine_in_tab_id TEXT,
  dine_in_token TEXT,
  placed_at DATETIME NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, gdb.Exec(schema).Error)
	return gdb
}

func seedOrder(t *testing.T, repo Repository, mutate func(*models.Order)) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:           uuid.New(),
		BusinessID:   uuid.New(),
		ActorID:      uuid.New(),
		ActorKind:    enums.ActorKindGuest,
		Status:       enums.OrderStatusConfirmed,
		DeliveryType: enums.DeliveryTypeDelivery,
		Items: types.OrderItemList{
			{ItemID: "itm-1", Name: "Paneer Roll", Qty: 2, UnitPrice: 12000, LineTotal: 24000},
		},
		Subtotal:    24000,
		TotalAmount: 24000,
		PlacedAt:    time.Now().UTC(),
	}
	if mutate != nil {
		mutate(order)
	}
	created, err := repo.Create(context.Background(), order)
	require.NoError(t, err)
	return created
}

func TestOrderRepoCreateAndFind(t *testing.T) {
	repo := NewRepository(setupOrdersTestDB(t))
	order := seedOrder(t, repo, nil)

	found, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)
	assert.Equal(t, enums.OrderStatusConfirmed, found.Status)
	require.Len(t, found.Items, 1)
	assert.Equal(t, int64(24000), found.Items[0].LineTotal)
}

func TestOrderRepoFindByIDMissing(t *testing.T) {
	repo := NewRepository(setupOrdersTestDB(t))

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestOrderRepoFindByDineInTabMatchesBothSpellings(t *testing.T) {
	repo := NewRepository(setupOrdersTestDB(t))
	businessID := uuid.New()
	tab := "T-12"

	seedOrder(t, repo, func(o *models.Order) {
		o.BusinessID = businessID
		o.DeliveryType = enums.DeliveryTypeDineIn
		o.DineInTabID = &tab
	})
	seedOrder(t, repo, func(o *models.Order) {
		o.BusinessID = businessID
		o.DeliveryType = enums.DeliveryTypeDineIn
		o.DineInToken = &tab
	})
	// Different tab, must not leak in.
	other := "T-99"
	seedOrder(t, repo, func(o *models.Order) {
		o.BusinessID = businessID
		o.DeliveryType = enums.DeliveryTypeDineIn
		o.DineInTabID = &other
	})

	found, err := repo.FindByDineInTab(context.Background(), businessID, tab)
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func TestOrderRepoFindActiveByCourierFiltersPipeline(t *testing.T) {
	repo := NewRepository(setupOrdersTestDB(t))
	courierID := uuid.New()

	seedOrder(t, repo, func(o *models.Order) {
		o.CourierID = &courierID
		o.Status = enums.OrderStatusOnTheWay
	})
	seedOrder(t, repo, func(o *models.Order) {
		o.CourierID = &courierID
		o.Status = enums.OrderStatusDelivered
	})

	active, err := repo.FindActiveByCourier(context.Background(), courierID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, enums.OrderStatusOnTheWay, active[0].Status)
}

func TestOrderRepoReassignActor(t *testing.T) {
	repo := NewRepository(setupOrdersTestDB(t))
	guestID := uuid.New()
	userID := uuid.New()

	order := seedOrder(t, repo, func(o *models.Order) {
		o.ActorID = guestID
		o.ActorKind = enums.ActorKindGuest
	})

	require.NoError(t, repo.ReassignActor(context.Background(), guestID, userID, enums.ActorKindUser))

	found, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, userID, found.ActorID)
	assert.Equal(t, enums.ActorKindUser, found.ActorKind)
}
