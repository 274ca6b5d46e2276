package identity

import (
	"context"
	"errors"
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
	"github.com/platterly/platterly-backend/pkg/types"
)

type stubUserRepo struct {
	findByPhoneFn func(ctx context.Context, phone string) (*models.User, error)
	findByIDFn    func(ctx context.Context, id uuid.UUID) (*models.User, error)
	saveFn        func(ctx context.Context, user *models.User) error
}

func (s *stubUserRepo) WithTx(tx *gorm.DB) UserRepository { return s }
func (s *stubUserRepo) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	if s.findByPhoneFn != nil {
		return s.findByPhoneFn(ctx, phone)
	}
	return nil, gorm.ErrRecordNotFound
}
func (s *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if s.findByIDFn != nil {
		return s.findByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}
func (s *stubUserRepo) Save(ctx context.Context, user *models.User) error {
	if s.saveFn != nil {
		return s.saveFn(ctx, user)
	}
	return nil
}

type stubGuestRepo struct {
	findByPhoneFn func(ctx context.Context, phone string) (*models.GuestProfile, error)
	findByIDFn    func(ctx context.Context, id uuid.UUID) (*models.GuestProfile, error)
	createFn      func(ctx context.Context, guest *models.GuestProfile) error
	deleteFn      func(ctx context.Context, id uuid.UUID) error
}

func (s *stubGuestRepo) WithTx(tx *gorm.DB) GuestRepository { return s }
func (s *stubGuestRepo) FindByPhone(ctx context.Context, phone string) (*models.GuestProfile, error) {
	if s.findByPhoneFn != nil {
		return s.findByPhoneFn(ctx, phone)
	}
	return nil, gorm.ErrRecordNotFound
}
func (s *stubGuestRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.GuestProfile, error) {
	if s.findByIDFn != nil {
		return s.findByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}
func (s *stubGuestRepo) Create(ctx context.Context, guest *models.GuestProfile) error {
	if s.createFn != nil {
		return s.createFn(ctx, guest)
	}
	return nil
}
func (s *stubGuestRepo) AppendAddress(ctx context.Context, id uuid.UUID, address types.Address) error {
	return nil
}
func (s *stubGuestRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id)
	}
	return nil
}

type stubStatsRepo struct {
	listByActorFn func(ctx context.Context, actorID uuid.UUID) ([]models.BusinessCustomer, error)
	findFn        func(ctx context.Context, businessID, actorID uuid.UUID) (*models.BusinessCustomer, error)
	saveFn        func(ctx context.Context, record *models.BusinessCustomer) error
	deleteFn      func(ctx context.Context, id uuid.UUID) error
}

func (s *stubStatsRepo) WithTx(tx *gorm.DB) CustomerStatsRepository { return s }
func (s *stubStatsRepo) ListByActor(ctx context.Context, actorID uuid.UUID) ([]models.BusinessCustomer, error) {
	if s.listByActorFn != nil {
		return s.listByActorFn(ctx, actorID)
	}
	return nil, nil
}
func (s *stubStatsRepo) FindByBusinessAndActor(ctx context.Context, businessID, actorID uuid.UUID) (*models.BusinessCustomer, error) {
	if s.findFn != nil {
		return s.findFn(ctx, businessID, actorID)
	}
	return nil, gorm.ErrRecordNotFound
}
func (s *stubStatsRepo) Save(ctx context.Context, record *models.BusinessCustomer) error {
	if s.saveFn != nil {
		return s.saveFn(ctx, record)
	}
	return nil
}
func (s *stubStatsRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id)
	}
	return nil
}

type stubReassignOrders struct {
	reassignFn func(ctx context.Context, fromActorID, toActorID uuid.UUID, toKind enums.ActorKind) error
}

func (s *stubReassignOrders) WithTx(tx *gorm.DB) orders.Repository { return s }
func (s *stubReassignOrders) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	return order, nil
}
func (s *stubReassignOrders) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}
func (s *stubReassignOrders) Save(ctx context.Context, order *models.Order) error { return nil }
func (s *stubReassignOrders) FindActiveByActor(ctx context.Context, actorID uuid.UUID, placedAfter time.Time) ([]models.Order, error) {
	return nil, nil
}
func (s *stubReassignOrders) FindByDineInTab(ctx context.Context, businessID uuid.UUID, tabID string) ([]models.Order, error) {
	return nil, nil
}
func (s *stubReassignOrders) FindByDineInToken(ctx context.Context, businessID uuid.UUID, token string) ([]models.Order, error) {
	return nil, nil
}
func (s *stubReassignOrders) FindActiveByCourier(ctx context.Context, courierID uuid.UUID) ([]models.Order, error) {
	return nil, nil
}
func (s *stubReassignOrders) FindInFlightDeliveries(ctx context.Context, businessID uuid.UUID) ([]models.Order, error) {
	return nil, nil
}
func (s *stubReassignOrders) ReassignActor(ctx context.Context, fromActorID, toActorID uuid.UUID, toKind enums.ActorKind) error {
	if s.reassignFn != nil {
		return s.reassignFn(ctx, fromActorID, toActorID, toKind)
	}
	return nil
}

type stubTx struct{}

func (stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

func newTestService(t *testing.T, params ServiceParams) Service {
	t.Helper()
	if params.Users == nil {
		params.Users = &stubUserRepo{}
	}
	if params.Guests == nil {
		params.Guests = &stubGuestRepo{}
	}
	if params.Stats == nil {
		params.Stats = &stubStatsRepo{}
	}
	if params.Orders == nil {
		params.Orders = &stubReassignOrders{}
	}
	if params.Tx == nil {
		params.Tx = stubTx{}
	}
	svc, err := NewService(params)
	require.NoError(t, err)
	return svc
}

func TestResolveRejectsShortPhone(t *testing.T) {
	svc := newTestService(t, ServiceParams{})

	_, err := svc.Resolve(context.Background(), "12345")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestResolvePrefersRegisteredUser(t *testing.T) {
	userID := uuid.New()
	users := &stubUserRepo{
		findByPhoneFn: func(ctx context.Context, phone string) (*models.User, error) {
			assert.Equal(t, "9876543210", phone)
			return &models.User{ID: userID, Phone: phone}, nil
		},
	}
	svc := newTestService(t, ServiceParams{Users: users})

	actor, err := svc.Resolve(context.Background(), "+91 98765 43210")
	require.NoError(t, err)
	assert.Equal(t, userID, actor.ActorID)
	assert.Equal(t, enums.ActorKindUser, actor.ActorKind)
	assert.False(t, actor.Created)
}

func TestResolveCreatesGuestLazily(t *testing.T) {
	var created *models.GuestProfile
	guests := &stubGuestRepo{
		createFn: func(ctx context.Context, guest *models.GuestProfile) error {
			created = guest
			return nil
		},
	}
	svc := newTestService(t, ServiceParams{Guests: guests})

	actor, err := svc.Resolve(context.Background(), "9876543210")
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, created.ID, actor.ActorID)
	assert.Equal(t, enums.ActorKindGuest, actor.ActorKind)
	assert.True(t, actor.Created)
	assert.Equal(t, "9876543210", created.Phone)
}

func TestResolveGuestCreateRaceFallsBackToReRead(t *testing.T) {
	winner := &models.GuestProfile{ID: uuid.New(), Phone: "9876543210"}
	calls := 0
	guests := &stubGuestRepo{
		findByPhoneFn: func(ctx context.Context, phone string) (*models.GuestProfile, error) {
			calls++
			if calls == 1 {
				return nil, gorm.ErrRecordNotFound
			}
			return winner, nil
		},
		createFn: func(ctx context.Context, guest *models.GuestProfile) error {
			return errors.New("UNIQUE constraint failed: guest_profiles.phone")
		},
	}
	svc := newTestService(t, ServiceParams{Guests: guests})

	actor, err := svc.Resolve(context.Background(), "9876543210")
	require.NoError(t, err)
	assert.Equal(t, winner.ID, actor.ActorID)
	assert.False(t, actor.Created)
}

func TestResolveRefUnknownGuest(t *testing.T) {
	svc := newTestService(t, ServiceParams{})

	ref := EncodeCapabilityRef(uuid.New())
	_, err := svc.ResolveRef(context.Background(), ref)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestResolveRefReturnsGuest(t *testing.T) {
	guestID := uuid.New()
	guests := &stubGuestRepo{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*models.GuestProfile, error) {
			assert.Equal(t, guestID, id)
			return &models.GuestProfile{ID: guestID}, nil
		},
	}
	svc := newTestService(t, ServiceParams{Guests: guests})

	actor, err := svc.ResolveRef(context.Background(), EncodeCapabilityRef(guestID))
	require.NoError(t, err)
	assert.Equal(t, guestID, actor.ActorID)
	assert.Equal(t, enums.ActorKindGuest, actor.ActorKind)
}

func TestMigrateGuestNoProfileIsNoOp(t *testing.T) {
	reassigned := false
	ordersRepo := &stubReassignOrders{
		reassignFn: func(ctx context.Context, from, to uuid.UUID, kind enums.ActorKind) error {
			reassigned = true
			return nil
		},
	}
	svc := newTestService(t, ServiceParams{Orders: ordersRepo})

	require.NoError(t, svc.MigrateGuest(context.Background(), "9876543210", uuid.New()))
	assert.False(t, reassigned)
}

func TestMigrateGuestMergesEverything(t *testing.T) {
	userID := uuid.New()
	guestID := uuid.New()
	businessID := uuid.New()
	joined := time.Now().Add(-72 * time.Hour)

	guest := &models.GuestProfile{
		ID:    guestID,
		Phone: "9876543210",
		Addresses: types.AddressList{
			{Label: "home", Line1: "12 Lake Rd", City: "Pune", State: "MH", PostalCode: "411001"},
		},
	}
	user := &models.User{
		ID:    userID,
		Phone: "9876543210",
		Addresses: types.AddressList{
			{Label: "work", Line1: "9 Hill St", City: "Pune", State: "MH", PostalCode: "411002"},
		},
	}

	var savedUser *models.User
	users := &stubUserRepo{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*models.User, error) { return user, nil },
		saveFn: func(ctx context.Context, u *models.User) error {
			savedUser = u
			return nil
		},
	}

	guestDeleted := false
	guests := &stubGuestRepo{
		findByPhoneFn: func(ctx context.Context, phone string) (*models.GuestProfile, error) { return guest, nil },
		deleteFn: func(ctx context.Context, id uuid.UUID) error {
			assert.Equal(t, guestID, id)
			guestDeleted = true
			return nil
		},
	}

	var rekeyed *models.BusinessCustomer
	stats := &stubStatsRepo{
		listByActorFn: func(ctx context.Context, actorID uuid.UUID) ([]models.BusinessCustomer, error) {
			return []models.BusinessCustomer{{
				ID:          uuid.New(),
				BusinessID:  businessID,
				ActorID:     guestID,
				ActorKind:   enums.ActorKindGuest,
				OrdersCount: 4,
				TotalSpent:  96000,
				JoinedAt:    &joined,
			}}, nil
		},
		saveFn: func(ctx context.Context, record *models.BusinessCustomer) error {
			rekeyed = record
			return nil
		},
	}

	var reassignedFrom, reassignedTo uuid.UUID
	ordersRepo := &stubReassignOrders{
		reassignFn: func(ctx context.Context, from, to uuid.UUID, kind enums.ActorKind) error {
			reassignedFrom, reassignedTo = from, to
			assert.Equal(t, enums.ActorKindUser, kind)
			return nil
		},
	}

	svc := newTestService(t, ServiceParams{Users: users, Guests: guests, Stats: stats, Orders: ordersRepo})
	require.NoError(t, svc.MigrateGuest(context.Background(), "9876543210", userID))

	require.NotNil(t, savedUser)
	assert.Len(t, savedUser.Addresses, 2)

	require.NotNil(t, rekeyed)
	assert.Equal(t, userID, rekeyed.ActorID)
	assert.Equal(t, enums.ActorKindUser, rekeyed.ActorKind)
	assert.Equal(t, 4, rekeyed.OrdersCount)

	assert.Equal(t, guestID, reassignedFrom)
	assert.Equal(t, userID, reassignedTo)
	assert.True(t, guestDeleted)
}

func TestMigrateGuestFoldsIntoExistingRecord(t *testing.T) {
	userID := uuid.New()
	guestID := uuid.New()
	businessID := uuid.New()
	guestRecordID := uuid.New()

	existing := &models.BusinessCustomer{
		ID:          uuid.New(),
		BusinessID:  businessID,
		ActorID:     userID,
		ActorKind:   enums.ActorKindUser,
		OrdersCount: 10,
		TotalSpent:  200000,
	}

	var deleted uuid.UUID
	stats := &stubStatsRepo{
		listByActorFn: func(ctx context.Context, actorID uuid.UUID) ([]models.BusinessCustomer, error) {
			return []models.BusinessCustomer{{
				ID:          guestRecordID,
				BusinessID:  businessID,
				ActorID:     guestID,
				ActorKind:   enums.ActorKindGuest,
				OrdersCount: 3,
				TotalSpent:  45000,
			}}, nil
		},
		findFn: func(ctx context.Context, bID, aID uuid.UUID) (*models.BusinessCustomer, error) {
			return existing, nil
		},
		deleteFn: func(ctx context.Context, id uuid.UUID) error {
			deleted = id
			return nil
		},
	}
	guests := &stubGuestRepo{
		findByPhoneFn: func(ctx context.Context, phone string) (*models.GuestProfile, error) {
			return &models.GuestProfile{ID: guestID, Phone: phone}, nil
		},
	}
	users := &stubUserRepo{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*models.User, error) {
			return &models.User{ID: userID}, nil
		},
	}

	svc := newTestService(t, ServiceParams{Users: users, Guests: guests, Stats: stats})
	require.NoError(t, svc.MigrateGuest(context.Background(), "9876543210", userID))

	assert.Equal(t, 13, existing.OrdersCount)
	assert.Equal(t, int64(245000), existing.TotalSpent)
	assert.Equal(t, guestRecordID, deleted)
}

func TestTrackingLinkShape(t *testing.T) {
	guestID := uuid.New()
	orderID := uuid.New()
	svc := newTestService(t, ServiceParams{TrackingBaseURL: "https://track.example.in"})

	link := svc.TrackingLink(orderID, "session-token", guestID)
	assert.Contains(t, link, "https://track.example.in/"+orderID.String())
	assert.Contains(t, link, "token=session-token")
	assert.Contains(t, link, "ref=")
	assert.NotContains(t, link, guestID.String())
}
