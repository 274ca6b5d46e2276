package identity

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/platterly/platterly-backend/internal/orders"
	"github.com/platterly/platterly-backend/pkg/db/models"
	"github.com/platterly/platterly-backend/pkg/enums"
	pkgerrors "github.com/platterly/platterly-backend/pkg/errors"
	"github.com/platterly/platterly-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ResolvedActor is the stable identity a phone number maps to.
type ResolvedActor struct {
	ActorID   uuid.UUID
	ActorKind enums.ActorKind
	Created   bool
}

// Service resolves phone numbers and capability references to actor ids and
// runs the login-time guest migration.
type Service interface {
	Resolve(ctx context.Context, phone string) (*ResolvedActor, error)
	ResolveRef(ctx context.Context, ref string) (*ResolvedActor, error)
	MigrateGuest(ctx context.Context, phone string, userID uuid.UUID) error
	TrackingLink(orderID uuid.UUID, sessionToken string, guestID uuid.UUID) string
}

type service struct {
	users           UserRepository
	guests          GuestRepository
	stats           CustomerStatsRepository
	orders          orders.Repository
	tx              txRunner
	log             *logger.Logger
	trackingBaseURL string
	now             func() time.Time
}

// ServiceParams collects the identity service dependencies.
type ServiceParams struct {
	Users           UserRepository
	Guests          GuestRepository
	Stats           CustomerStatsRepository
	Orders          orders.Repository
	Tx              txRunner
	Log             *logger.Logger
	TrackingBaseURL string
	Now             func() time.Time
}

// NewService builds the identity service.
func NewService(params ServiceParams) (Service, error) {
	if params.Users == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if params.Guests == nil {
		return nil, fmt.Errorf("guest repository required")
	}
	if params.Stats == nil {
		return nil, fmt.Errorf("customer stats repository required")
	}
	if params.Orders == nil {
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
		users:           params.Users,
		guests:          params.Guests,
		stats:           params.Stats,
		orders:          params.Orders,
		tx:              params.Tx,
		log:             params.Log,
		trackingBaseURL: params.TrackingBaseURL,
		now:             now,
	}, nil
}

// Resolve maps a phone number to a stable actor id, preferring a registered
// user, then an existing guest profile, then a freshly created guest.
func (s *service) Resolve(ctx context.Context, phone string) (*ResolvedActor, error) {
	canonical := CanonicalPhone(phone)
	if len(canonical) < 10 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone number too short").
			WithDetails(map[string]any{"digits": len(canonical)})
	}

	user, err := s.users.FindByPhone(ctx, canonical)
	if err == nil {
		return &ResolvedActor{ActorID: user.ID, ActorKind: enums.ActorKindUser}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user by phone")
	}

	guest, err := s.guests.FindByPhone(ctx, canonical)
	if err == nil {
		return &ResolvedActor{ActorID: guest.ID, ActorKind: enums.ActorKindGuest}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup guest by phone")
	}

	created := &models.GuestProfile{ID: uuid.New(), Phone: canonical}
	if err := s.guests.Create(ctx, created); err != nil {
		// A concurrent request may have created the profile first; re-read
		// instead of failing the caller.
		if existing, ferr := s.guests.FindByPhone(ctx, canonical); ferr == nil {
			return &ResolvedActor{ActorID: existing.ID, ActorKind: enums.ActorKindGuest}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create guest profile")
	}
	return &ResolvedActor{ActorID: created.ID, ActorKind: enums.ActorKindGuest, Created: true}, nil
}

// ResolveRef decodes a capability reference and confirms the guest profile
// behind it still exists. A migrated (deleted) guest yields not-found, which
// callers surface as forbidden to avoid leaking lifecycle state.
func (s *service) ResolveRef(ctx context.Context, ref string) (*ResolvedActor, error) {
	guestID, err := DecodeCapabilityRef(ref)
	if err != nil {
		return nil, err
	}
	guest, err := s.guests.FindByID(ctx, guestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unknown reference")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup guest by id")
	}
	return &ResolvedActor{ActorID: guest.ID, ActorKind: enums.ActorKindGuest}, nil
}

// MigrateGuest folds a guest profile into the registered account that just
// authenticated with the same phone. Safe to retry: once the profile is gone
// the whole call is a no-op.
func (s *service) MigrateGuest(ctx context.Context, phone string, userID uuid.UUID) error {
	canonical := CanonicalPhone(phone)
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		guests := s.guests.WithTx(tx)
		users := s.users.WithTx(tx)
		stats := s.stats.WithTx(tx)
		orderRepo := s.orders.WithTx(tx)

		guest, err := guests.FindByPhone(ctx, canonical)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup guest by phone")
		}

		user, err := users.FindByID(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
		}

		user.Addresses = guest.Addresses.MergeInto(user.Addresses)
		if err := users.Save(ctx, user); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "merge guest addresses")
		}

		guestStats, err := stats.ListByActor(ctx, guest.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list guest customer records")
		}
		for i := range guestStats {
			record := guestStats[i]
			if err := s.moveCustomerRecord(ctx, stats, record, user.ID); err != nil {
				return err
			}
		}

		if err := orderRepo.ReassignActor(ctx, guest.ID, user.ID, enums.ActorKindUser); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reassign guest orders")
		}

		if err := guests.Delete(ctx, guest.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete guest profile")
		}

		if s.log != nil {
			logCtx := s.log.WithFields(ctx, map[string]any{
				"actor_id":  user.ID.String(),
				"guest_id":  guest.ID.String(),
				"customers": len(guestStats),
			})
			s.log.Info(logCtx, "guest profile migrated")
		}
		return nil
	})
}

// moveCustomerRecord re-keys one per-business stats record from the guest to
// the user, folding counters into an existing user record when the user has
// already transacted with that business.
func (s *service) moveCustomerRecord(ctx context.Context, stats CustomerStatsRepository, record models.BusinessCustomer, userID uuid.UUID) error {
	existing, err := stats.FindByBusinessAndActor(ctx, record.BusinessID, userID)
	switch {
	case err == nil:
		existing.OrdersCount += record.OrdersCount
		existing.TotalSpent += record.TotalSpent
		if existing.JoinedAt == nil {
			joined := s.now()
			if record.JoinedAt != nil {
				joined = *record.JoinedAt
			}
			existing.JoinedAt = &joined
		}
		if err := stats.Save(ctx, existing); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "merge customer record")
		}
		return wrapDep(stats.Delete(ctx, record.ID), "delete guest customer record")
	case errors.Is(err, gorm.ErrRecordNotFound):
		record.ActorID = userID
		record.ActorKind = enums.ActorKindUser
		if record.JoinedAt == nil {
			joined := s.now()
			record.JoinedAt = &joined
		}
		return wrapDep(stats.Save(ctx, &record), "re-key customer record")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user customer record")
	}
}

// TrackingLink builds the shareable link for an order placed by a guest.
func (s *service) TrackingLink(orderID uuid.UUID, sessionToken string, guestID uuid.UUID) string {
	values := url.Values{}
	if sessionToken != "" {
		values.Set("token", sessionToken)
	}
	values.Set("ref", EncodeCapabilityRef(guestID))
	return fmt.Sprintf("%s/%s?%s", s.trackingBaseURL, orderID.String(), values.Encode())
}

func wrapDep(err error, msg string) error {
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
	}
	return nil
}
