package activeorders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/platterly/platterly-backend/internal/identity"
	"github.com/platterly/platterly-backend/internal/orders"
	"github.com/platterly/platterly-backend/pkg/db/models"
	pkgerrors "github.com/platterly/platterly-backend/pkg/errors"
)

// activeWindow caps how old an order may be and still count as active. A
// stuck non-terminal status cannot keep an order on screen forever.
const activeWindow = 24 * time.Hour

// AuthContext carries whatever credentials arrived with the query. Zero
// values mean the credential was absent.
type AuthContext struct {
	SessionActorID uuid.UUID
	LegacyActorID  uuid.UUID
	Ref            string
}

// Query asks for open orders through exactly one lookup key.
type Query struct {
	Phone      string
	Ref        string
	TabID      string
	BusinessID uuid.UUID
	Auth       AuthContext
}

// Service answers "what is open right now" for a phone, a capability
// reference, or a dine-in tab.
type Service interface {
	Active(ctx context.Context, query Query) ([]models.Order, error)
	ActiveTab(ctx context.Context, businessID uuid.UUID, tabID string) (*TabView, error)
}

type service struct {
	orders orders.Repository
	users  identity.UserRepository
	guests identity.GuestRepository
	now    func() time.Time
}

// ServiceParams collects the aggregator dependencies.
type ServiceParams struct {
	Orders orders.Repository
	Users  identity.UserRepository
	Guests identity.GuestRepository
	Now    func() time.Time
}

// NewService builds the active-order aggregator.
func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if params.Guests == nil {
		return nil, fmt.Errorf("guest repository required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		orders: params.Orders,
		users:  params.Users,
		guests: params.Guests,
		now:    now,
	}, nil
}

func (s *service) Active(ctx context.Context, query Query) ([]models.Order, error) {
	keys := 0
	if query.Phone != "" {
		keys++
	}
	if query.Ref != "" {
		keys++
	}
	if query.TabID != "" {
		keys++
	}
	if keys != 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "exactly one of phone, ref or tab id required")
	}
	if query.TabID != "" {
		view, err := s.ActiveTab(ctx, query.BusinessID, query.TabID)
		if err != nil {
			return nil, err
		}
		return view.Orders, nil
	}

	target, err := s.resolveTarget(ctx, query)
	if err != nil {
		return nil, err
	}
	if query.Ref != "" {
		// Possession of the reference used for the lookup is itself the
		// credential.
		query.Auth.Ref = query.Ref
	}
	if err := authorize(query.Auth, target); err != nil {
		return nil, err
	}

	cutoff := s.now().Add(-activeWindow)
	found, err := s.orders.FindActiveByActor(ctx, target, cutoff)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list actor orders")
	}
	return filterOpen(found, false), nil
}

// resolveTarget is lookup-only: an active-order query never creates a guest
// profile. A phone nobody has ordered with resolves to the nil id, which
// authorize rejects the same way it rejects a bad credential.
func (s *service) resolveTarget(ctx context.Context, query Query) (uuid.UUID, error) {
	if query.Ref != "" {
		id, err := identity.DecodeCapabilityRef(query.Ref)
		if err != nil {
			return uuid.Nil, accessDenied()
		}
		return id, nil
	}

	canonical := identity.CanonicalPhone(query.Phone)
	user, err := s.users.FindByPhone(ctx, canonical)
	if err == nil {
		return user.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user by phone")
	}
	guest, err := s.guests.FindByPhone(ctx, canonical)
	if err == nil {
		return guest.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup guest by phone")
	}
	return uuid.Nil, nil
}

// authorize applies the precedence chain: exact session match, then a valid
// capability reference for the target, then the legacy cookie fallback. The
// same denial is returned whether or not the target exists.
func authorize(auth AuthContext, target uuid.UUID) error {
	if target == uuid.Nil {
		return accessDenied()
	}
	if auth.SessionActorID != uuid.Nil && auth.SessionActorID == target {
		return nil
	}
	if auth.Ref != "" {
		if id, err := identity.DecodeCapabilityRef(auth.Ref); err == nil && id == target {
			return nil
		}
	}
	if auth.LegacyActorID != uuid.Nil && auth.LegacyActorID == target {
		return nil
	}
	return accessDenied()
}

func accessDenied() error {
	return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to view these orders")
}

// ActiveTab merges every order belonging to the table session: the tab id
// under both legacy column spellings, plus any dine-in token discovered on a
// matched order.
func (s *service) ActiveTab(ctx context.Context, businessID uuid.UUID, tabID string) (*TabView, error) {
	if businessID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "business id required")
	}
	if tabID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tab id required")
	}

	byTab, err := s.orders.FindByDineInTab(ctx, businessID, tabID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup tab orders")
	}

	batches := [][]models.Order{byTab}
	seenTokens := map[string]struct{}{}
	for _, o := range byTab {
		if o.DineInToken == nil || *o.DineInToken == "" {
			continue
		}
		token := *o.DineInToken
		if _, ok := seenTokens[token]; ok {
			continue
		}
		seenTokens[token] = struct{}{}
		byToken, err := s.orders.FindByDineInToken(ctx, businessID, token)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup token orders")
		}
		batches = append(batches, byToken)
	}

	merged := mergeByID(batches...)
	cutoff := s.now().Add(-activeWindow)
	recent := merged[:0]
	for _, o := range merged {
		if o.PlacedAt.After(cutoff) {
			recent = append(recent, o)
		}
	}
	open := filterOpen(recent, true)
	return buildTabView(tabID, open), nil
}
