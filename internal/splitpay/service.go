package splitpay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/platterly/platterly-backend/internal/orders"
	"github.com/platterly/platterly-backend/pkg/db/models"
	"github.com/platterly/platterly-backend/pkg/enums"
	pkgerrors "github.com/platterly/platterly-backend/pkg/errors"
	"github.com/platterly/platterly-backend/pkg/gateway"
	"github.com/platterly/platterly-backend/pkg/logger"
	"github.com/platterly/platterly-backend/pkg/types"
)

// shareRefPrefix namespaces gateway references belonging to split shares so
// the webhook controller can route them ahead of regular order
// reconciliation.
const shareRefPrefix = "SPLIT-"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CreateSessionInput describes a bill to divide.
type CreateSessionInput struct {
	BusinessID       uuid.UUID
	InitiatorActorID uuid.UUID
	InitiatorKind    enums.ActorKind
	Items            types.OrderItemList
	Tax              int64
	Participants     int
	RedirectURL      string
}

// Service manages split-payment sessions through to order finalization.
type Service interface {
	CreateSession(ctx context.Context, input CreateSessionInput) (*models.SplitSession, error)
	HandleSharePaid(ctx context.Context, gatewayOrderRef string) (*models.SplitSession, error)
	Get(ctx context.Context, sessionID uuid.UUID) (*models.SplitSession, error)
}

type service struct {
	sessions SessionRepository
	orders   orders.Repository
	gateway  CheckoutGateway
	tx       txRunner
	log      *logger.Logger
	now      func() time.Time
}

// ServiceParams collects the split-payment dependencies.
type ServiceParams struct {
	Sessions SessionRepository
	Orders   orders.Repository
	Gateway  CheckoutGateway
	Tx       txRunner
	Log      *logger.Logger
	Now      func() time.Time
}

// NewService builds the split-payment service.
func NewService(params ServiceParams) (Service, error) {
	if params.Sessions == nil {
		return nil, fmt.Errorf("session repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("checkout gateway required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		sessions: params.Sessions,
		orders:   params.Orders,
		gateway:  params.Gateway,
		tx:       params.Tx,
		log:      params.Log,
		now:      now,
	}, nil
}

// IsShareRef reports whether a merchant order id names a split share.
func IsShareRef(merchantOrderID string) bool {
	return strings.HasPrefix(merchantOrderID, shareRefPrefix)
}

func shareRef(sessionID uuid.UUID, shareID string) string {
	return fmt.Sprintf("%s%s-%s", shareRefPrefix, sessionID.String(), shareID)
}

// CreateSession divides the bill into equal shares, pushing any rounding
// remainder onto the initiator, and mints one gateway checkout per share.
func (s *service) CreateSession(ctx context.Context, input CreateSessionInput) (*models.SplitSession, error) {
	if input.BusinessID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "business id required")
	}
	if input.InitiatorActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "initiator actor id required")
	}
	if input.Participants < 2 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "split needs at least two participants")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "items required")
	}

	total := input.Items.Total() + input.Tax
	if total <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bill total must be positive")
	}

	// Friends pay the floor share; the initiator absorbs the rounding
	// remainder so shares always sum to the bill.
	floorShare := decimal.NewFromInt(total).
		Div(decimal.NewFromInt(int64(input.Participants))).
		Floor().IntPart()
	initiatorShare := total - floorShare*int64(input.Participants-1)

	initiatorKind := input.InitiatorKind
	if !initiatorKind.IsValid() {
		initiatorKind = enums.ActorKindGuest
	}
	session := &models.SplitSession{
		ID:            uuid.New(),
		BusinessID:    input.BusinessID,
		InitiatorKind: initiatorKind,
		TotalAmount:   total,
		Status:        models.SplitSessionStatusOpen,
		OrderDraft:    input.Items,
	}

	for i := 0; i < input.Participants; i++ {
		share := types.SplitShare{
			ShareID: uuid.NewString(),
			Amount:  floorShare,
			Status:  types.SplitShareStatusUnpaid,
		}
		if i == 0 {
			share.ShareID = input.InitiatorActorID.String()
			share.Initiator = true
			share.Amount = initiatorShare
		}
		ref := shareRef(session.ID, share.ShareID)
		checkout, err := s.gateway.CreateCheckout(ctx, gateway.CheckoutRequest{
			MerchantOrderID: ref,
			AmountMinor:     share.Amount,
			RedirectURL:     input.RedirectURL,
			Note:            fmt.Sprintf("split share %d of %d", i+1, input.Participants),
		})
		if err != nil {
			return nil, err
		}
		share.GatewayOrderRef = checkout.GatewayOrderID
		session.Shares = append(session.Shares, share)
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create split session")
	}
	return session, nil
}

// HandleSharePaid flips one share to paid and, when it was the last unpaid
// share, finalizes the order. The compare-and-set on session status keeps
// two racing last-share events from both creating the order.
func (s *service) HandleSharePaid(ctx context.Context, gatewayOrderRef string) (*models.SplitSession, error) {
	session, err := s.sessions.FindByShareRef(ctx, gatewayOrderRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "split session not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup split session")
	}

	matched := false
	for i := range session.Shares {
		if session.Shares[i].GatewayOrderRef != gatewayOrderRef {
			continue
		}
		matched = true
		if session.Shares[i].Status == types.SplitShareStatusPaid {
			// Replayed event; nothing left to apply.
			return session, nil
		}
		session.Shares[i].Status = types.SplitShareStatusPaid
	}
	if !matched {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "share not found in session")
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save split session")
	}

	if !session.Shares.AllPaid() || session.Status != models.SplitSessionStatusOpen {
		return session, nil
	}
	return s.finalize(ctx, session)
}

func (s *service) finalize(ctx context.Context, session *models.SplitSession) (*models.SplitSession, error) {
	var initiator *types.SplitShare
	for i := range session.Shares {
		if session.Shares[i].Initiator {
			initiator = &session.Shares[i]
			break
		}
	}
	if initiator == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session has no initiator share")
	}
	actorID, err := uuid.Parse(initiator.ShareID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "initiator share id is not an actor id")
	}

	actorKind := session.InitiatorKind
	if !actorKind.IsValid() {
		actorKind = enums.ActorKindGuest
	}

	now := s.now()
	order := &models.Order{
		ID:           uuid.New(),
		BusinessID:   session.BusinessID,
		ActorID:      actorID,
		ActorKind:    actorKind,
		Status:       enums.OrderStatusPending,
		DeliveryType: enums.DeliveryTypeDineIn,
		Items:        session.OrderDraft,
		Subtotal:     session.OrderDraft.Total(),
		TotalAmount:  session.TotalAmount,
		PlacedAt:     now,
	}
	order.Tax = session.TotalAmount - order.Subtotal
	if order.Tax < 0 {
		order.Tax = 0
	}
	for _, share := range session.Shares {
		order.PaymentDetails = append(order.PaymentDetails, types.PaymentDetail{
			Method:         enums.PaymentMethodOnline,
			GatewayRef:     share.GatewayOrderRef,
			GatewayOrderID: share.GatewayOrderRef,
			Amount:         share.Amount,
			Status:         enums.PaymentStatusPaid,
			RecordedAt:     now,
		})
	}
	if _, err := orders.ApplyTransition(order, enums.OrderStatusConfirmed, enums.TransitionSourceWebhook, "split bill settled", now); err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		sessionRepo := s.sessions.WithTx(tx)
		won, err := sessionRepo.MarkFinalized(ctx, session.ID, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "finalize split session")
		}
		if !won {
			// The concurrent last-share event finalized first.
			return nil
		}
		if _, err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order from split session")
		}
		session.Status = models.SplitSessionStatusFinalized
		session.BaseOrderID = &order.ID
		if s.log != nil {
			logCtx := s.log.WithOrderID(ctx, order.ID.String())
			s.log.Info(logCtx, "split session finalized")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (s *service) Get(ctx context.Context, sessionID uuid.UUID) (*models.SplitSession, error) {
	if sessionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "split session not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load split session")
	}
	return session, nil
}
