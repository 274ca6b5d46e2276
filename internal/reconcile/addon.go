package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/platterly/platterly-backend/internal/identity"
	"github.com/platterly/platterly-backend/pkg/db/models"
	pkgerrors "github.com/platterly/platterly-backend/pkg/errors"
	"github.com/platterly/platterly-backend/pkg/gateway"
	"github.com/platterly/platterly-backend/pkg/types"
)

// AddonInput asks for extra items on an already-placed order. The caller is
// identified by session actor or by the order's capability reference.
type AddonInput struct {
	OrderID     uuid.UUID
	ActorID     uuid.UUID
	Ref         string
	Items       types.OrderItemList
	Tax         int64
	RedirectURL string
}

// AddonCheckout is the payment handle for a pending add-on. The items merge
// into the order only when the gateway reports this checkout completed.
type AddonCheckout struct {
	RequestID   uuid.UUID `json:"request_id"`
	GatewayRef  string    `json:"gateway_ref"`
	AmountMinor int64     `json:"amount"`
	RedirectURL string    `json:"redirect_url,omitempty"`
}

// RequestAddon records a pending add-on request and mints its namespaced
// gateway checkout. Nothing touches the order itself until the completed
// webhook arrives.
func (s *service) RequestAddon(ctx context.Context, input AddonInput) (*AddonCheckout, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "items required")
	}
	if input.Tax < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tax must not be negative")
	}
	subtotal := input.Items.Total()
	if subtotal <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "add-on total must be positive")
	}

	order, err := s.orders.FindByID(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	if err := authorizeAddon(order, input); err != nil {
		return nil, err
	}
	if order.Status.IsTerminal(order.DeliveryType) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is closed")
	}
	if !order.IsPaid() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order has no settled payment")
	}

	ref := AddonRef(uuid.NewString())
	amount := subtotal + input.Tax
	checkout, err := s.checkout.CreateCheckout(ctx, gateway.CheckoutRequest{
		MerchantOrderID: ref,
		AmountMinor:     amount,
		RedirectURL:     input.RedirectURL,
		Note:            fmt.Sprintf("add-on for order %s", order.ID),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create add-on checkout")
	}

	request := &models.AddonRequest{
		ID:         uuid.New(),
		OrderID:    order.ID,
		GatewayRef: ref,
		Items:      input.Items,
		Subtotal:   subtotal,
		Tax:        input.Tax,
		Status:     models.AddonRequestStatusPending,
	}
	if err := s.addons.Create(ctx, request); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create add-on request")
	}

	if s.log != nil {
		logCtx := s.log.WithOrderID(ctx, order.ID.String())
		s.log.Info(logCtx, "add-on checkout created")
	}
	return &AddonCheckout{
		RequestID:   request.ID,
		GatewayRef:  ref,
		AmountMinor: amount,
		RedirectURL: checkout.RedirectURL,
	}, nil
}

// authorizeAddon admits the order's own actor, by verified session or by
// capability reference. The denial does not reveal whether the order exists
// under a different actor.
func authorizeAddon(order *models.Order, input AddonInput) error {
	if input.ActorID != uuid.Nil && input.ActorID == order.ActorID {
		return nil
	}
	if input.Ref != "" {
		if actorID, err := identity.DecodeCapabilityRef(input.Ref); err == nil && actorID == order.ActorID {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to modify this order")
}
