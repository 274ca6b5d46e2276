package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/platterly/platterly-backend/internal/orders"
	"github.com/platterly/platterly-backend/pkg/db/models"
	"github.com/platterly/platterly-backend/pkg/enums"
	pkgerrors "github.com/platterly/platterly-backend/pkg/errors"
	"github.com/platterly/platterly-backend/pkg/logger"
	"github.com/platterly/platterly-backend/pkg/metrics"
	"github.com/platterly/platterly-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service applies gateway events and owner refund requests to orders,
// exactly once in effect.
type Service interface {
	HandleEvent(ctx context.Context, event GatewayEvent) error
	RequestAddon(ctx context.Context, input AddonInput) (*AddonCheckout, error)
	RequestRefund(ctx context.Context, input RefundInput) (*RefundReport, error)
}

type service struct {
	orders       orders.Repository
	addons       AddonRequestRepository
	refunds      RefundRecordRepository
	gateway      RefundGateway
	checkout     CheckoutGateway
	tx           txRunner
	notify       orders.StatusNotifier
	metrics      *metrics.ReconcileMetrics
	log          *logger.Logger
	refundWindow time.Duration
	now          func() time.Time
}

// ServiceParams collects the reconciliation dependencies.
type ServiceParams struct {
	Orders       orders.Repository
	Addons       AddonRequestRepository
	Refunds      RefundRecordRepository
	Gateway      RefundGateway
	Checkout     CheckoutGateway
	Tx           txRunner
	Notifier     orders.StatusNotifier
	Metrics      *metrics.ReconcileMetrics
	Log          *logger.Logger
	RefundWindow time.Duration
	Now          func() time.Time
}

// NewService builds the reconciliation service.
func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Addons == nil {
		return nil, fmt.Errorf("addon request repository required")
	}
	if params.Refunds == nil {
		return nil, fmt.Errorf("refund record repository required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("refund gateway required")
	}
	if params.Checkout == nil {
		return nil, fmt.Errorf("checkout gateway required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.RefundWindow <= 0 {
		params.RefundWindow = 7 * 24 * time.Hour
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		orders:       params.Orders,
		addons:       params.Addons,
		refunds:      params.Refunds,
		gateway:      params.Gateway,
		checkout:     params.Checkout,
		tx:           params.Tx,
		notify:       params.Notifier,
		metrics:      params.Metrics,
		log:          params.Log,
		refundWindow: params.RefundWindow,
		now:          now,
	}, nil
}

// HandleEvent applies one gateway event. Unknown orders are logged and
// acknowledged so the gateway does not retry forever.
func (s *service) HandleEvent(ctx context.Context, event GatewayEvent) error {
	switch event.Event {
	case EventCheckoutCompleted:
		if IsAddonRef(event.Payload.MerchantOrderID) {
			return s.handleAddonCompleted(ctx, event)
		}
		return s.handleCheckoutCompleted(ctx, event)
	case EventCheckoutFailed:
		return s.handleCheckoutFailed(ctx, event)
	case EventRefundCompleted:
		return s.handleRefundSettled(ctx, event, true)
	case EventRefundFailed:
		return s.handleRefundSettled(ctx, event, false)
	default:
		// Ack: this system will never handle the kind, and a non-2xx only
		// invites gateway retries.
		s.dropEvent(ctx, event, "unknown gateway event")
		return nil
	}
}

func (s *service) handleCheckoutCompleted(ctx context.Context, event GatewayEvent) error {
	orderID, err := uuid.Parse(event.Payload.MerchantOrderID)
	if err != nil {
		s.dropEvent(ctx, event, "malformed merchant order id")
		return nil
	}

	var updated *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				s.dropEvent(ctx, event, "order not found")
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		if order.PaymentDetails.HasGatewayRef(event.Payload.GatewayOrderID) {
			s.metrics.IncWebhookEvent(event.Event, "replay")
			return nil
		}

		order.PaymentDetails = append(order.PaymentDetails, types.PaymentDetail{
			Method:         enums.PaymentMethodOnline,
			GatewayRef:     event.Payload.GatewayOrderID,
			GatewayOrderID: event.Payload.GatewayOrderID,
			Amount:         event.Payload.AmountMinor,
			Status:         enums.PaymentStatusPaid,
			RecordedAt:     s.now(),
		})

		// The guard decides whether confirmed is still a forward move; a
		// late webhook keeps whatever stage fulfillment already reached.
		if _, err := orders.ApplyTransition(order, enums.OrderStatusConfirmed, enums.TransitionSourceWebhook, "payment confirmed", s.now()); err != nil {
			return err
		}

		if err := repo.Save(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save order")
		}
		updated = order
		return nil
	})
	if err != nil {
		return err
	}

	if updated != nil {
		s.metrics.IncWebhookEvent(event.Event, "applied")
		if s.notify != nil {
			s.notify.OrderStatusChanged(ctx, updated)
		}
	}
	return nil
}

func (s *service) handleCheckoutFailed(ctx context.Context, event GatewayEvent) error {
	orderID, err := uuid.Parse(event.Payload.MerchantOrderID)
	if err != nil {
		s.dropEvent(ctx, event, "malformed merchant order id")
		return nil
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				s.dropEvent(ctx, event, "order not found")
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		// A failure after a recorded success is a stale duplicate.
		if order.PaymentDetails.HasGatewayRef(event.Payload.GatewayOrderID) {
			s.metrics.IncWebhookEvent(event.Event, "replay")
			return nil
		}
		for _, d := range order.PaymentDetails {
			if d.GatewayRef == event.Payload.GatewayOrderID && d.Status == enums.PaymentStatusFailed {
				s.metrics.IncWebhookEvent(event.Event, "replay")
				return nil
			}
		}

		order.PaymentDetails = append(order.PaymentDetails, types.PaymentDetail{
			Method:         enums.PaymentMethodOnline,
			GatewayRef:     event.Payload.GatewayOrderID,
			GatewayOrderID: event.Payload.GatewayOrderID,
			Amount:         event.Payload.AmountMinor,
			Status:         enums.PaymentStatusFailed,
			RecordedAt:     s.now(),
		})
		if err := repo.Save(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save order")
		}
		s.metrics.IncWebhookEvent(event.Event, "applied")
		return nil
	})
}

// handleAddonCompleted merges a paid add-on into its order: items stamped
// and appended, totals recomputed as sums, the pending request closed.
func (s *service) handleAddonCompleted(ctx context.Context, event GatewayEvent) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		addonRepo := s.addons.WithTx(tx)
		request, err := addonRepo.FindByGatewayRef(ctx, event.Payload.MerchantOrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				s.dropEvent(ctx, event, "addon request not found")
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load addon request")
		}
		if request.Status == models.AddonRequestStatusCompleted {
			s.metrics.IncWebhookEvent(event.Event, "replay")
			return nil
		}

		orderRepo := s.orders.WithTx(tx)
		order, err := orderRepo.FindByID(ctx, request.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				s.dropEvent(ctx, event, "addon order not found")
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		now := s.now()
		for i := range order.Items {
			if order.Items[i].AddedAt == nil {
				placed := order.PlacedAt
				order.Items[i].AddedAt = &placed
			}
		}
		for _, item := range request.Items {
			item.AddedAt = &now
			order.Items = append(order.Items, item)
		}

		order.Subtotal = order.Items.Total()
		order.Tax += request.Tax
		order.TotalAmount = order.Subtotal + order.Tax +
			order.DeliveryFee + order.PackagingFee + order.PlatformFee +
			order.ConvenienceFee + order.ServiceFee - order.Discount

		order.PaymentDetails = append(order.PaymentDetails, types.PaymentDetail{
			Method:         enums.PaymentMethodOnline,
			GatewayRef:     event.Payload.GatewayOrderID,
			GatewayOrderID: event.Payload.GatewayOrderID,
			Amount:         event.Payload.AmountMinor,
			Status:         enums.PaymentStatusPaid,
			RecordedAt:     now,
		})
		order.StatusHistory = append(order.StatusHistory, types.StatusChange{
			Status:     order.Status,
			Source:     enums.TransitionSourceWebhook,
			Note:       fmt.Sprintf("add-on paid: %d item(s)", len(request.Items)),
			RecordedAt: now,
		})

		if err := orderRepo.Save(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save order")
		}

		request.Status = models.AddonRequestStatusCompleted
		if err := addonRepo.Save(ctx, request); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close addon request")
		}
		s.metrics.IncWebhookEvent(event.Event, "applied")
		return nil
	})
}

// handleRefundSettled confirms or denies one earlier refund leg. A denial
// returns the leg's amount to the order's refundable pool exactly once.
func (s *service) handleRefundSettled(ctx context.Context, event GatewayEvent, completed bool) error {
	ref := event.Payload.GatewayRefundID
	if ref == "" {
		s.dropEvent(ctx, event, "missing refund reference")
		return nil
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		refundRepo := s.refunds.WithTx(tx)
		record, err := refundRepo.FindByGatewayRefundRef(ctx, ref)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				s.dropEvent(ctx, event, "refund record not found")
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load refund record")
		}

		if completed {
			if record.Status == enums.RefundRecordStatusCompleted {
				s.metrics.IncWebhookEvent(event.Event, "replay")
				return nil
			}
			record.Status = enums.RefundRecordStatusCompleted
			if err := refundRepo.Save(ctx, record); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save refund record")
			}
			s.metrics.IncWebhookEvent(event.Event, "applied")
			return nil
		}

		if record.Status == enums.RefundRecordStatusFailed {
			s.metrics.IncWebhookEvent(event.Event, "replay")
			return nil
		}
		previous := record.Status
		record.Status = enums.RefundRecordStatusFailed
		if err := refundRepo.Save(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save refund record")
		}

		// The leg was counted into the cumulative total when it was issued;
		// a denial gives that amount back.
		if previous == enums.RefundRecordStatusCompleted || previous == enums.RefundRecordStatusPending {
			orderRepo := s.orders.WithTx(tx)
			order, err := orderRepo.FindByID(ctx, record.OrderID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					s.dropEvent(ctx, event, "refund order not found")
					return nil
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
			}
			order.RefundAmount -= record.Amount
			if order.RefundAmount < 0 {
				order.RefundAmount = 0
			}
			switch {
			case order.RefundAmount == 0:
				order.RefundStatus = enums.RefundStatusNone
			case order.RefundAmount < order.TotalAmount:
				order.RefundStatus = enums.RefundStatusPartial
			}
			if err := orderRepo.Save(ctx, order); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save order")
			}
		}
		s.metrics.IncWebhookEvent(event.Event, "applied")
		return nil
	})
}

func (s *service) dropEvent(ctx context.Context, event GatewayEvent, reason string) {
	s.metrics.IncWebhookEvent(event.Event, "dropped")
	if s.log == nil {
		return
	}
	logCtx := s.log.WithFields(ctx, map[string]any{
		"event":             event.Event,
		"merchant_order_id": event.Payload.MerchantOrderID,
		"reason":            reason,
	})
	s.log.Warn(logCtx, "gateway event dropped")
}

// merchantRefundID builds the reference the gateway echoes back on refund
// webhooks.
func merchantRefundID(recordID uuid.UUID) string {
	return "RF-" + strings.ToUpper(strings.ReplaceAll(recordID.String(), "-", ""))[:20]
}
