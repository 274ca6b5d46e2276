package reconcile

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/platterly/platterly-backend/pkg/db/models"
	"github.com/platterly/platterly-backend/pkg/enums"
	pkgerrors "github.com/platterly/platterly-backend/pkg/errors"
	"github.com/platterly/platterly-backend/pkg/gateway"
)

// RefundType selects full or item-level refunds.
type RefundType string

const (
	RefundTypeFull    RefundType = "full"
	RefundTypePartial RefundType = "partial"
)

// RefundInput is an owner/admin refund request.
type RefundInput struct {
	OrderID uuid.UUID
	Type    RefundType
	ItemIDs []string
	Reason  string
	Notes   *string
}

// RefundLegReport describes one gateway refund attempt.
type RefundLegReport struct {
	PaymentRef string `json:"payment_ref"`
	Amount     int64  `json:"amount"`
	Succeeded  bool   `json:"succeeded"`
	Error      string `json:"error,omitempty"`
	RecordID   string `json:"record_id,omitempty"`
}

// RefundReport is the outcome of one logical refund action.
type RefundReport struct {
	OrderID      uuid.UUID          `json:"order_id"`
	Requested    int64              `json:"requested"`
	Refunded     int64              `json:"refunded"`
	RefundStatus enums.RefundStatus `json:"refund_status"`
	Legs         []RefundLegReport  `json:"legs"`
}

// refundableStatuses are the only order states an owner may refund from.
var refundableStatuses = map[enums.OrderStatus]struct{}{
	enums.OrderStatusDelivered: {},
	enums.OrderStatusPickedUp:  {},
	enums.OrderStatusCancelled: {},
}

// RequestRefund refunds an order against each qualifying original payment in
// turn. Requests beyond the remaining refundable amount are rejected before
// any gateway call. Gateway calls happen outside any transaction; one failed
// leg does not stop the loop, and the order is updated once after every leg
// has been attempted.
func (s *service) RequestRefund(ctx context.Context, input RefundInput) (*RefundReport, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Type != RefundTypeFull && input.Type != RefundTypePartial {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund type must be full or partial")
	}
	if input.Type == RefundTypePartial && len(input.ItemIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "partial refund requires item ids")
	}

	order, err := s.orders.FindByID(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	if err := s.checkEligibility(order); err != nil {
		s.metrics.IncRefundRequest("rejected")
		return nil, err
	}

	requested, err := s.requestedAmount(order, input)
	if err != nil {
		s.metrics.IncRefundRequest("rejected")
		return nil, err
	}
	if remaining := order.RemainingRefundable(); requested > remaining {
		s.metrics.IncRefundRequest("rejected")
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "refund exceeds remaining refundable amount").
			WithDetails(map[string]any{"requested": requested, "remaining": remaining})
	}
	if requested <= 0 {
		s.metrics.IncRefundRequest("noop")
		return &RefundReport{
			OrderID:      order.ID,
			RefundStatus: order.RefundStatus,
		}, nil
	}

	priorRecords, err := s.refunds.ListByOrder(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list refund records")
	}
	refundedByPayment := make(map[string]int64, len(priorRecords))
	for _, record := range priorRecords {
		if record.Status != enums.RefundRecordStatusFailed {
			refundedByPayment[record.PaymentRef] += record.Amount
		}
	}

	report := &RefundReport{OrderID: order.ID, Requested: requested}
	remaining := requested
	var newRecords []models.RefundRecord

	for _, payment := range order.PaymentDetails.OnlinePaid() {
		if remaining <= 0 {
			break
		}
		paymentRemaining := payment.Amount - refundedByPayment[payment.GatewayRef]
		if paymentRemaining <= 0 {
			continue
		}
		legAmount := remaining
		if legAmount > paymentRemaining {
			legAmount = paymentRemaining
		}

		record := models.RefundRecord{
			ID:         uuid.New(),
			OrderID:    order.ID,
			PaymentRef: payment.GatewayRef,
			Amount:     legAmount,
			Reason:     input.Reason,
			Notes:      input.Notes,
		}

		result, err := s.gateway.Refund(ctx, gateway.RefundRequest{
			MerchantRefundID:        merchantRefundID(record.ID),
			OriginalMerchantOrderID: payment.GatewayRef,
			AmountMinor:             legAmount,
		})
		leg := RefundLegReport{PaymentRef: payment.GatewayRef, Amount: legAmount}
		if err != nil {
			leg.Error = err.Error()
			report.Legs = append(report.Legs, leg)
			s.metrics.IncRefundLeg("failed")
			if s.log != nil {
				logCtx := s.log.WithOrderID(ctx, order.ID.String())
				s.log.Error(logCtx, "refund leg failed", err)
			}
			continue
		}

		record.GatewayRefundRef = result.GatewayRefundID
		record.Status = enums.RefundRecordStatusPending
		if result.State == "COMPLETED" {
			record.Status = enums.RefundRecordStatusCompleted
		}
		leg.Succeeded = true
		leg.RecordID = record.ID.String()
		report.Legs = append(report.Legs, leg)
		newRecords = append(newRecords, record)
		remaining -= legAmount
		report.Refunded += legAmount
		s.metrics.IncRefundLeg("succeeded")
	}

	if report.Refunded == 0 {
		s.metrics.IncRefundRequest("failed")
		report.RefundStatus = order.RefundStatus
		return report, nil
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orders.WithTx(tx)
		refundRepo := s.refunds.WithTx(tx)

		// Re-read: a concurrent writer may have moved refund state while
		// the gateway calls were in flight.
		current, err := orderRepo.FindByID(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}

		for i := range newRecords {
			if err := refundRepo.Create(ctx, &newRecords[i]); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create refund record")
			}
			current.RefundIDs = append(current.RefundIDs, newRecords[i].ID)
		}

		current.RefundAmount += report.Refunded
		if current.RefundAmount > current.TotalAmount {
			current.RefundAmount = current.TotalAmount
		}
		if current.RefundAmount >= current.TotalAmount {
			current.RefundStatus = enums.RefundStatusCompleted
		} else {
			current.RefundStatus = enums.RefundStatusPartial
		}
		if input.Type == RefundTypePartial {
			current.RefundedItems = appendMissing(current.RefundedItems, input.ItemIDs)
		}

		if err := orderRepo.Save(ctx, current); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save order")
		}
		report.RefundStatus = current.RefundStatus
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncRefundRequest("succeeded")
	return report, nil
}

func (s *service) checkEligibility(order *models.Order) error {
	if _, ok := refundableStatuses[order.Status]; !ok {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not in a refundable state").
			WithDetails(map[string]any{"status": order.Status})
	}
	if s.now().Sub(order.PlacedAt) > s.refundWindow {
		return pkgerrors.New(pkgerrors.CodeValidation, "refund window has passed")
	}
	if len(order.PaymentDetails.OnlinePaid()) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "no online payment to refund")
	}
	return nil
}

// requestedAmount computes the refund target: everything paid online for a
// full refund, or the selected items' totals plus their proportional tax
// share for a partial one.
func (s *service) requestedAmount(order *models.Order, input RefundInput) (int64, error) {
	if input.Type == RefundTypeFull {
		var total int64
		for _, payment := range order.PaymentDetails.OnlinePaid() {
			total += payment.Amount
		}
		return total, nil
	}

	selected := make(map[string]struct{}, len(input.ItemIDs))
	for _, id := range input.ItemIDs {
		selected[id] = struct{}{}
	}

	var itemsTotal int64
	matched := 0
	for _, item := range order.Items {
		if _, ok := selected[item.ItemID]; ok {
			itemsTotal += item.LineTotal
			matched++
		}
	}
	if matched == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "no matching items on order")
	}

	if order.Subtotal <= 0 || order.Tax <= 0 {
		return itemsTotal, nil
	}
	taxShare := decimal.NewFromInt(order.Tax).
		Mul(decimal.NewFromInt(itemsTotal)).
		Div(decimal.NewFromInt(order.Subtotal)).
		Round(0).IntPart()
	return itemsTotal + taxShare, nil
}

func appendMissing(existing []string, add []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, v := range existing {
		seen[v] = struct{}{}
	}
	for _, v := range add {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		existing = append(existing, v)
	}
	return existing
}
