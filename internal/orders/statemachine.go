package orders

import (
	"time"

	"github.com/platterly/platterly-backend/pkg/db/models"
	"github.com/platterly/platterly-backend/pkg/enums"
	pkgerrors "github.com/platterly/platterly-backend/pkg/errors"
	"github.com/platterly/platterly-backend/pkg/types"
)

// ApplyTransition proposes a status write against the order's state machine
// and mutates the order in place when the write is accepted.
//
// The returned bool reports whether the status actually changed. A regression
// proposed by a webhook is dropped silently (nil error, false) so the caller
// can still persist its other fields; the same regression from a human actor
// surfaces a state conflict. Payment confirmation must never regress
// fulfillment progress.
func ApplyTransition(order *models.Order, proposed enums.OrderStatus, source enums.TransitionSource, note string, now time.Time) (bool, error) {
	if order == nil {
		return false, pkgerrors.New(pkgerrors.CodeInternal, "order required")
	}
	if !proposed.IsValid() {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").
			WithDetails(map[string]any{"status": proposed})
	}

	current := order.Status

	if proposed == current {
		return false, nil
	}

	// Terminal states absorb every further write.
	if current.IsTerminal(order.DeliveryType) {
		if source == enums.TransitionSourceHuman {
			return false, pkgerrors.New(pkgerrors.CodeStateConflict, "order is closed").
				WithDetails(map[string]any{"current": current, "proposed": proposed})
		}
		return false, nil
	}

	// rejected/cancelled are reachable from any non-terminal state.
	if proposed != enums.OrderStatusRejected && proposed != enums.OrderStatusCancelled {
		if proposed.Rank() < current.Rank() {
			if source == enums.TransitionSourceHuman {
				return false, pkgerrors.New(pkgerrors.CodeStateConflict, "status would regress fulfillment").
					WithDetails(map[string]any{"current": current, "proposed": proposed})
			}
			return false, nil
		}
	}

	order.Status = proposed
	order.StatusHistory = append(order.StatusHistory, types.StatusChange{
		Status:     proposed,
		Source:     source,
		Note:       note,
		RecordedAt: now,
	})
	return true, nil
}
