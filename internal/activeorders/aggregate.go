package activeorders

import (
	"github.com/google/uuid"

	"github.com/platterly/platterly-backend/pkg/db/models"
	"github.com/platterly/platterly-backend/pkg/enums"
	"github.com/platterly/platterly-backend/pkg/types"
)

// TabView is a dine-in tab rolled up across every order submitted from the
// same table session.
type TabView struct {
	TabID    string              `json:"tab_id"`
	Orders   []models.Order      `json:"orders"`
	Items    types.OrderItemList `json:"items"`
	Subtotal int64               `json:"subtotal"`
	Total    int64               `json:"total"`
}

// mergeByID deduplicates orders gathered through overlapping lookup keys.
// First occurrence wins; input order is preserved.
func mergeByID(batches ...[]models.Order) []models.Order {
	seen := make(map[uuid.UUID]struct{})
	var out []models.Order
	for _, batch := range batches {
		for _, o := range batch {
			if _, ok := seen[o.ID]; ok {
				continue
			}
			seen[o.ID] = struct{}{}
			out = append(out, o)
		}
	}
	return out
}

// filterOpen drops closed orders in memory. Tab views additionally drop
// picked_up regardless of delivery type since a collected dine-in course is
// no longer part of the open bill.
func filterOpen(orders []models.Order, forTab bool) []models.Order {
	var out []models.Order
	for _, o := range orders {
		switch o.Status {
		case enums.OrderStatusCancelled, enums.OrderStatusRejected:
			continue
		case enums.OrderStatusPickedUp:
			if forTab {
				continue
			}
		}
		if !forTab && o.Status.IsTerminal(o.DeliveryType) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// buildTabView sums item lists and amounts across the surviving orders.
func buildTabView(tabID string, orders []models.Order) *TabView {
	view := &TabView{TabID: tabID, Orders: orders}
	for _, o := range orders {
		view.Items = append(view.Items, o.Items...)
		view.Subtotal += o.Subtotal
		view.Total += o.TotalAmount
	}
	return view
}
