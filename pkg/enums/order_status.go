package enums

import "fmt"

// OrderStatus tracks the fulfillment lifecycle of an order.
type OrderStatus string

const (
	OrderStatusPending              OrderStatus = "pending"
	OrderStatusConfirmed            OrderStatus = "confirmed"
	OrderStatusPreparing            OrderStatus = "preparing"
	OrderStatusDispatched           OrderStatus = "dispatched"
	OrderStatusReadyForPickup       OrderStatus = "ready_for_pickup"
	OrderStatusReachedRestaurant    OrderStatus = "reached_restaurant"
	OrderStatusPickedUp             OrderStatus = "picked_up"
	OrderStatusOnTheWay             OrderStatus = "on_the_way"
	OrderStatusDeliveryAttempted    OrderStatus = "delivery_attempted"
	OrderStatusReturnedToRestaurant OrderStatus = "returned_to_restaurant"
	OrderStatusDelivered            OrderStatus = "delivered"
	OrderStatusRejected             OrderStatus = "rejected"
	OrderStatusCancelled            OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusDispatched,
	OrderStatusReadyForPickup,
	OrderStatusReachedRestaurant,
	OrderStatusPickedUp,
	OrderStatusOnTheWay,
	OrderStatusDeliveryAttempted,
	OrderStatusReturnedToRestaurant,
	OrderStatusDelivered,
	OrderStatusRejected,
	OrderStatusCancelled,
}

// orderStatusRanks defines the forward-only ordering. Statuses sharing a rank
// (dispatched / ready_for_pickup) are alternative branches, not regressions.
var orderStatusRanks = map[OrderStatus]int{
	OrderStatusPending:              1,
	OrderStatusConfirmed:            2,
	OrderStatusPreparing:            3,
	OrderStatusDispatched:           4,
	OrderStatusReadyForPickup:       4,
	OrderStatusReachedRestaurant:    5,
	OrderStatusPickedUp:             6,
	OrderStatusOnTheWay:             7,
	OrderStatusDeliveryAttempted:    8,
	OrderStatusReturnedToRestaurant: 9,
	OrderStatusDelivered:            10,
	OrderStatusRejected:             11,
	OrderStatusCancelled:            11,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// Rank returns the position of the status in the forward-only ordering.
// Unknown statuses rank at zero so any valid status out-ranks them.
func (o OrderStatus) Rank() int {
	return orderStatusRanks[o]
}

// IsTerminal reports whether the status absorbs further writes for the given
// delivery type. picked_up terminates pickup orders but is an intermediate
// courier stage for delivery orders.
func (o OrderStatus) IsTerminal(deliveryType DeliveryType) bool {
	switch o {
	case OrderStatusDelivered, OrderStatusRejected, OrderStatusCancelled:
		return true
	case OrderStatusPickedUp:
		return deliveryType == DeliveryTypePickup
	default:
		return false
	}
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
