package orders

import (
	"github.com/google/uuid"

	"github.com/platterly/platterly-backend/pkg/enums"
)

// StaffStatusInput is a restaurant-side status change.
type StaffStatusInput struct {
	OrderID    uuid.UUID
	BusinessID uuid.UUID
	Status     enums.OrderStatus
	Note       string
}

// CourierStatusInput is a courier-device status change.
type CourierStatusInput struct {
	OrderID   uuid.UUID
	CourierID uuid.UUID
	Status    enums.OrderStatus
	Note      string
}
