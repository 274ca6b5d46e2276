package enums

import "fmt"

// CourierStatus is the self-reported availability of a courier. no_signal is
// derived from location staleness at read time and is never persisted.
type CourierStatus string

const (
	CourierStatusAvailable  CourierStatus = "available"
	CourierStatusOnDelivery CourierStatus = "on_delivery"
	CourierStatusInactive   CourierStatus = "inactive"
	CourierStatusNoSignal   CourierStatus = "no_signal"
)

var validStoredCourierStatuses = []CourierStatus{
	CourierStatusAvailable,
	CourierStatusOnDelivery,
	CourierStatusInactive,
}

// String implements fmt.Stringer.
func (c CourierStatus) String() string {
	return string(c)
}

// IsValid reports whether the value may be stored on a courier record.
func (c CourierStatus) IsValid() bool {
	for _, candidate := range validStoredCourierStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCourierStatus converts raw input into a storable CourierStatus.
func ParseCourierStatus(value string) (CourierStatus, error) {
	for _, candidate := range validStoredCourierStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid courier status %q", value)
}
