package enums

import "fmt"

// BusinessKind selects the storage partition an order belongs to. The three
// kinds share one schema; the kind tag replaces per-handler collection-name
// branching.
type BusinessKind string

const (
	BusinessKindRestaurant   BusinessKind = "restaurant"
	BusinessKindShop         BusinessKind = "shop"
	BusinessKindStreetVendor BusinessKind = "street_vendor"
)

var validBusinessKinds = []BusinessKind{
	BusinessKindRestaurant,
	BusinessKindShop,
	BusinessKindStreetVendor,
}

// String implements fmt.Stringer.
func (b BusinessKind) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BusinessKind.
func (b BusinessKind) IsValid() bool {
	for _, candidate := range validBusinessKinds {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBusinessKind converts raw input into a BusinessKind.
func ParseBusinessKind(value string) (BusinessKind, error) {
	for _, candidate := range validBusinessKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid business kind %q", value)
}
