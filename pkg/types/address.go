package types

// Address is a delivery address stored as jsonb on guest and user profiles.
type Address struct {
	Label      string  `json:"label,omitempty"`
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	PostalCode string  `json:"postal_code"`
	Lat        float64 `json:"lat,omitempty"`
	Lng        float64 `json:"lng,omitempty"`
}

// AddressList is the jsonb column shape for saved addresses.
type AddressList []Address

// MergeInto appends addresses missing from dst, deduplicating on line1+postal
// code so a guest migration never doubles up a saved address.
func (l AddressList) MergeInto(dst AddressList) AddressList {
	seen := make(map[string]struct{}, len(dst))
	for _, a := range dst {
		seen[a.Line1+"|"+a.PostalCode] = struct{}{}
	}
	for _, a := range l {
		key := a.Line1 + "|" + a.PostalCode
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		dst = append(dst, a)
	}
	return dst
}
