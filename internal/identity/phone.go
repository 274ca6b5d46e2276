package identity

import "strings"

// CanonicalPhone reduces a dialable number to its last ten digits, which is
// the lookup key for users and guest profiles. Country-code prefixes and
// formatting characters are absorbed here so "+91 98765 43210" and
// "9876543210" resolve to the same actor.
func CanonicalPhone(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) > 10 {
		return digits[len(digits)-10:]
	}
	return digits
}
