package identity

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/platterly/platterly-backend/pkg/errors"
)

// noisePattern supplies the filler characters interleaved into an encoded
// reference. The pattern cycles, so decode only needs to know the stride.
const noisePattern = "kxzmqv"

const nonceLen = 4

const nonceAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// EncodeCapabilityRef turns a guest profile id into the shareable reference
// embedded in tracking links. The nonce is cosmetic: two encodings of the
// same id look unrelated but decode identically.
func EncodeCapabilityRef(guestID uuid.UUID) string {
	source := guestID.String()

	var b strings.Builder
	b.Grow(len(source) + len(source)/3 + nonceLen)
	noiseIdx := 0
	for i, r := range source {
		b.WriteRune(r)
		if (i+1)%3 == 0 {
			b.WriteByte(noisePattern[noiseIdx%len(noisePattern)])
			noiseIdx++
		}
	}

	reversed := reverseString(b.String())
	return randomNonce() + reversed
}

// DecodeCapabilityRef recovers the guest profile id from a reference. Any
// malformed input fails closed with a validation error; it never panics and
// never maps bad input onto a different valid id.
func DecodeCapabilityRef(ref string) (uuid.UUID, error) {
	if len(ref) <= nonceLen {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid reference")
	}
	reversed := reverseString(ref[nonceLen:])

	var b strings.Builder
	for i, r := range reversed {
		if (i+1)%4 == 0 {
			continue
		}
		b.WriteRune(r)
	}

	id, err := uuid.Parse(b.String())
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid reference")
	}
	return id, nil
}

func reverseString(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

func randomNonce() string {
	out := make([]byte, nonceLen)
	max := big.NewInt(int64(len(nonceAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			out[i] = nonceAlphabet[0]
			continue
		}
		out[i] = nonceAlphabet[n.Int64()]
	}
	return string(out)
}
