package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/platterly/platterly-backend/pkg/enums"
)

// SessionTokenPayload captures the data available when minting a JWT.
type SessionTokenPayload struct {
	ActorID   uuid.UUID
	ActorKind enums.ActorKind
	Phone     string
	JTI       string
}

// SessionTokenClaims represents the typed JWT issued to clients. The resolved
// actor id is carried instead of the raw phone wherever possible.
type SessionTokenClaims struct {
	ActorID   uuid.UUID       `json:"actor_id"`
	ActorKind enums.ActorKind `json:"actor_kind"`
	Phone     string          `json:"phone,omitempty"`
	jwt.RegisteredClaims
}
