package enums

import "fmt"

// ActorKind distinguishes registered users from lazily-created guest profiles.
type ActorKind string

const (
	ActorKindUser  ActorKind = "user"
	ActorKindGuest ActorKind = "guest"
)

var validActorKinds = []ActorKind{
	ActorKindUser,
	ActorKindGuest,
}

// String implements fmt.Stringer.
func (a ActorKind) String() string {
	return string(a)
}

// IsValid reports whether the value is a known ActorKind.
func (a ActorKind) IsValid() bool {
	for _, candidate := range validActorKinds {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseActorKind converts raw input into an ActorKind.
func ParseActorKind(value string) (ActorKind, error) {
	for _, candidate := range validActorKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor kind %q", value)
}

// TransitionSource identifies who proposed a status write. Webhook-sourced
// regressions are dropped silently; human-sourced ones surface a conflict.
type TransitionSource string

const (
	TransitionSourceWebhook TransitionSource = "webhook"
	TransitionSourceHuman   TransitionSource = "human"
)
