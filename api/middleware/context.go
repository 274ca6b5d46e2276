package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/platterly/platterly-backend/pkg/enums"
)

type contextKey string

const (
	ctxActorID     contextKey = "actor_id"
	ctxActorKind   contextKey = "actor_kind"
	ctxBusinessID  contextKey = "business_id"
	ctxLegacyActor contextKey = "legacy_actor_id"
)

func ActorIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxActorID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

func ActorKindFromContext(ctx context.Context) enums.ActorKind {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxActorKind).(enums.ActorKind); ok {
		return v
	}
	return ""
}

func BusinessIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxBusinessID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

func LegacyActorIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxLegacyActor).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

// WithActor injects the resolved actor identity into the context.
func WithActor(ctx context.Context, actorID uuid.UUID, kind enums.ActorKind) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxActorID, actorID)
	return context.WithValue(ctx, ctxActorKind, kind)
}

// WithBusinessID injects the business scope for staff routes.
func WithBusinessID(ctx context.Context, businessID uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxBusinessID, businessID)
}

// WithLegacyActorID records an identity recovered from the legacy cookie.
func WithLegacyActorID(ctx context.Context, actorID uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxLegacyActor, actorID)
}
