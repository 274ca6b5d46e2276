package webhooks

import (
	"context"
	"time"

	pkgredis "github.com/platterly/platterly-backend/pkg/redis"
)

const (
	guardScope = "gateway-webhook"
	guardTTL   = 48 * time.Hour
)

// EventGuard deduplicates webhook deliveries through redis SetNX. A mark is
// removed again when handling fails so the gateway's retry can land.
type EventGuard struct {
	store pkgredis.IdempotencyStore
}

// NewEventGuard builds the guard on the shared redis client.
func NewEventGuard(store pkgredis.IdempotencyStore) *EventGuard {
	return &EventGuard{store: store}
}

// CheckAndMark returns true when the event was seen before.
func (g *EventGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	key := g.store.IdempotencyKey(guardScope, eventID)
	stored, err := g.store.SetNX(ctx, key, "1", guardTTL)
	if err != nil {
		return false, err
	}
	return !stored, nil
}

// Delete drops the mark for one event.
func (g *EventGuard) Delete(ctx context.Context, eventID string) error {
	return g.store.Del(ctx, g.store.IdempotencyKey(guardScope, eventID))
}
