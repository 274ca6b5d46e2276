package notify

import (
	"context"
	"encoding/json"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/platterly/platterly-backend/pkg/db/models"
	"github.com/platterly/platterly-backend/pkg/logger"
)

// messagePublisher is the slice of the Pub/Sub publisher the notifier uses.
type messagePublisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) *pubsub.PublishResult
}

// StatusEvent is the notification payload for an order status change.
type StatusEvent struct {
	OrderID    string    `json:"order_id"`
	BusinessID string    `json:"business_id"`
	ActorID    string    `json:"actor_id"`
	Status     string    `json:"status"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Notifier publishes order status changes to the notification topic.
// Publishing is fire-and-forget: failures are logged and never surfaced to
// the state transition that triggered them.
type Notifier struct {
	publisher messagePublisher
	log       *logger.Logger
	now       func() time.Time
}

// NewNotifier builds the notifier. A nil publisher disables publishing,
// which keeps local development working without Pub/Sub credentials.
func NewNotifier(publisher messagePublisher, log *logger.Logger) *Notifier {
	return &Notifier{
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

// OrderStatusChanged publishes one status-change event.
func (n *Notifier) OrderStatusChanged(ctx context.Context, order *models.Order) {
	if n == nil || n.publisher == nil || order == nil {
		return
	}

	event := StatusEvent{
		OrderID:    order.ID.String(),
		BusinessID: order.BusinessID.String(),
		ActorID:    order.ActorID.String(),
		Status:     order.Status.String(),
		RecordedAt: n.now(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		n.logError(ctx, order, err)
		return
	}

	result := n.publisher.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event":    "order.status_changed",
			"order_id": event.OrderID,
		},
	})

	go func() {
		if _, err := result.Get(context.WithoutCancel(ctx)); err != nil {
			n.logError(ctx, order, err)
		}
	}()
}

func (n *Notifier) logError(ctx context.Context, order *models.Order, err error) {
	if n.log == nil {
		return
	}
	logCtx := n.log.WithOrderID(ctx, order.ID.String())
	n.log.Error(logCtx, "status notification publish failed", err)
}
