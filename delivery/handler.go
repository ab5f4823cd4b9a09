package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/cachehook/event"
	"github.com/xraph/cachehook/id"
	"github.com/xraph/cachehook/internal/entity"
	"github.com/xraph/cachehook/observability"
	"github.com/xraph/cachehook/webhook"
)

// HandlerStore is what the Handler needs to record an outbound message.
type HandlerStore interface {
	CreateEvent(ctx context.Context, evt *event.Event) error
	Enqueue(ctx context.Context, d *Delivery) error
}

// Handler turns one (webhook, payload) pair into a persisted event and a
// pending delivery. The Engine picks the delivery up asynchronously.
type Handler struct {
	store       HandlerStore
	maxAttempts int
	metrics     *observability.Metrics
	logger      *slog.Logger
	now         func() time.Time
}

// NewHandler creates a Handler. maxAttempts below 1 is treated as 1.
func NewHandler(store HandlerStore, maxAttempts int, metrics *observability.Metrics, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Handler{
		store:       store,
		maxAttempts: maxAttempts,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// Handle persists the payload as an event addressed to wh and enqueues its
// first delivery attempt.
func (h *Handler) Handle(ctx context.Context, wh *webhook.Webhook, payload event.Payload) error {
	evt := &event.Event{
		Entity:    entity.New(),
		ID:        id.NewEventID(),
		Type:      wh.Event,
		WebhookID: wh.ID,
		Data:      payload,
	}
	if err := h.store.CreateEvent(ctx, evt); err != nil {
		return fmt.Errorf("persist event: %w", err)
	}

	d := &Delivery{
		Entity:        entity.New(),
		ID:            id.NewDeliveryID(),
		EventID:       evt.ID,
		WebhookID:     wh.ID,
		State:         StatePending,
		MaxAttempts:   h.maxAttempts,
		NextAttemptAt: h.now().UTC(),
	}
	if err := h.store.Enqueue(ctx, d); err != nil {
		return fmt.Errorf("enqueue delivery: %w", err)
	}
	h.metrics.DeliveryQueued()

	h.logger.DebugContext(ctx, "delivery enqueued",
		"event", evt.Type,
		"event_id", evt.ID,
		"webhook_id", wh.ID,
		"delivery_id", d.ID,
	)
	return nil
}
