package dlq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/cachehook/delivery"
	"github.com/xraph/cachehook/event"
	"github.com/xraph/cachehook/id"
	"github.com/xraph/cachehook/internal/entity"
	"github.com/xraph/cachehook/webhook"
)

// Service manages the dead letter queue.
type Service struct {
	store  Store
	logger *slog.Logger
}

var _ delivery.DLQPusher = (*Service)(nil)

// NewService creates a new DLQ service.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		logger: logger,
	}
}

// PushFailed creates a DLQ entry from a failed delivery.
func (svc *Service) PushFailed(ctx context.Context, d *delivery.Delivery, wh *webhook.Webhook, evt *event.Event, lastError string, lastStatusCode int) error {
	payload, err := json.Marshal(evt.Data)
	if err != nil {
		return fmt.Errorf("dlq: marshal payload: %w", err)
	}

	entry := &Entry{
		Entity:         entity.New(),
		ID:             id.NewDLQID(),
		DeliveryID:     d.ID,
		EventID:        d.EventID,
		WebhookID:      d.WebhookID,
		EventType:      evt.Type,
		URL:            wh.URL,
		Payload:        payload,
		Error:          lastError,
		AttemptCount:   d.AttemptCount,
		LastStatusCode: lastStatusCode,
		FailedAt:       time.Now().UTC(),
	}

	if err := svc.store.Push(ctx, entry); err != nil {
		return fmt.Errorf("dlq: push: %w", err)
	}
	svc.logger.InfoContext(ctx, "delivery dead-lettered",
		"dlq_id", entry.ID,
		"delivery_id", d.ID,
		"webhook_id", d.WebhookID,
		"event", evt.Type,
	)
	return nil
}

// List returns DLQ entries matching the given options.
func (svc *Service) List(ctx context.Context, opts ListOpts) ([]*Entry, error) {
	return svc.store.ListDLQ(ctx, opts)
}

// Get returns a DLQ entry by ID.
func (svc *Service) Get(ctx context.Context, dlqID id.ID) (*Entry, error) {
	return svc.store.GetDLQ(ctx, dlqID)
}

// Replay re-enqueues a single DLQ entry for redelivery.
func (svc *Service) Replay(ctx context.Context, dlqID id.ID) error {
	return svc.store.Replay(ctx, dlqID)
}

// ReplayBulk re-enqueues every entry that failed within [from, to] and has
// not been replayed yet.
func (svc *Service) ReplayBulk(ctx context.Context, from, to time.Time) (int64, error) {
	n, err := svc.store.ReplayBulk(ctx, from, to)
	if err != nil {
		return 0, err
	}
	svc.logger.InfoContext(ctx, "dlq bulk replay", "replayed", n, "from", from, "to", to)
	return n, nil
}

// Purge removes entries created before the given time.
func (svc *Service) Purge(ctx context.Context, before time.Time) (int64, error) {
	return svc.store.Purge(ctx, before)
}

// Count returns the total number of DLQ entries.
func (svc *Service) Count(ctx context.Context) (int64, error) {
	return svc.store.CountDLQ(ctx)
}
