package delivery

import (
	"context"

	"github.com/xraph/cachehook/id"
)

// Store persists the outbound queue. A delivery is claimed by Dequeue and
// stays invisible to other pollers until UpdateDelivery records the outcome
// of the attempt; a claimed delivery still reads as pending.
type Store interface {
	// Enqueue adds a delivery. It becomes due at NextAttemptAt.
	Enqueue(ctx context.Context, d *Delivery) error

	// EnqueueBatch adds the fan-out of one event in a single write.
	EnqueueBatch(ctx context.Context, ds []*Delivery) error

	// Dequeue claims up to limit due pending deliveries, earliest
	// NextAttemptAt first. A claimed delivery is never handed to a second
	// caller until it is updated.
	Dequeue(ctx context.Context, limit int) ([]*Delivery, error)

	// UpdateDelivery records an attempt and releases the claim. Writing it
	// back as pending with a later NextAttemptAt reschedules it.
	UpdateDelivery(ctx context.Context, d *Delivery) error

	// GetDelivery returns a delivery by ID.
	GetDelivery(ctx context.Context, delID id.ID) (*Delivery, error)

	// ListByWebhook returns a webhook's deliveries by creation time, newest first.
	ListByWebhook(ctx context.Context, whID id.ID, opts ListOpts) ([]*Delivery, error)

	// ListByEvent returns the fan-out of one event.
	ListByEvent(ctx context.Context, evtID id.ID) ([]*Delivery, error)

	// CountPending counts queued deliveries, due or not. Backends that mark
	// claims in storage leave in-flight deliveries out of the count.
	CountPending(ctx context.Context) (int64, error)
}
