package event

import (
	"context"

	"github.com/xraph/cachehook/id"
)

// Store defines the persistence contract for outbound events.
type Store interface {
	// CreateEvent persists an event. Must be durable before returning.
	CreateEvent(ctx context.Context, evt *Event) error

	GetEvent(ctx context.Context, evtID id.ID) (*Event, error)

	// ListEvents returns events, optionally filtered by type or time range.
	ListEvents(ctx context.Context, opts ListOpts) ([]*Event, error)

	// ListEventsByWebhook returns the events produced for one webhook.
	ListEventsByWebhook(ctx context.Context, whID id.ID, opts ListOpts) ([]*Event, error)
}
