// Package webhook manages webhook subscriptions: a delivery target bound to
// exactly one event name.
package webhook

import (
	"github.com/xraph/cachehook/id"
	"github.com/xraph/cachehook/internal/entity"
)

// Webhook is a subscription to one dispatched event.
type Webhook struct {
	entity.Entity

	ID id.ID `json:"id"`

	// Name is a human-readable label.
	Name string `json:"name"`

	// Event is matched exactly against dispatched event names.
	Event string `json:"event"`

	// URL is the delivery target.
	URL string `json:"url"`

	// Secret is the HMAC signing secret. Never serialized.
	Secret string `json:"-"`

	// Headers are sent with every delivery.
	Headers map[string]string `json:"headers,omitempty"`

	// Filter is an optional CEL expression over `event` and `payload` that
	// must evaluate to true for the webhook to receive an event.
	Filter string `json:"filter,omitempty"`

	Enabled bool `json:"enabled"`

	// RateLimit is the maximum deliveries per second. 0 means unlimited.
	RateLimit int `json:"rate_limit"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// Matches reports whether w should receive eventName, ignoring Filter.
func (w *Webhook) Matches(eventName string) bool {
	return w.Enabled && w.Event == eventName
}
