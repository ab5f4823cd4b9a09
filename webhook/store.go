package webhook

import (
	"context"

	"github.com/xraph/cachehook/id"
)

// Store defines the persistence contract for webhooks.
type Store interface {
	CreateWebhook(ctx context.Context, wh *Webhook) error

	GetWebhook(ctx context.Context, whID id.ID) (*Webhook, error)

	UpdateWebhook(ctx context.Context, wh *Webhook) error

	DeleteWebhook(ctx context.Context, whID id.ID) error

	// ListWebhooks returns webhooks ordered by creation time.
	ListWebhooks(ctx context.Context, opts ListOpts) ([]*Webhook, error)

	// SetWebhookEnabled enables or disables a webhook without deleting it.
	SetWebhookEnabled(ctx context.Context, whID id.ID, enabled bool) error
}
