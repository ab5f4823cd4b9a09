package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/xraph/cachehook"
	"github.com/xraph/cachehook/id"
	"github.com/xraph/cachehook/webhook"
)

// CreateWebhook persists a new webhook.
func (s *Store) CreateWebhook(ctx context.Context, wh *webhook.Webhook) error {
	_, err := s.mdb.NewInsert(toWebhookModel(wh)).Exec(ctx)
	if err != nil {
		return fmt.Errorf("cachehook/mongo: create webhook: %w", err)
	}

	return nil
}

// GetWebhook returns a webhook by ID.
func (s *Store) GetWebhook(ctx context.Context, whID id.ID) (*webhook.Webhook, error) {
	var m webhookModel

	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": whID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, cachehook.ErrWebhookNotFound
		}

		return nil, fmt.Errorf("cachehook/mongo: get webhook: %w", err)
	}

	return fromWebhookModel(&m)
}

// UpdateWebhook modifies an existing webhook.
func (s *Store) UpdateWebhook(ctx context.Context, wh *webhook.Webhook) error {
	m := toWebhookModel(wh)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("cachehook/mongo: update webhook: %w", err)
	}

	if res.MatchedCount() == 0 {
		return cachehook.ErrWebhookNotFound
	}

	return nil
}

// DeleteWebhook removes a webhook.
func (s *Store) DeleteWebhook(ctx context.Context, whID id.ID) error {
	res, err := s.mdb.NewDelete((*webhookModel)(nil)).
		Filter(bson.M{"_id": whID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("cachehook/mongo: delete webhook: %w", err)
	}

	if res.DeletedCount() == 0 {
		return cachehook.ErrWebhookNotFound
	}

	return nil
}

// ListWebhooks returns webhooks oldest first, optionally filtered.
func (s *Store) ListWebhooks(ctx context.Context, opts webhook.ListOpts) ([]*webhook.Webhook, error) {
	var models []webhookModel

	filter := bson.M{}
	if opts.Event != "" {
		filter["event"] = opts.Event
	}

	if opts.Enabled != nil {
		filter["enabled"] = *opts.Enabled
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}

	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("cachehook/mongo: list webhooks: %w", err)
	}

	result := make([]*webhook.Webhook, 0, len(models))

	for i := range models {
		wh, err := fromWebhookModel(&models[i])
		if err != nil {
			return nil, err
		}

		result = append(result, wh)
	}

	return result, nil
}

// SetWebhookEnabled enables or disables a webhook.
func (s *Store) SetWebhookEnabled(ctx context.Context, whID id.ID, enabled bool) error {
	res, err := s.mdb.NewUpdate((*webhookModel)(nil)).
		Filter(bson.M{"_id": whID.String()}).
		Set("enabled", enabled).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("cachehook/mongo: set enabled: %w", err)
	}

	if res.MatchedCount() == 0 {
		return cachehook.ErrWebhookNotFound
	}

	return nil
}
