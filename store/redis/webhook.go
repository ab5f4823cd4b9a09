package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/cachehook"
	"github.com/xraph/cachehook/id"
	"github.com/xraph/cachehook/internal/entity"
	"github.com/xraph/cachehook/webhook"
)

// webhookModel is the JSON representation stored in Redis. Unlike the
// public type it carries the secret.
type webhookModel struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Event     string            `json:"event"`
	URL       string            `json:"url"`
	Secret    string            `json:"secret"`
	Headers   map[string]string `json:"headers,omitempty"`
	Filter    string            `json:"filter,omitempty"`
	Enabled   bool              `json:"enabled"`
	RateLimit int               `json:"rate_limit"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func toWebhookModel(wh *webhook.Webhook) *webhookModel {
	return &webhookModel{
		ID:        wh.ID.String(),
		Name:      wh.Name,
		Event:     wh.Event,
		URL:       wh.URL,
		Secret:    wh.Secret,
		Headers:   wh.Headers,
		Filter:    wh.Filter,
		Enabled:   wh.Enabled,
		RateLimit: wh.RateLimit,
		Metadata:  wh.Metadata,
		CreatedAt: wh.CreatedAt,
		UpdatedAt: wh.UpdatedAt,
	}
}

func fromWebhookModel(m *webhookModel) (*webhook.Webhook, error) {
	whID, err := id.ParseWebhookID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse webhook ID %q: %w", m.ID, err)
	}
	return &webhook.Webhook{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:        whID,
		Name:      m.Name,
		Event:     m.Event,
		URL:       m.URL,
		Secret:    m.Secret,
		Headers:   m.Headers,
		Filter:    m.Filter,
		Enabled:   m.Enabled,
		RateLimit: m.RateLimit,
		Metadata:  m.Metadata,
	}, nil
}

func (s *Store) CreateWebhook(ctx context.Context, wh *webhook.Webhook) error {
	m := toWebhookModel(wh)

	if err := s.setEntity(ctx, entityKey(prefixWebhook, m.ID), m); err != nil {
		return fmt.Errorf("cachehook/redis: create webhook: %w", err)
	}

	score := scoreFromTime(m.CreatedAt)
	pipe := s.rdb.Pipeline()
	pipe.ZAdd(ctx, zWebhookAll, goredis.Z{Score: score, Member: m.ID})
	pipe.ZAdd(ctx, zWebhookEvent+m.Event, goredis.Z{Score: score, Member: m.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cachehook/redis: create webhook indexes: %w", err)
	}
	return nil
}

func (s *Store) GetWebhook(ctx context.Context, whID id.ID) (*webhook.Webhook, error) {
	m, err := s.getWebhookModel(ctx, whID.String())
	if err != nil {
		return nil, err
	}
	return fromWebhookModel(m)
}

func (s *Store) getWebhookModel(ctx context.Context, whID string) (*webhookModel, error) {
	var m webhookModel
	if err := s.getEntity(ctx, entityKey(prefixWebhook, whID), &m); err != nil {
		if isNotFound(err) {
			return nil, cachehook.ErrWebhookNotFound
		}
		return nil, fmt.Errorf("cachehook/redis: get webhook: %w", err)
	}
	return &m, nil
}

func (s *Store) UpdateWebhook(ctx context.Context, wh *webhook.Webhook) error {
	existing, err := s.getWebhookModel(ctx, wh.ID.String())
	if err != nil {
		return err
	}

	m := toWebhookModel(wh)
	m.UpdatedAt = now()

	if err := s.setEntity(ctx, entityKey(prefixWebhook, m.ID), m); err != nil {
		return fmt.Errorf("cachehook/redis: update webhook: %w", err)
	}

	if existing.Event != m.Event {
		pipe := s.rdb.Pipeline()
		pipe.ZRem(ctx, zWebhookEvent+existing.Event, m.ID)
		pipe.ZAdd(ctx, zWebhookEvent+m.Event, goredis.Z{Score: scoreFromTime(m.CreatedAt), Member: m.ID})
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("cachehook/redis: update webhook indexes: %w", err)
		}
	}
	return nil
}

func (s *Store) DeleteWebhook(ctx context.Context, whID id.ID) error {
	m, err := s.getWebhookModel(ctx, whID.String())
	if err != nil {
		return err
	}

	if err := s.kv.Delete(ctx, entityKey(prefixWebhook, m.ID)); err != nil {
		return fmt.Errorf("cachehook/redis: delete webhook: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.ZRem(ctx, zWebhookAll, m.ID)
	pipe.ZRem(ctx, zWebhookEvent+m.Event, m.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cachehook/redis: delete webhook indexes: %w", err)
	}
	return nil
}

func (s *Store) ListWebhooks(ctx context.Context, opts webhook.ListOpts) ([]*webhook.Webhook, error) {
	zKey := zWebhookAll
	if opts.Event != "" {
		zKey = zWebhookEvent + opts.Event
	}

	ids, err := s.rdb.ZRange(ctx, zKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("cachehook/redis: list webhooks: %w", err)
	}

	result := make([]*webhook.Webhook, 0, len(ids))
	for _, whID := range ids {
		var m webhookModel
		if err := s.getEntity(ctx, entityKey(prefixWebhook, whID), &m); err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		if opts.Enabled != nil && m.Enabled != *opts.Enabled {
			continue
		}
		wh, err := fromWebhookModel(&m)
		if err != nil {
			return nil, err
		}
		result = append(result, wh)
	}

	return applyPagination(result, opts.Offset, opts.Limit), nil
}

func (s *Store) SetWebhookEnabled(ctx context.Context, whID id.ID, enabled bool) error {
	m, err := s.getWebhookModel(ctx, whID.String())
	if err != nil {
		return err
	}

	m.Enabled = enabled
	m.UpdatedAt = now()

	if err := s.setEntity(ctx, entityKey(prefixWebhook, m.ID), m); err != nil {
		return fmt.Errorf("cachehook/redis: set enabled: %w", err)
	}
	return nil
}
