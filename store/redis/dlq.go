package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/cachehook"
	"github.com/xraph/cachehook/delivery"
	"github.com/xraph/cachehook/dlq"
	"github.com/xraph/cachehook/id"
	"github.com/xraph/cachehook/internal/entity"
)

// dlqEntryModel is the JSON representation stored in Redis.
type dlqEntryModel struct {
	ID             string          `json:"id"`
	DeliveryID     string          `json:"delivery_id"`
	EventID        string          `json:"event_id"`
	WebhookID      string          `json:"webhook_id"`
	EventType      string          `json:"event_type"`
	URL            string          `json:"url"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	Error          string          `json:"error"`
	AttemptCount   int             `json:"attempt_count"`
	LastStatusCode int             `json:"last_status_code"`
	ReplayedAt     *time.Time      `json:"replayed_at,omitempty"`
	FailedAt       time.Time       `json:"failed_at"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func toDLQEntryModel(e *dlq.Entry) *dlqEntryModel {
	return &dlqEntryModel{
		ID:             e.ID.String(),
		DeliveryID:     e.DeliveryID.String(),
		EventID:        e.EventID.String(),
		WebhookID:      e.WebhookID.String(),
		EventType:      e.EventType,
		URL:            e.URL,
		Payload:        e.Payload,
		Error:          e.Error,
		AttemptCount:   e.AttemptCount,
		LastStatusCode: e.LastStatusCode,
		ReplayedAt:     e.ReplayedAt,
		FailedAt:       e.FailedAt,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

func fromDLQEntryModel(m *dlqEntryModel) (*dlq.Entry, error) {
	dlqID, err := id.ParseDLQID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse DLQ ID %q: %w", m.ID, err)
	}
	delID, err := id.ParseDeliveryID(m.DeliveryID)
	if err != nil {
		return nil, fmt.Errorf("parse delivery ID %q: %w", m.DeliveryID, err)
	}
	evtID, err := id.ParseEventID(m.EventID)
	if err != nil {
		return nil, fmt.Errorf("parse event ID %q: %w", m.EventID, err)
	}
	whID, err := id.ParseWebhookID(m.WebhookID)
	if err != nil {
		return nil, fmt.Errorf("parse webhook ID %q: %w", m.WebhookID, err)
	}
	return &dlq.Entry{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:             dlqID,
		DeliveryID:     delID,
		EventID:        evtID,
		WebhookID:      whID,
		EventType:      m.EventType,
		URL:            m.URL,
		Payload:        m.Payload,
		Error:          m.Error,
		AttemptCount:   m.AttemptCount,
		LastStatusCode: m.LastStatusCode,
		ReplayedAt:     m.ReplayedAt,
		FailedAt:       m.FailedAt,
	}, nil
}

func (s *Store) Push(ctx context.Context, entry *dlq.Entry) error {
	m := toDLQEntryModel(entry)

	if err := s.setEntity(ctx, entityKey(prefixDLQ, m.ID), m); err != nil {
		return fmt.Errorf("cachehook/redis: push dlq: %w", err)
	}

	score := scoreFromTime(m.FailedAt)
	pipe := s.rdb.Pipeline()
	pipe.ZAdd(ctx, zDLQAll, goredis.Z{Score: score, Member: m.ID})
	pipe.ZAdd(ctx, zDLQWebhook+m.WebhookID, goredis.Z{Score: score, Member: m.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cachehook/redis: push dlq indexes: %w", err)
	}
	return nil
}

func (s *Store) ListDLQ(ctx context.Context, opts dlq.ListOpts) ([]*dlq.Entry, error) {
	zKey := zDLQAll
	if opts.WebhookID != nil {
		zKey = zDLQWebhook + opts.WebhookID.String()
	}

	minScore := math.Inf(-1)
	maxScore := math.Inf(1)
	if opts.From != nil {
		minScore = scoreFromTime(*opts.From)
	}
	if opts.To != nil {
		maxScore = scoreFromTime(*opts.To)
	}

	ids, err := s.zRangeByScoreIDs(ctx, zKey, minScore, maxScore)
	if err != nil {
		return nil, fmt.Errorf("cachehook/redis: list dlq: %w", err)
	}

	result := make([]*dlq.Entry, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- { // newest first
		var m dlqEntryModel
		if err := s.getEntity(ctx, entityKey(prefixDLQ, ids[i]), &m); err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		if opts.EventType != "" && m.EventType != opts.EventType {
			continue
		}
		entry, err := fromDLQEntryModel(&m)
		if err != nil {
			return nil, err
		}
		result = append(result, entry)
	}

	return applyPagination(result, opts.Offset, opts.Limit), nil
}

func (s *Store) GetDLQ(ctx context.Context, dlqID id.ID) (*dlq.Entry, error) {
	m, err := s.getDLQModel(ctx, dlqID.String())
	if err != nil {
		return nil, err
	}
	return fromDLQEntryModel(m)
}

func (s *Store) getDLQModel(ctx context.Context, entryID string) (*dlqEntryModel, error) {
	var m dlqEntryModel
	if err := s.getEntity(ctx, entityKey(prefixDLQ, entryID), &m); err != nil {
		if isNotFound(err) {
			return nil, cachehook.ErrDLQNotFound
		}
		return nil, fmt.Errorf("cachehook/redis: get dlq: %w", err)
	}
	return &m, nil
}

func (s *Store) Replay(ctx context.Context, dlqID id.ID) error {
	m, err := s.getDLQModel(ctx, dlqID.String())
	if err != nil {
		return err
	}
	return s.replay(ctx, m, now())
}

func (s *Store) ReplayBulk(ctx context.Context, from, to time.Time) (int64, error) {
	ids, err := s.zRangeByScoreIDs(ctx, zDLQAll, scoreFromTime(from), scoreFromTime(to))
	if err != nil {
		return 0, fmt.Errorf("cachehook/redis: replay bulk list: %w", err)
	}

	t := now()
	var count int64
	for _, entryID := range ids {
		var m dlqEntryModel
		if err := s.getEntity(ctx, entityKey(prefixDLQ, entryID), &m); err != nil {
			if isNotFound(err) {
				continue
			}
			return count, err
		}
		if m.ReplayedAt != nil {
			continue
		}
		if err := s.replay(ctx, &m, t); err != nil {
			return count, err
		}
		count++
	}

	return count, nil
}

// replay enqueues a fresh delivery for the entry and marks it replayed.
// The entry itself stays in the queue.
func (s *Store) replay(ctx context.Context, m *dlqEntryModel, t time.Time) error {
	evtID, err := id.ParseEventID(m.EventID)
	if err != nil {
		return fmt.Errorf("parse event ID %q: %w", m.EventID, err)
	}
	whID, err := id.ParseWebhookID(m.WebhookID)
	if err != nil {
		return fmt.Errorf("parse webhook ID %q: %w", m.WebhookID, err)
	}

	d := &delivery.Delivery{
		Entity:        entity.New(),
		ID:            id.NewDeliveryID(),
		EventID:       evtID,
		WebhookID:     whID,
		State:         delivery.StatePending,
		MaxAttempts:   dlq.ReplayMaxAttempts,
		NextAttemptAt: t,
	}
	if err := s.Enqueue(ctx, d); err != nil {
		return fmt.Errorf("cachehook/redis: replay enqueue: %w", err)
	}

	m.ReplayedAt = &t
	m.UpdatedAt = t
	if err := s.setEntity(ctx, entityKey(prefixDLQ, m.ID), m); err != nil {
		return fmt.Errorf("cachehook/redis: mark replayed: %w", err)
	}
	return nil
}

// Purge removes entries created before the cutoff. The index is scored by
// FailedAt, so candidates are checked against CreatedAt individually.
func (s *Store) Purge(ctx context.Context, before time.Time) (int64, error) {
	ids, err := s.rdb.ZRange(ctx, zDLQAll, 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("cachehook/redis: purge list: %w", err)
	}

	var count int64
	for _, entryID := range ids {
		var m dlqEntryModel
		if err := s.getEntity(ctx, entityKey(prefixDLQ, entryID), &m); err != nil {
			if isNotFound(err) {
				continue
			}
			return count, err
		}
		if !m.CreatedAt.Before(before) {
			continue
		}
		if err := s.deleteDLQEntry(ctx, entryID, m.WebhookID); err != nil {
			return count, fmt.Errorf("cachehook/redis: purge: %w", err)
		}
		count++
	}

	return count, nil
}

func (s *Store) CountDLQ(ctx context.Context) (int64, error) {
	count, err := s.rdb.ZCard(ctx, zDLQAll).Result()
	if err != nil {
		return 0, fmt.Errorf("cachehook/redis: count dlq: %w", err)
	}
	return count, nil
}

// deleteDLQEntry removes a DLQ entry and its index entries.
func (s *Store) deleteDLQEntry(ctx context.Context, entryID, webhookID string) error {
	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, entityKey(prefixDLQ, entryID))
	pipe.ZRem(ctx, zDLQAll, entryID)
	if webhookID != "" {
		pipe.ZRem(ctx, zDLQWebhook+webhookID, entryID)
	}
	_, err := pipe.Exec(ctx)
	return err
}
