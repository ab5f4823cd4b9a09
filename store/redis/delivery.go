package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/cachehook"
	"github.com/xraph/cachehook/delivery"
	"github.com/xraph/cachehook/id"
	"github.com/xraph/cachehook/internal/entity"
)

// deliveryModel is the JSON representation stored in Redis.
type deliveryModel struct {
	ID             string     `json:"id"`
	EventID        string     `json:"event_id"`
	WebhookID      string     `json:"webhook_id"`
	State          string     `json:"state"`
	AttemptCount   int        `json:"attempt_count"`
	MaxAttempts    int        `json:"max_attempts"`
	NextAttemptAt  time.Time  `json:"next_attempt_at"`
	LastError      string     `json:"last_error"`
	LastStatusCode int        `json:"last_status_code"`
	LastResponse   string     `json:"last_response"`
	LastLatencyMs  int        `json:"last_latency_ms"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func toDeliveryModel(d *delivery.Delivery) *deliveryModel {
	return &deliveryModel{
		ID:             d.ID.String(),
		EventID:        d.EventID.String(),
		WebhookID:      d.WebhookID.String(),
		State:          string(d.State),
		AttemptCount:   d.AttemptCount,
		MaxAttempts:    d.MaxAttempts,
		NextAttemptAt:  d.NextAttemptAt,
		LastError:      d.LastError,
		LastStatusCode: d.LastStatusCode,
		LastResponse:   d.LastResponse,
		LastLatencyMs:  d.LastLatencyMs,
		CompletedAt:    d.CompletedAt,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func fromDeliveryModel(m *deliveryModel) (*delivery.Delivery, error) {
	delID, err := id.ParseDeliveryID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse delivery ID %q: %w", m.ID, err)
	}
	evtID, err := id.ParseEventID(m.EventID)
	if err != nil {
		return nil, fmt.Errorf("parse event ID %q: %w", m.EventID, err)
	}
	whID, err := id.ParseWebhookID(m.WebhookID)
	if err != nil {
		return nil, fmt.Errorf("parse webhook ID %q: %w", m.WebhookID, err)
	}
	return &delivery.Delivery{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:             delID,
		EventID:        evtID,
		WebhookID:      whID,
		State:          delivery.State(m.State),
		AttemptCount:   m.AttemptCount,
		MaxAttempts:    m.MaxAttempts,
		NextAttemptAt:  m.NextAttemptAt,
		LastError:      m.LastError,
		LastStatusCode: m.LastStatusCode,
		LastResponse:   m.LastResponse,
		LastLatencyMs:  m.LastLatencyMs,
		CompletedAt:    m.CompletedAt,
	}, nil
}

// dequeueScript atomically claims due deliveries from the pending set.
// A claimed delivery keeps state "pending" but is absent from the set
// until UpdateDelivery re-adds it.
// KEYS[1] = cachehook:z:del:pending
// ARGV[1] = current unix timestamp (score threshold)
// ARGV[2] = limit
var dequeueScript = goredis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
if #ids == 0 then return {} end
for i, id in ipairs(ids) do
    redis.call('ZREM', KEYS[1], id)
end
return ids
`)

func (s *Store) Enqueue(ctx context.Context, d *delivery.Delivery) error {
	m := toDeliveryModel(d)

	if err := s.setEntity(ctx, entityKey(prefixDelivery, m.ID), m); err != nil {
		return fmt.Errorf("cachehook/redis: enqueue delivery: %w", err)
	}

	pipe := s.rdb.Pipeline()
	addDeliveryIndexes(ctx, pipe, m)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cachehook/redis: enqueue delivery indexes: %w", err)
	}
	return nil
}

func (s *Store) EnqueueBatch(ctx context.Context, ds []*delivery.Delivery) error {
	if len(ds) == 0 {
		return nil
	}

	pipe := s.rdb.Pipeline()
	for _, d := range ds {
		m := toDeliveryModel(d)
		raw, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("cachehook/redis: enqueue batch marshal: %w", err)
		}
		pipe.Set(ctx, entityKey(prefixDelivery, m.ID), raw, 0)
		addDeliveryIndexes(ctx, pipe, m)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cachehook/redis: enqueue batch: %w", err)
	}
	return nil
}

func addDeliveryIndexes(ctx context.Context, pipe goredis.Pipeliner, m *deliveryModel) {
	created := scoreFromTime(m.CreatedAt)
	if m.State == string(delivery.StatePending) {
		pipe.ZAdd(ctx, zDeliveryPend, goredis.Z{Score: scoreFromTime(m.NextAttemptAt), Member: m.ID})
	}
	pipe.ZAdd(ctx, zDeliveryWH+m.WebhookID, goredis.Z{Score: created, Member: m.ID})
	pipe.ZAdd(ctx, zDeliveryEvt+m.EventID, goredis.Z{Score: created, Member: m.ID})
}

func (s *Store) Dequeue(ctx context.Context, limit int) ([]*delivery.Delivery, error) {
	if limit <= 0 {
		limit = 1
	}

	nowScore := fmt.Sprintf("%f", scoreFromTime(now()))
	claimed, err := dequeueScript.Run(ctx, s.rdb, []string{zDeliveryPend}, nowScore, limit).StringSlice()
	if err != nil {
		if isRedisNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("cachehook/redis: dequeue script: %w", err)
	}

	deliveries := make([]*delivery.Delivery, 0, len(claimed))
	for _, delID := range claimed {
		var m deliveryModel
		if err := s.getEntity(ctx, entityKey(prefixDelivery, delID), &m); err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("cachehook/redis: dequeue get: %w", err)
		}
		d, err := fromDeliveryModel(&m)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)
	}

	return deliveries, nil
}

func (s *Store) UpdateDelivery(ctx context.Context, d *delivery.Delivery) error {
	m := toDeliveryModel(d)
	m.UpdatedAt = now()

	if err := s.setEntity(ctx, entityKey(prefixDelivery, m.ID), m); err != nil {
		return fmt.Errorf("cachehook/redis: update delivery: %w", err)
	}

	if d.State == delivery.StatePending {
		err := s.rdb.ZAdd(ctx, zDeliveryPend, goredis.Z{Score: scoreFromTime(m.NextAttemptAt), Member: m.ID}).Err()
		if err != nil {
			return fmt.Errorf("cachehook/redis: requeue delivery: %w", err)
		}
	}
	return nil
}

func (s *Store) GetDelivery(ctx context.Context, delID id.ID) (*delivery.Delivery, error) {
	var m deliveryModel
	if err := s.getEntity(ctx, entityKey(prefixDelivery, delID.String()), &m); err != nil {
		if isNotFound(err) {
			return nil, cachehook.ErrDeliveryNotFound
		}
		return nil, fmt.Errorf("cachehook/redis: get delivery: %w", err)
	}
	return fromDeliveryModel(&m)
}

func (s *Store) ListByWebhook(ctx context.Context, whID id.ID, opts delivery.ListOpts) ([]*delivery.Delivery, error) {
	result, err := s.listDeliveries(ctx, zDeliveryWH+whID.String(), opts.State)
	if err != nil {
		return nil, fmt.Errorf("cachehook/redis: list by webhook: %w", err)
	}
	return applyPagination(result, opts.Offset, opts.Limit), nil
}

func (s *Store) ListByEvent(ctx context.Context, evtID id.ID) ([]*delivery.Delivery, error) {
	result, err := s.listDeliveries(ctx, zDeliveryEvt+evtID.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("cachehook/redis: list by event: %w", err)
	}
	return result, nil
}

func (s *Store) listDeliveries(ctx context.Context, zKey string, state *delivery.State) ([]*delivery.Delivery, error) {
	ids, err := s.rdb.ZRange(ctx, zKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	result := make([]*delivery.Delivery, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- { // newest first
		var m deliveryModel
		if err := s.getEntity(ctx, entityKey(prefixDelivery, ids[i]), &m); err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		if state != nil && delivery.State(m.State) != *state {
			continue
		}
		d, err := fromDeliveryModel(&m)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, nil
}

func (s *Store) CountPending(ctx context.Context) (int64, error) {
	count, err := s.rdb.ZCard(ctx, zDeliveryPend).Result()
	if err != nil {
		return 0, fmt.Errorf("cachehook/redis: count pending: %w", err)
	}
	return count, nil
}
