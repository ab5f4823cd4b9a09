package redis

import (
	"context"
	"fmt"
	"math"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/cachehook"
	"github.com/xraph/cachehook/event"
	"github.com/xraph/cachehook/id"
	"github.com/xraph/cachehook/internal/entity"
)

// eventModel is the JSON representation stored in Redis.
type eventModel struct {
	ID        string        `json:"id"`
	Type      string        `json:"type"`
	WebhookID string        `json:"webhook_id"`
	Data      event.Payload `json:"data,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func toEventModel(evt *event.Event) *eventModel {
	return &eventModel{
		ID:        evt.ID.String(),
		Type:      evt.Type,
		WebhookID: evt.WebhookID.String(),
		Data:      evt.Data,
		CreatedAt: evt.CreatedAt,
		UpdatedAt: evt.UpdatedAt,
	}
}

func fromEventModel(m *eventModel) (*event.Event, error) {
	evtID, err := id.ParseEventID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse event ID %q: %w", m.ID, err)
	}
	whID, err := id.ParseWebhookID(m.WebhookID)
	if err != nil {
		return nil, fmt.Errorf("parse webhook ID %q: %w", m.WebhookID, err)
	}
	return &event.Event{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:        evtID,
		Type:      m.Type,
		WebhookID: whID,
		Data:      m.Data,
	}, nil
}

func (s *Store) CreateEvent(ctx context.Context, evt *event.Event) error {
	m := toEventModel(evt)

	if err := s.setEntity(ctx, entityKey(prefixEvent, m.ID), m); err != nil {
		return fmt.Errorf("cachehook/redis: create event: %w", err)
	}

	score := scoreFromTime(m.CreatedAt)
	pipe := s.rdb.Pipeline()
	pipe.ZAdd(ctx, zEventAll, goredis.Z{Score: score, Member: m.ID})
	pipe.ZAdd(ctx, zEventWebhook+m.WebhookID, goredis.Z{Score: score, Member: m.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cachehook/redis: create event indexes: %w", err)
	}
	return nil
}

func (s *Store) GetEvent(ctx context.Context, evtID id.ID) (*event.Event, error) {
	var m eventModel
	if err := s.getEntity(ctx, entityKey(prefixEvent, evtID.String()), &m); err != nil {
		if isNotFound(err) {
			return nil, cachehook.ErrEventNotFound
		}
		return nil, fmt.Errorf("cachehook/redis: get event: %w", err)
	}
	return fromEventModel(&m)
}

func (s *Store) ListEvents(ctx context.Context, opts event.ListOpts) ([]*event.Event, error) {
	return s.listEvents(ctx, zEventAll, opts)
}

func (s *Store) ListEventsByWebhook(ctx context.Context, whID id.ID, opts event.ListOpts) ([]*event.Event, error) {
	return s.listEvents(ctx, zEventWebhook+whID.String(), opts)
}

func (s *Store) listEvents(ctx context.Context, zKey string, opts event.ListOpts) ([]*event.Event, error) {
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
		return nil, fmt.Errorf("cachehook/redis: list events: %w", err)
	}

	result := make([]*event.Event, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- { // newest first
		var m eventModel
		if err := s.getEntity(ctx, entityKey(prefixEvent, ids[i]), &m); err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		if opts.Type != "" && m.Type != opts.Type {
			continue
		}
		evt, err := fromEventModel(&m)
		if err != nil {
			return nil, err
		}
		result = append(result, evt)
	}

	return applyPagination(result, opts.Offset, opts.Limit), nil
}
