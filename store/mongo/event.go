package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/xraph/cachehook"
	"github.com/xraph/cachehook/event"
	"github.com/xraph/cachehook/id"
)

// CreateEvent persists an event.
func (s *Store) CreateEvent(ctx context.Context, evt *event.Event) error {
	m, err := toEventModel(evt)
	if err != nil {
		return err
	}

	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("cachehook/mongo: create event: %w", err)
	}

	return nil
}

// GetEvent returns an event by ID.
func (s *Store) GetEvent(ctx context.Context, evtID id.ID) (*event.Event, error) {
	var m eventModel

	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": evtID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, cachehook.ErrEventNotFound
		}

		return nil, fmt.Errorf("cachehook/mongo: get event: %w", err)
	}

	return fromEventModel(&m)
}

// ListEvents returns events newest first, optionally filtered by type or
// time range.
func (s *Store) ListEvents(ctx context.Context, opts event.ListOpts) ([]*event.Event, error) {
	return s.listEvents(ctx, bson.M{}, opts)
}

// ListEventsByWebhook returns the events produced for one webhook.
func (s *Store) ListEventsByWebhook(ctx context.Context, whID id.ID, opts event.ListOpts) ([]*event.Event, error) {
	return s.listEvents(ctx, bson.M{"webhook_id": whID.String()}, opts)
}

func (s *Store) listEvents(ctx context.Context, filter bson.M, opts event.ListOpts) ([]*event.Event, error) {
	var models []eventModel

	if opts.Type != "" {
		filter["type"] = opts.Type
	}

	if r := timeRange(opts.From, opts.To); r != nil {
		filter["created_at"] = r
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}

	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("cachehook/mongo: list events: %w", err)
	}

	result := make([]*event.Event, 0, len(models))

	for i := range models {
		evt, err := fromEventModel(&models[i])
		if err != nil {
			return nil, err
		}

		result = append(result, evt)
	}

	return result, nil
}
