package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/xraph/cachehook"
	"github.com/xraph/cachehook/delivery"
	"github.com/xraph/cachehook/dlq"
	"github.com/xraph/cachehook/id"
	"github.com/xraph/cachehook/internal/entity"
)

// Push moves a permanently failed delivery into the DLQ.
func (s *Store) Push(ctx context.Context, entry *dlq.Entry) error {
	m := toDLQEntryModel(entry)

	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("cachehook/mongo: push dlq: %w", err)
	}

	return nil
}

// ListDLQ returns DLQ entries, optionally filtered.
func (s *Store) ListDLQ(ctx context.Context, opts dlq.ListOpts) ([]*dlq.Entry, error) {
	var models []dlqEntryModel

	filter := bson.M{}
	if opts.WebhookID != nil {
		filter["webhook_id"] = opts.WebhookID.String()
	}

	if opts.EventType != "" {
		filter["event_type"] = opts.EventType
	}

	if r := timeRange(opts.From, opts.To); r != nil {
		filter["failed_at"] = r
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "failed_at", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}

	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("cachehook/mongo: list dlq: %w", err)
	}

	result := make([]*dlq.Entry, 0, len(models))

	for i := range models {
		entry, err := fromDLQEntryModel(&models[i])
		if err != nil {
			return nil, err
		}

		result = append(result, entry)
	}

	return result, nil
}

// GetDLQ returns a DLQ entry by ID.
func (s *Store) GetDLQ(ctx context.Context, dlqID id.ID) (*dlq.Entry, error) {
	var m dlqEntryModel

	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": dlqID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, cachehook.ErrDLQNotFound
		}

		return nil, fmt.Errorf("cachehook/mongo: get dlq: %w", err)
	}

	return fromDLQEntryModel(&m)
}

// Replay re-enqueues the delivery of a DLQ entry and stamps replayed_at.
func (s *Store) Replay(ctx context.Context, dlqID id.ID) error {
	entry, err := s.GetDLQ(ctx, dlqID)
	if err != nil {
		return err
	}

	return s.replay(ctx, entry, now())
}

// ReplayBulk replays every not-yet-replayed entry that failed in [from, to].
func (s *Store) ReplayBulk(ctx context.Context, from, to time.Time) (int64, error) {
	var models []dlqEntryModel

	if err := s.mdb.NewFind(&models).
		Filter(bson.M{
			"failed_at": bson.M{
				"$gte": from,
				"$lte": to,
			},
			"replayed_at": bson.M{"$exists": false},
		}).
		Scan(ctx); err != nil {
		return 0, fmt.Errorf("cachehook/mongo: replay bulk find: %w", err)
	}

	var count int64
	t := now()

	for i := range models {
		entry, err := fromDLQEntryModel(&models[i])
		if err != nil {
			return count, err
		}

		if err := s.replay(ctx, entry, t); err != nil {
			return count, err
		}

		count++
	}

	return count, nil
}

func (s *Store) replay(ctx context.Context, entry *dlq.Entry, t time.Time) error {
	d := &delivery.Delivery{
		Entity:        entity.New(),
		ID:            id.NewDeliveryID(),
		EventID:       entry.EventID,
		WebhookID:     entry.WebhookID,
		State:         delivery.StatePending,
		MaxAttempts:   dlq.ReplayMaxAttempts,
		NextAttemptAt: t,
	}

	if err := s.Enqueue(ctx, d); err != nil {
		return fmt.Errorf("cachehook/mongo: replay enqueue: %w", err)
	}

	_, err := s.mdb.NewUpdate((*dlqEntryModel)(nil)).
		Filter(bson.M{"_id": entry.ID.String()}).
		Set("replayed_at", t).
		Set("updated_at", t).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("cachehook/mongo: mark replayed: %w", err)
	}

	return nil
}

// Purge deletes DLQ entries older than a threshold.
func (s *Store) Purge(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.mdb.NewDelete((*dlqEntryModel)(nil)).
		Many().
		Filter(bson.M{"created_at": bson.M{"$lt": before}}).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("cachehook/mongo: purge: %w", err)
	}

	return res.DeletedCount(), nil
}

// CountDLQ returns the total number of DLQ entries.
func (s *Store) CountDLQ(ctx context.Context) (int64, error) {
	count, err := s.mdb.NewFind((*dlqEntryModel)(nil)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("cachehook/mongo: count dlq: %w", err)
	}

	return count, nil
}
