package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/cachehook"
	"github.com/xraph/cachehook/delivery"
	"github.com/xraph/cachehook/id"
)

// Enqueue inserts a delivery document.
func (s *Store) Enqueue(ctx context.Context, d *delivery.Delivery) error {
	m := toDeliveryModel(d)

	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("cachehook/mongo: enqueue: %w", err)
	}

	return nil
}

// EnqueueBatch inserts the fan-out of one event with a single InsertMany.
func (s *Store) EnqueueBatch(ctx context.Context, ds []*delivery.Delivery) error {
	if len(ds) == 0 {
		return nil
	}

	models := make([]deliveryModel, len(ds))
	for i, d := range ds {
		models[i] = *toDeliveryModel(d)
	}

	_, err := s.mdb.NewInsert(&models).Exec(ctx)
	if err != nil {
		return fmt.Errorf("cachehook/mongo: enqueue batch: %w", err)
	}

	return nil
}

// Dequeue claims due deliveries one FindOneAndUpdate at a time, earliest
// next_attempt_at first. A claimed document moves to the internal
// "delivering" state, which reads back as pending, so a second poller cannot
// match it. UpdateDelivery writes the real state back.
func (s *Store) Dequeue(ctx context.Context, limit int) ([]*delivery.Delivery, error) {
	result := make([]*delivery.Delivery, 0, limit)
	t := now()
	col := s.mdb.Collection(colDeliveries)

	for range limit {
		filter := bson.M{
			"state":           string(delivery.StatePending),
			"next_attempt_at": bson.M{"$lte": t},
		}

		update := bson.M{
			"$set": bson.M{
				"state":      stateInFlight,
				"updated_at": t,
			},
		}

		opts := options.FindOneAndUpdate().
			SetReturnDocument(options.After).
			SetSort(bson.D{{Key: "next_attempt_at", Value: 1}})

		var m deliveryModel

		err := col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&m)
		if err != nil {
			if errors.Is(err, mongod.ErrNoDocuments) {
				break
			}

			return nil, fmt.Errorf("cachehook/mongo: dequeue: %w", err)
		}

		d, err := fromDeliveryModel(&m)
		if err != nil {
			return nil, err
		}

		result = append(result, d)
	}

	return result, nil
}

// UpdateDelivery replaces the document, ending the claim.
func (s *Store) UpdateDelivery(ctx context.Context, d *delivery.Delivery) error {
	m := toDeliveryModel(d)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("cachehook/mongo: update delivery: %w", err)
	}

	if res.MatchedCount() == 0 {
		return cachehook.ErrDeliveryNotFound
	}

	return nil
}

// GetDelivery returns a delivery by ID.
func (s *Store) GetDelivery(ctx context.Context, delID id.ID) (*delivery.Delivery, error) {
	var m deliveryModel

	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": delID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, cachehook.ErrDeliveryNotFound
		}

		return nil, fmt.Errorf("cachehook/mongo: get delivery: %w", err)
	}

	return fromDeliveryModel(&m)
}

// ListByWebhook returns delivery history for a webhook, newest first.
func (s *Store) ListByWebhook(ctx context.Context, whID id.ID, opts delivery.ListOpts) ([]*delivery.Delivery, error) {
	var models []deliveryModel

	filter := bson.M{"webhook_id": whID.String()}
	if opts.State != nil {
		filter["state"] = string(*opts.State)
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
		return nil, fmt.Errorf("cachehook/mongo: list by webhook: %w", err)
	}

	result := make([]*delivery.Delivery, 0, len(models))

	for i := range models {
		d, err := fromDeliveryModel(&models[i])
		if err != nil {
			return nil, err
		}

		result = append(result, d)
	}

	return result, nil
}

// ListByEvent returns all deliveries for a specific event.
func (s *Store) ListByEvent(ctx context.Context, evtID id.ID) ([]*delivery.Delivery, error) {
	var models []deliveryModel

	if err := s.mdb.NewFind(&models).
		Filter(bson.M{"event_id": evtID.String()}).
		Sort(bson.D{{Key: "created_at", Value: -1}}).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("cachehook/mongo: list by event: %w", err)
	}

	result := make([]*delivery.Delivery, 0, len(models))

	for i := range models {
		d, err := fromDeliveryModel(&models[i])
		if err != nil {
			return nil, err
		}

		result = append(result, d)
	}

	return result, nil
}

// CountPending counts waiting deliveries. Claimed documents are not included.
func (s *Store) CountPending(ctx context.Context) (int64, error) {
	count, err := s.mdb.NewFind((*deliveryModel)(nil)).
		Filter(bson.M{"state": string(delivery.StatePending)}).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("cachehook/mongo: count pending: %w", err)
	}

	return count, nil
}
