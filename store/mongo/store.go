package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/cachehook"
	"github.com/xraph/cachehook/store"
)

// Collection name constants.
const (
	colWebhooks   = "cachehook_webhooks"
	colEvents     = "cachehook_events"
	colDeliveries = "cachehook_deliveries"
	colDLQ        = "cachehook_dlq"
)

// stateInFlight marks documents claimed by Dequeue until UpdateDelivery.
const stateInFlight = "delivering"

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all cachehook collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}

		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("%w: mongo: %s indexes: %w", cachehook.ErrMigrationFailed, col, err)
		}
	}

	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// timeRange builds a $gte/$lte filter, or nil when both bounds are open.
func timeRange(from, to *time.Time) bson.M {
	if from == nil && to == nil {
		return nil
	}
	r := bson.M{}
	if from != nil {
		r["$gte"] = *from
	}
	if to != nil {
		r["$lte"] = *to
	}
	return r
}

// migrationIndexes returns the index definitions for all cachehook collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colWebhooks: {
			{Keys: bson.D{{Key: "event", Value: 1}, {Key: "enabled", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: 1}}},
		},
		colEvents: {
			{Keys: bson.D{{Key: "webhook_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "type", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		colDeliveries: {
			{Keys: bson.D{{Key: "state", Value: 1}, {Key: "next_attempt_at", Value: 1}}},
			{Keys: bson.D{{Key: "webhook_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "event_id", Value: 1}}},
		},
		colDLQ: {
			{Keys: bson.D{{Key: "webhook_id", Value: 1}, {Key: "failed_at", Value: -1}}},
			{
				Keys:    bson.D{{Key: "failed_at", Value: -1}},
				Options: options.Index().SetName("failed_at_desc"),
			},
		},
	}
}
