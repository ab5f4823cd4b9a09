package dlq

import (
	"context"
	"time"

	"github.com/xraph/cachehook/id"
)

// Store persists deliveries that exhausted their attempts. Entries are never
// removed by a replay, only by Purge, so the queue doubles as an audit log.
type Store interface {
	// Push records a delivery that failed for good.
	Push(ctx context.Context, entry *Entry) error

	// ListDLQ returns entries, newest failure first.
	ListDLQ(ctx context.Context, opts ListOpts) ([]*Entry, error)

	// GetDLQ returns a DLQ entry by ID.
	GetDLQ(ctx context.Context, dlqID id.ID) (*Entry, error)

	// Replay enqueues a fresh delivery of the same event to the same webhook,
	// due now with ReplayMaxAttempts, and stamps the entry's ReplayedAt.
	// Replaying an already replayed entry enqueues again.
	Replay(ctx context.Context, dlqID id.ID) error

	// ReplayBulk replays entries whose FailedAt lies in [from, to] and that
	// were not replayed before. It returns how many were replayed.
	ReplayBulk(ctx context.Context, from, to time.Time) (int64, error)

	// Purge deletes entries created before the threshold, replayed or not.
	Purge(ctx context.Context, before time.Time) (int64, error)

	// CountDLQ counts all entries, including replayed ones.
	CountDLQ(ctx context.Context) (int64, error)
}
