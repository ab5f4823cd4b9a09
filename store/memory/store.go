// Package memory provides an in-memory Store implementation for tests and
// single-process deployments.
package memory

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/xraph/cachehook"
	"github.com/xraph/cachehook/delivery"
	"github.com/xraph/cachehook/dlq"
	"github.com/xraph/cachehook/event"
	"github.com/xraph/cachehook/id"
	"github.com/xraph/cachehook/store"
	"github.com/xraph/cachehook/webhook"
)

// compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is an in-memory implementation of store.Store. Values are copied on
// the way in and out, so callers never share state with the store.
type Store struct {
	mu sync.RWMutex

	webhooks   map[string]*webhook.Webhook   // keyed by ID string
	events     map[string]*event.Event       // keyed by ID string
	deliveries map[string]*delivery.Delivery // keyed by ID string
	locked     map[string]bool               // dequeued, not yet updated
	dlqEntries map[string]*dlq.Entry         // keyed by ID string

	closed bool
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		webhooks:   make(map[string]*webhook.Webhook),
		events:     make(map[string]*event.Event),
		deliveries: make(map[string]*delivery.Delivery),
		locked:     make(map[string]bool),
		dlqEntries: make(map[string]*dlq.Entry),
	}
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// Migrate is a no-op for the in-memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping reports ErrStoreClosed after Close.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return cachehook.ErrStoreClosed
	}
	return nil
}

// Close marks the store as closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// ──────────────────────────────────────────────────
// webhook.Store
// ──────────────────────────────────────────────────

func copyWebhook(wh *webhook.Webhook) *webhook.Webhook {
	cp := *wh
	cp.Headers = maps.Clone(wh.Headers)
	cp.Metadata = maps.Clone(wh.Metadata)
	return &cp
}

// CreateWebhook persists a new webhook.
func (s *Store) CreateWebhook(_ context.Context, wh *webhook.Webhook) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.webhooks[wh.ID.String()] = copyWebhook(wh)
	return nil
}

// GetWebhook returns a webhook by ID.
func (s *Store) GetWebhook(_ context.Context, whID id.ID) (*webhook.Webhook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wh, ok := s.webhooks[whID.String()]
	if !ok {
		return nil, cachehook.ErrWebhookNotFound
	}
	return copyWebhook(wh), nil
}

// UpdateWebhook replaces an existing webhook.
func (s *Store) UpdateWebhook(_ context.Context, wh *webhook.Webhook) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.webhooks[wh.ID.String()]; !ok {
		return cachehook.ErrWebhookNotFound
	}
	s.webhooks[wh.ID.String()] = copyWebhook(wh)
	return nil
}

// DeleteWebhook removes a webhook.
func (s *Store) DeleteWebhook(_ context.Context, whID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.webhooks[whID.String()]; !ok {
		return cachehook.ErrWebhookNotFound
	}
	delete(s.webhooks, whID.String())
	return nil
}

// ListWebhooks returns webhooks ordered by creation time.
func (s *Store) ListWebhooks(_ context.Context, opts webhook.ListOpts) ([]*webhook.Webhook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*webhook.Webhook, 0, len(s.webhooks))
	for _, wh := range s.webhooks {
		if opts.Enabled != nil && wh.Enabled != *opts.Enabled {
			continue
		}
		if opts.Event != "" && wh.Event != opts.Event {
			continue
		}
		result = append(result, copyWebhook(wh))
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID.String() < result[j].ID.String()
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return applyPagination(result, opts.Offset, opts.Limit), nil
}

// SetWebhookEnabled enables or disables a webhook.
func (s *Store) SetWebhookEnabled(_ context.Context, whID id.ID, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wh, ok := s.webhooks[whID.String()]
	if !ok {
		return cachehook.ErrWebhookNotFound
	}
	wh.Enabled = enabled
	wh.UpdatedAt = time.Now().UTC()
	return nil
}

// ──────────────────────────────────────────────────
// event.Store
// ──────────────────────────────────────────────────

func copyEvent(evt *event.Event) *event.Event {
	cp := *evt
	cp.Data = evt.Data.Clone()
	return &cp
}

// CreateEvent persists an event.
func (s *Store) CreateEvent(_ context.Context, evt *event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events[evt.ID.String()] = copyEvent(evt)
	return nil
}

// GetEvent returns an event by ID.
func (s *Store) GetEvent(_ context.Context, evtID id.ID) (*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	evt, ok := s.events[evtID.String()]
	if !ok {
		return nil, cachehook.ErrEventNotFound
	}
	return copyEvent(evt), nil
}

// ListEvents returns events newest first, optionally filtered.
func (s *Store) ListEvents(_ context.Context, opts event.ListOpts) ([]*event.Event, error) {
	return s.listEvents(func(*event.Event) bool { return true }, opts), nil
}

// ListEventsByWebhook returns the events produced for one webhook.
func (s *Store) ListEventsByWebhook(_ context.Context, whID id.ID, opts event.ListOpts) ([]*event.Event, error) {
	return s.listEvents(func(evt *event.Event) bool { return evt.WebhookID == whID }, opts), nil
}

func (s *Store) listEvents(keep func(*event.Event) bool, opts event.ListOpts) []*event.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*event.Event, 0, len(s.events))
	for _, evt := range s.events {
		if !keep(evt) || !matchEventOpts(evt, opts) {
			continue
		}
		result = append(result, copyEvent(evt))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return applyPagination(result, opts.Offset, opts.Limit)
}

// ──────────────────────────────────────────────────
// delivery.Store
// ──────────────────────────────────────────────────

func copyDelivery(d *delivery.Delivery) *delivery.Delivery {
	cp := *d
	return &cp
}

// Enqueue creates a pending delivery.
func (s *Store) Enqueue(_ context.Context, d *delivery.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deliveries[d.ID.String()] = copyDelivery(d)
	return nil
}

// EnqueueBatch creates multiple deliveries atomically.
func (s *Store) EnqueueBatch(_ context.Context, ds []*delivery.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range ds {
		s.deliveries[d.ID.String()] = copyDelivery(d)
	}
	return nil
}

// Dequeue fetches pending deliveries that are due, oldest first. Returned
// deliveries stay locked until UpdateDelivery.
func (s *Store) Dequeue(_ context.Context, limit int) ([]*delivery.Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	candidates := make([]*delivery.Delivery, 0, len(s.deliveries))
	for _, d := range s.deliveries {
		if d.State != delivery.StatePending || d.NextAttemptAt.After(now) || s.locked[d.ID.String()] {
			continue
		}
		candidates = append(candidates, d)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].NextAttemptAt.Before(candidates[j].NextAttemptAt)
	})

	if limit > 0 && limit < len(candidates) {
		candidates = candidates[:limit]
	}

	result := make([]*delivery.Delivery, 0, len(candidates))
	for _, d := range candidates {
		s.locked[d.ID.String()] = true
		result = append(result, copyDelivery(d))
	}
	return result, nil
}

// UpdateDelivery modifies a delivery and releases its lock.
func (s *Store) UpdateDelivery(_ context.Context, d *delivery.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.deliveries[d.ID.String()]; !ok {
		return cachehook.ErrDeliveryNotFound
	}
	d.UpdatedAt = time.Now().UTC()
	s.deliveries[d.ID.String()] = copyDelivery(d)
	delete(s.locked, d.ID.String())
	return nil
}

// GetDelivery returns a delivery by ID.
func (s *Store) GetDelivery(_ context.Context, delID id.ID) (*delivery.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.deliveries[delID.String()]
	if !ok {
		return nil, cachehook.ErrDeliveryNotFound
	}
	return copyDelivery(d), nil
}

// ListByWebhook returns delivery history for a webhook, newest first.
func (s *Store) ListByWebhook(_ context.Context, whID id.ID, opts delivery.ListOpts) ([]*delivery.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*delivery.Delivery, 0, len(s.deliveries))
	for _, d := range s.deliveries {
		if d.WebhookID != whID {
			continue
		}
		if opts.State != nil && d.State != *opts.State {
			continue
		}
		result = append(result, copyDelivery(d))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return applyPagination(result, opts.Offset, opts.Limit), nil
}

// ListByEvent returns all deliveries for a specific event.
func (s *Store) ListByEvent(_ context.Context, evtID id.ID) ([]*delivery.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*delivery.Delivery, 0)
	for _, d := range s.deliveries {
		if d.EventID == evtID {
			result = append(result, copyDelivery(d))
		}
	}
	return result, nil
}

// CountPending returns the number of deliveries awaiting attempt.
func (s *Store) CountPending(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, d := range s.deliveries {
		if d.State == delivery.StatePending {
			count++
		}
	}
	return count, nil
}

// ──────────────────────────────────────────────────
// dlq.Store
// ──────────────────────────────────────────────────

func copyEntry(e *dlq.Entry) *dlq.Entry {
	cp := *e
	return &cp
}

// Push moves a permanently failed delivery into the DLQ.
func (s *Store) Push(_ context.Context, entry *dlq.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dlqEntries[entry.ID.String()] = copyEntry(entry)
	return nil
}

// ListDLQ returns DLQ entries newest first, optionally filtered.
func (s *Store) ListDLQ(_ context.Context, opts dlq.ListOpts) ([]*dlq.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*dlq.Entry, 0, len(s.dlqEntries))
	for _, e := range s.dlqEntries {
		if opts.WebhookID != nil && e.WebhookID != *opts.WebhookID {
			continue
		}
		if opts.EventType != "" && e.EventType != opts.EventType {
			continue
		}
		if opts.From != nil && e.FailedAt.Before(*opts.From) {
			continue
		}
		if opts.To != nil && e.FailedAt.After(*opts.To) {
			continue
		}
		result = append(result, copyEntry(e))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].FailedAt.After(result[j].FailedAt)
	})

	return applyPagination(result, opts.Offset, opts.Limit), nil
}

// GetDLQ returns a DLQ entry by ID.
func (s *Store) GetDLQ(_ context.Context, dlqID id.ID) (*dlq.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.dlqEntries[dlqID.String()]
	if !ok {
		return nil, cachehook.ErrDLQNotFound
	}
	return copyEntry(e), nil
}

// Replay marks a DLQ entry as replayed and re-enqueues its delivery.
func (s *Store) Replay(_ context.Context, dlqID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.dlqEntries[dlqID.String()]
	if !ok {
		return cachehook.ErrDLQNotFound
	}
	s.replayLocked(e, time.Now().UTC())
	return nil
}

// ReplayBulk replays every not-yet-replayed entry that failed in [from, to].
func (s *Store) ReplayBulk(_ context.Context, from, to time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	var count int64
	for _, e := range s.dlqEntries {
		if e.FailedAt.Before(from) || e.FailedAt.After(to) || e.ReplayedAt != nil {
			continue
		}
		s.replayLocked(e, now)
		count++
	}
	return count, nil
}

func (s *Store) replayLocked(e *dlq.Entry, now time.Time) {
	e.ReplayedAt = &now

	d := &delivery.Delivery{
		Entity:        cachehook.NewEntity(),
		ID:            id.NewDeliveryID(),
		EventID:       e.EventID,
		WebhookID:     e.WebhookID,
		State:         delivery.StatePending,
		MaxAttempts:   dlq.ReplayMaxAttempts,
		NextAttemptAt: now,
	}
	s.deliveries[d.ID.String()] = d
}

// Purge deletes DLQ entries created before the threshold.
func (s *Store) Purge(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for k, e := range s.dlqEntries {
		if e.CreatedAt.Before(before) {
			delete(s.dlqEntries, k)
			count++
		}
	}
	return count, nil
}

// CountDLQ returns the total number of DLQ entries.
func (s *Store) CountDLQ(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.dlqEntries)), nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func matchEventOpts(evt *event.Event, opts event.ListOpts) bool {
	if opts.Type != "" && evt.Type != opts.Type {
		return false
	}
	if opts.From != nil && evt.CreatedAt.Before(*opts.From) {
		return false
	}
	if opts.To != nil && evt.CreatedAt.After(*opts.To) {
		return false
	}
	return true
}

func applyPagination[T any](items []*T, offset, limit int) []*T {
	if offset > 0 && offset < len(items) {
		items = items[offset:]
	} else if offset >= len(items) && offset > 0 {
		return []*T{}
	}

	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}

	return items
}
