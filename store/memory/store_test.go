package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/cachehook"
	"github.com/xraph/cachehook/delivery"
	"github.com/xraph/cachehook/dlq"
	"github.com/xraph/cachehook/event"
	"github.com/xraph/cachehook/id"
	"github.com/xraph/cachehook/internal/entity"
	"github.com/xraph/cachehook/webhook"
)

func ctx() context.Context { return context.Background() }

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

func TestLifecycle(t *testing.T) {
	s := New()

	if err := s.Migrate(ctx()); err != nil {
		t.Fatal(err)
	}
	if err := s.Ping(ctx()); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Ping(ctx()); !errors.Is(err, cachehook.ErrStoreClosed) {
		t.Fatalf("expected ErrStoreClosed, got %v", err)
	}
}

// ──────────────────────────────────────────────────
// webhook.Store
// ──────────────────────────────────────────────────

func newWebhook(event string, createdAt time.Time) *webhook.Webhook {
	return &webhook.Webhook{
		Entity:  entity.Entity{CreatedAt: createdAt, UpdatedAt: createdAt},
		ID:      id.NewWebhookID(),
		Name:    event,
		Event:   event,
		URL:     "https://example.com/hook",
		Secret:  "whsec_test",
		Headers: map[string]string{"X-Team": "web"},
		Enabled: true,
	}
}

func TestWebhookCRUD(t *testing.T) {
	s := New()
	wh := newWebhook("post_updated", time.Now().UTC())

	if err := s.CreateWebhook(ctx(), wh); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetWebhook(ctx(), wh.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Event != "post_updated" || got.Secret != "whsec_test" {
		t.Fatalf("unexpected webhook %+v", got)
	}

	got.URL = "https://example.com/other"
	if err := s.UpdateWebhook(ctx(), got); err != nil {
		t.Fatal(err)
	}
	got, _ = s.GetWebhook(ctx(), wh.ID)
	if got.URL != "https://example.com/other" {
		t.Fatalf("update not applied: %q", got.URL)
	}

	if err := s.SetWebhookEnabled(ctx(), wh.ID, false); err != nil {
		t.Fatal(err)
	}
	got, _ = s.GetWebhook(ctx(), wh.ID)
	if got.Enabled {
		t.Fatal("expected webhook to be disabled")
	}

	if err := s.DeleteWebhook(ctx(), wh.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetWebhook(ctx(), wh.ID); !errors.Is(err, cachehook.ErrWebhookNotFound) {
		t.Fatalf("expected ErrWebhookNotFound, got %v", err)
	}
	if err := s.DeleteWebhook(ctx(), wh.ID); !errors.Is(err, cachehook.ErrWebhookNotFound) {
		t.Fatalf("expected ErrWebhookNotFound on second delete, got %v", err)
	}
	if err := s.UpdateWebhook(ctx(), wh); !errors.Is(err, cachehook.ErrWebhookNotFound) {
		t.Fatalf("expected ErrWebhookNotFound on update, got %v", err)
	}
}

func TestWebhookCopies(t *testing.T) {
	s := New()
	wh := newWebhook("post_updated", time.Now().UTC())
	if err := s.CreateWebhook(ctx(), wh); err != nil {
		t.Fatal(err)
	}

	wh.Headers["X-Team"] = "mutated"
	got, _ := s.GetWebhook(ctx(), wh.ID)
	if got.Headers["X-Team"] != "web" {
		t.Fatal("store must not share maps with the caller")
	}

	got.Enabled = false
	again, _ := s.GetWebhook(ctx(), wh.ID)
	if !again.Enabled {
		t.Fatal("mutating a returned webhook must not change the store")
	}
}

func TestListWebhooks(t *testing.T) {
	s := New()
	base := time.Now().UTC()

	a := newWebhook("post_updated", base)
	b := newWebhook("post_deleted", base.Add(time.Second))
	c := newWebhook("post_updated", base.Add(2*time.Second))
	c.Enabled = false
	for _, wh := range []*webhook.Webhook{c, a, b} {
		if err := s.CreateWebhook(ctx(), wh); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.ListWebhooks(ctx(), webhook.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].ID != a.ID || all[1].ID != b.ID || all[2].ID != c.ID {
		t.Fatal("expected webhooks ordered by creation time")
	}

	byEvent, _ := s.ListWebhooks(ctx(), webhook.ListOpts{Event: "post_updated"})
	if len(byEvent) != 2 {
		t.Fatalf("expected 2 post_updated webhooks, got %d", len(byEvent))
	}

	enabled := true
	onlyEnabled, _ := s.ListWebhooks(ctx(), webhook.ListOpts{Enabled: &enabled})
	if len(onlyEnabled) != 2 {
		t.Fatalf("expected 2 enabled webhooks, got %d", len(onlyEnabled))
	}

	page, _ := s.ListWebhooks(ctx(), webhook.ListOpts{Offset: 1, Limit: 1})
	if len(page) != 1 || page[0].ID != b.ID {
		t.Fatal("pagination returned the wrong page")
	}

	past, _ := s.ListWebhooks(ctx(), webhook.ListOpts{Offset: 10})
	if len(past) != 0 {
		t.Fatalf("expected empty page, got %d", len(past))
	}
}

// ──────────────────────────────────────────────────
// event.Store
// ──────────────────────────────────────────────────

func TestEvents(t *testing.T) {
	s := New()
	whA, whB := id.NewWebhookID(), id.NewWebhookID()
	base := time.Now().UTC()

	mk := func(typ string, wh id.ID, at time.Time) *event.Event {
		evt := &event.Event{
			Entity:    entity.Entity{CreatedAt: at, UpdatedAt: at},
			ID:        id.NewEventID(),
			Type:      typ,
			WebhookID: wh,
			Data:      event.Payload{"object_type": "post"},
		}
		if err := s.CreateEvent(ctx(), evt); err != nil {
			t.Fatal(err)
		}
		return evt
	}

	first := mk("post_updated", whA, base)
	mk("post_deleted", whA, base.Add(time.Second))
	last := mk("post_updated", whB, base.Add(2*time.Second))

	got, err := s.GetEvent(ctx(), first.ID)
	if err != nil {
		t.Fatal(err)
	}
	got.Data["object_type"] = "mutated"
	again, _ := s.GetEvent(ctx(), first.ID)
	if again.Data["object_type"] != "post" {
		t.Fatal("event data must be copied")
	}

	if _, err := s.GetEvent(ctx(), id.NewEventID()); !errors.Is(err, cachehook.ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}

	all, _ := s.ListEvents(ctx(), event.ListOpts{})
	if len(all) != 3 || all[0].ID != last.ID {
		t.Fatal("expected newest event first")
	}

	typed, _ := s.ListEvents(ctx(), event.ListOpts{Type: "post_updated"})
	if len(typed) != 2 {
		t.Fatalf("expected 2 post_updated events, got %d", len(typed))
	}

	from := base.Add(500 * time.Millisecond)
	ranged, _ := s.ListEvents(ctx(), event.ListOpts{From: &from})
	if len(ranged) != 2 {
		t.Fatalf("expected 2 events after %v, got %d", from, len(ranged))
	}

	byWebhook, _ := s.ListEventsByWebhook(ctx(), whA, event.ListOpts{})
	if len(byWebhook) != 2 {
		t.Fatalf("expected 2 events for webhook A, got %d", len(byWebhook))
	}
}

// ──────────────────────────────────────────────────
// delivery.Store
// ──────────────────────────────────────────────────

func newDelivery(whID, evtID id.ID, next time.Time) *delivery.Delivery {
	return &delivery.Delivery{
		Entity:        entity.New(),
		ID:            id.NewDeliveryID(),
		EventID:       evtID,
		WebhookID:     whID,
		State:         delivery.StatePending,
		MaxAttempts:   3,
		NextAttemptAt: next,
	}
}

func TestDequeueLocksUntilUpdate(t *testing.T) {
	s := New()
	whID, evtID := id.NewWebhookID(), id.NewEventID()
	now := time.Now().UTC()

	due := newDelivery(whID, evtID, now.Add(-time.Second))
	future := newDelivery(whID, evtID, now.Add(time.Hour))
	if err := s.EnqueueBatch(ctx(), []*delivery.Delivery{due, future}); err != nil {
		t.Fatal(err)
	}

	batch, err := s.Dequeue(ctx(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(batch) != 1 || batch[0].ID != due.ID {
		t.Fatalf("expected only the due delivery, got %d", len(batch))
	}

	again, _ := s.Dequeue(ctx(), 10)
	if len(again) != 0 {
		t.Fatal("a dequeued delivery must not be handed out twice")
	}

	batch[0].AttemptCount = 1
	batch[0].NextAttemptAt = now.Add(-time.Millisecond)
	if err := s.UpdateDelivery(ctx(), batch[0]); err != nil {
		t.Fatal(err)
	}

	retry, _ := s.Dequeue(ctx(), 10)
	if len(retry) != 1 || retry[0].AttemptCount != 1 {
		t.Fatal("expected the updated delivery to be dequeued again")
	}

	pending, _ := s.CountPending(ctx())
	if pending != 2 {
		t.Fatalf("expected 2 pending, got %d", pending)
	}
}

func TestDequeueLimitAndOrder(t *testing.T) {
	s := New()
	whID, evtID := id.NewWebhookID(), id.NewEventID()
	now := time.Now().UTC()

	older := newDelivery(whID, evtID, now.Add(-time.Minute))
	newer := newDelivery(whID, evtID, now.Add(-time.Second))
	_ = s.Enqueue(ctx(), newer)
	_ = s.Enqueue(ctx(), older)

	batch, _ := s.Dequeue(ctx(), 1)
	if len(batch) != 1 || batch[0].ID != older.ID {
		t.Fatal("expected the oldest due delivery first")
	}
}

func TestDeliveryQueries(t *testing.T) {
	s := New()
	whA, whB := id.NewWebhookID(), id.NewWebhookID()
	evtID := id.NewEventID()
	now := time.Now().UTC()

	d1 := newDelivery(whA, evtID, now)
	d2 := newDelivery(whB, evtID, now)
	d2.State = delivery.StateDelivered
	_ = s.Enqueue(ctx(), d1)
	_ = s.Enqueue(ctx(), d2)

	got, err := s.GetDelivery(ctx(), d1.ID)
	if err != nil || got.WebhookID != whA {
		t.Fatalf("get delivery: %v %+v", err, got)
	}
	if _, err := s.GetDelivery(ctx(), id.NewDeliveryID()); !errors.Is(err, cachehook.ErrDeliveryNotFound) {
		t.Fatalf("expected ErrDeliveryNotFound, got %v", err)
	}
	if err := s.UpdateDelivery(ctx(), newDelivery(whA, evtID, now)); !errors.Is(err, cachehook.ErrDeliveryNotFound) {
		t.Fatalf("expected ErrDeliveryNotFound on update, got %v", err)
	}

	byEvent, _ := s.ListByEvent(ctx(), evtID)
	if len(byEvent) != 2 {
		t.Fatalf("expected 2 deliveries for event, got %d", len(byEvent))
	}

	byWebhook, _ := s.ListByWebhook(ctx(), whA, delivery.ListOpts{})
	if len(byWebhook) != 1 || byWebhook[0].ID != d1.ID {
		t.Fatal("expected d1 for webhook A")
	}

	state := delivery.StateDelivered
	delivered, _ := s.ListByWebhook(ctx(), whB, delivery.ListOpts{State: &state})
	if len(delivered) != 1 {
		t.Fatalf("expected 1 delivered for webhook B, got %d", len(delivered))
	}
}

// ──────────────────────────────────────────────────
// dlq.Store
// ──────────────────────────────────────────────────

func TestDLQReplay(t *testing.T) {
	s := New()
	whID := id.NewWebhookID()
	now := time.Now().UTC()

	entry := &dlq.Entry{
		Entity:     entity.New(),
		ID:         id.NewDLQID(),
		DeliveryID: id.NewDeliveryID(),
		EventID:    id.NewEventID(),
		WebhookID:  whID,
		EventType:  "post_updated",
		FailedAt:   now,
	}
	if err := s.Push(ctx(), entry); err != nil {
		t.Fatal(err)
	}

	if err := s.Replay(ctx(), entry.ID); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetDLQ(ctx(), entry.ID)
	if got.ReplayedAt == nil {
		t.Fatal("expected replayed_at to be set")
	}

	redelivered, _ := s.ListByWebhook(ctx(), whID, delivery.ListOpts{})
	if len(redelivered) != 1 || redelivered[0].MaxAttempts != dlq.ReplayMaxAttempts {
		t.Fatalf("expected one re-enqueued delivery, got %d", len(redelivered))
	}

	if err := s.Replay(ctx(), id.NewDLQID()); !errors.Is(err, cachehook.ErrDLQNotFound) {
		t.Fatalf("expected ErrDLQNotFound, got %v", err)
	}

	n, _ := s.ReplayBulk(ctx(), now.Add(-time.Minute), now.Add(time.Minute))
	if n != 0 {
		t.Fatalf("replayed entries must be skipped by bulk replay, got %d", n)
	}
}

func TestDLQListAndPurge(t *testing.T) {
	s := New()
	whA, whB := id.NewWebhookID(), id.NewWebhookID()
	base := time.Now().UTC()

	for i, wh := range []id.ID{whA, whA, whB} {
		e := &dlq.Entry{
			Entity:    entity.New(),
			ID:        id.NewDLQID(),
			WebhookID: wh,
			EventType: "post_updated",
			FailedAt:  base.Add(time.Duration(i) * time.Second),
		}
		if err := s.Push(ctx(), e); err != nil {
			t.Fatal(err)
		}
	}

	byWebhook, _ := s.ListDLQ(ctx(), dlq.ListOpts{WebhookID: &whA})
	if len(byWebhook) != 2 {
		t.Fatalf("expected 2 entries for webhook A, got %d", len(byWebhook))
	}

	to := base.Add(500 * time.Millisecond)
	early, _ := s.ListDLQ(ctx(), dlq.ListOpts{To: &to})
	if len(early) != 1 {
		t.Fatalf("expected 1 early entry, got %d", len(early))
	}

	count, _ := s.CountDLQ(ctx())
	if count != 3 {
		t.Fatalf("expected 3 entries, got %d", count)
	}

	purged, _ := s.Purge(ctx(), time.Now().Add(time.Second))
	if purged != 3 {
		t.Fatalf("expected 3 purged, got %d", purged)
	}
}
