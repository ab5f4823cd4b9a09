package dlq_test

import (
	"context"
	"testing"
	"time"

	"github.com/xraph/cachehook/delivery"
	"github.com/xraph/cachehook/dlq"
	"github.com/xraph/cachehook/event"
	"github.com/xraph/cachehook/id"
	"github.com/xraph/cachehook/internal/entity"
	"github.com/xraph/cachehook/store/memory"
	"github.com/xraph/cachehook/webhook"
)

func ctx() context.Context { return context.Background() }

func newService() (*dlq.Service, *memory.Store) {
	store := memory.New()
	svc := dlq.NewService(store, nil)
	return svc, store
}

func push(t *testing.T, svc *dlq.Service, whID id.ID, eventType string) *delivery.Delivery {
	t.Helper()
	d := &delivery.Delivery{
		Entity:       entity.New(),
		ID:           id.NewDeliveryID(),
		EventID:      id.NewEventID(),
		WebhookID:    whID,
		AttemptCount: 5,
	}
	wh := &webhook.Webhook{ID: whID, Event: eventType, URL: "https://example.com/hook"}
	evt := &event.Event{ID: d.EventID, Type: eventType, Data: event.Payload{"object_type": "post"}}
	if err := svc.PushFailed(ctx(), d, wh, evt, "server error", 500); err != nil {
		t.Fatal(err)
	}
	return d
}

func TestPushFailed(t *testing.T) {
	svc, store := newService()
	whID := id.NewWebhookID()

	d := push(t, svc, whID, "post_updated")

	entries, err := store.ListDLQ(ctx(), dlq.ListOpts{Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	entry := entries[0]
	if entry.DeliveryID != d.ID || entry.EventID != d.EventID || entry.WebhookID != whID {
		t.Fatalf("reference mismatch: %+v", entry)
	}
	if entry.EventType != "post_updated" {
		t.Fatalf("event type: got %q", entry.EventType)
	}
	if entry.URL != "https://example.com/hook" {
		t.Fatalf("URL mismatch: %q", entry.URL)
	}
	if string(entry.Payload) != `{"object_type":"post"}` {
		t.Fatalf("payload: got %s", entry.Payload)
	}
	if entry.Error != "server error" || entry.AttemptCount != 5 || entry.LastStatusCode != 500 {
		t.Fatalf("failure details mismatch: %+v", entry)
	}
}

func TestListFilters(t *testing.T) {
	svc, _ := newService()
	whA, whB := id.NewWebhookID(), id.NewWebhookID()

	push(t, svc, whA, "post_updated")
	push(t, svc, whA, "post_deleted")
	push(t, svc, whB, "post_updated")

	all, err := svc.List(ctx(), dlq.ListOpts{Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}

	byWebhook, _ := svc.List(ctx(), dlq.ListOpts{WebhookID: &whA})
	if len(byWebhook) != 2 {
		t.Fatalf("expected 2 entries for webhook A, got %d", len(byWebhook))
	}

	byType, _ := svc.List(ctx(), dlq.ListOpts{EventType: "post_updated"})
	if len(byType) != 2 {
		t.Fatalf("expected 2 post_updated entries, got %d", len(byType))
	}
}

func TestGetDLQEntry(t *testing.T) {
	svc, _ := newService()
	push(t, svc, id.NewWebhookID(), "post_updated")

	entries, _ := svc.List(ctx(), dlq.ListOpts{Limit: 1})
	if len(entries) == 0 {
		t.Fatal("expected at least 1 entry")
	}

	got, err := svc.Get(ctx(), entries[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != entries[0].ID {
		t.Fatal("ID mismatch on Get")
	}

	if _, err := svc.Get(ctx(), id.NewDLQID()); err == nil {
		t.Fatal("expected error for unknown entry")
	}
}

func TestCount(t *testing.T) {
	svc, _ := newService()

	count, err := svc.Count(ctx())
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("expected 0, got %d", count)
	}

	for range 5 {
		push(t, svc, id.NewWebhookID(), "term_created")
	}

	count, err = svc.Count(ctx())
	if err != nil {
		t.Fatal(err)
	}
	if count != 5 {
		t.Fatalf("expected 5, got %d", count)
	}
}

func TestReplay(t *testing.T) {
	svc, store := newService()
	whID := id.NewWebhookID()
	d := push(t, svc, whID, "post_updated")

	entries, _ := svc.List(ctx(), dlq.ListOpts{Limit: 1})
	if err := svc.Replay(ctx(), entries[0].ID); err != nil {
		t.Fatal(err)
	}

	got, _ := store.GetDLQ(ctx(), entries[0].ID)
	if got.ReplayedAt == nil {
		t.Fatal("expected replayed_at to be set")
	}

	redeliveries, err := store.ListByEvent(ctx(), d.EventID)
	if err != nil {
		t.Fatal(err)
	}
	if len(redeliveries) != 1 {
		t.Fatalf("expected 1 re-enqueued delivery, got %d", len(redeliveries))
	}
	re := redeliveries[0]
	if re.WebhookID != whID || re.State != delivery.StatePending || re.MaxAttempts != dlq.ReplayMaxAttempts {
		t.Fatalf("unexpected redelivery %+v", re)
	}
}

func TestReplayBulkSkipsReplayed(t *testing.T) {
	svc, _ := newService()
	for range 3 {
		push(t, svc, id.NewWebhookID(), "post_updated")
	}

	from := time.Now().Add(-time.Minute)
	to := time.Now().Add(time.Minute)

	n, err := svc.ReplayBulk(ctx(), from, to)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("expected 3 replayed, got %d", n)
	}

	n, err = svc.ReplayBulk(ctx(), from, to)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("expected already-replayed entries to be skipped, got %d", n)
	}
}

func TestPurge(t *testing.T) {
	svc, _ := newService()
	for range 3 {
		push(t, svc, id.NewWebhookID(), "post_updated")
	}

	purged, err := svc.Purge(ctx(), time.Now().Add(time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if purged != 3 {
		t.Fatalf("expected 3 purged, got %d", purged)
	}

	count, _ := svc.Count(ctx())
	if count != 0 {
		t.Fatalf("expected 0 after purge, got %d", count)
	}
}
