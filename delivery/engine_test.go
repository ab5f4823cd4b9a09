package delivery_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/cachehook"
	"github.com/xraph/cachehook/delivery"
	"github.com/xraph/cachehook/event"
	"github.com/xraph/cachehook/id"
	"github.com/xraph/cachehook/store/memory"
	"github.com/xraph/cachehook/webhook"
)

// stubDLQ records pushed deliveries.
type stubDLQ struct {
	mu     sync.Mutex
	pushed []*delivery.Delivery
	count  atomic.Int32
}

func (s *stubDLQ) PushFailed(_ context.Context, d *delivery.Delivery, _ *webhook.Webhook, _ *event.Event, _ string, _ int) error {
	s.mu.Lock()
	s.pushed = append(s.pushed, d)
	s.mu.Unlock()
	s.count.Add(1)
	return nil
}

func setupEngine(t *testing.T, handler http.Handler, dlq delivery.DLQPusher) (*memory.Store, *delivery.Engine, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)

	store := memory.New()
	cfg := delivery.EngineConfig{
		Concurrency:    2,
		PollInterval:   20 * time.Millisecond,
		BatchSize:      10,
		RequestTimeout: 5 * time.Second,
		RetrySchedule:  []time.Duration{10 * time.Millisecond, 20 * time.Millisecond},
		IsNotFound:     cachehook.IsNotFound,
	}

	engine := delivery.NewEngine(store, dlq, cfg, nil)
	return store, engine, srv
}

// createTestData stores an enabled webhook and hands one payload to the
// Handler, which persists the event and enqueues the delivery.
func createTestData(t *testing.T, store *memory.Store, url string) (*webhook.Webhook, *delivery.Delivery) {
	t.Helper()
	ctx := context.Background()

	wh := newTestWebhook(url)
	if err := store.CreateWebhook(ctx, wh); err != nil {
		t.Fatal(err)
	}

	h := delivery.NewHandler(store, 3, nil, nil)
	if err := h.Handle(ctx, wh, event.Payload{"object_type": "post", "action": "UPDATE"}); err != nil {
		t.Fatal(err)
	}

	ds, err := store.ListByWebhook(ctx, wh.ID, delivery.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(ds) != 1 {
		t.Fatalf("expected 1 enqueued delivery, got %d", len(ds))
	}
	return wh, ds[0]
}

func waitForState(t *testing.T, store *memory.Store, delID id.ID, want delivery.State, timeout time.Duration) *delivery.Delivery {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case <-deadline:
			t.Fatalf("timeout waiting for delivery state %q", want)
		default:
		}

		got, err := store.GetDelivery(context.Background(), delID)
		if err != nil {
			t.Fatal(err)
		}
		if got.State == want {
			return got
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHandlerPersistsEventAndDelivery(t *testing.T) {
	store := memory.New()
	wh, del := createTestData(t, store, "https://example.com/hook")

	if del.State != delivery.StatePending || del.MaxAttempts != 3 || del.WebhookID != wh.ID {
		t.Fatalf("unexpected delivery %+v", del)
	}

	evt, err := store.GetEvent(context.Background(), del.EventID)
	if err != nil {
		t.Fatal(err)
	}
	if evt.Type != "post_updated" || evt.WebhookID != wh.ID || evt.Data["object_type"] != "post" {
		t.Fatalf("unexpected event %+v", evt)
	}
}

func TestEngineDeliversSuccessfully(t *testing.T) {
	var delivered atomic.Int32

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		delivered.Add(1)
		w.WriteHeader(http.StatusOK)
	})

	dlq := &stubDLQ{}
	store, engine, srv := setupEngine(t, handler, dlq)
	defer srv.Close()

	_, del := createTestData(t, store, srv.URL)

	ctx := context.Background()
	engine.Start(ctx)
	got := waitForState(t, store, del.ID, delivery.StateDelivered, 2*time.Second)
	engine.Stop(ctx)

	if delivered.Load() != 1 {
		t.Fatalf("expected 1 delivery, got %d", delivered.Load())
	}
	if got.AttemptCount != 1 || got.CompletedAt == nil || got.LastStatusCode != 200 {
		t.Fatalf("unexpected delivery record %+v", got)
	}
	if dlq.count.Load() != 0 {
		t.Fatal("expected no DLQ pushes")
	}
}

func TestEngineRetriesAndSucceeds(t *testing.T) {
	var attempts atomic.Int32

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	dlq := &stubDLQ{}
	store, engine, srv := setupEngine(t, handler, dlq)
	defer srv.Close()

	_, del := createTestData(t, store, srv.URL)

	ctx := context.Background()
	engine.Start(ctx)
	waitForState(t, store, del.ID, delivery.StateDelivered, 5*time.Second)
	engine.Stop(ctx)

	if attempts.Load() < 3 {
		t.Fatalf("expected at least 3 attempts, got %d", attempts.Load())
	}
	if dlq.count.Load() != 0 {
		t.Fatal("expected no DLQ pushes")
	}
}

func TestEngineExhaustsRetriesAndDLQs(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	dlqPusher := &stubDLQ{}
	store, engine, srv := setupEngine(t, handler, dlqPusher)
	defer srv.Close()

	_, del := createTestData(t, store, srv.URL)

	ctx := context.Background()
	engine.Start(ctx)
	got := waitForState(t, store, del.ID, delivery.StateFailed, 5*time.Second)
	engine.Stop(ctx)

	if got.AttemptCount != 3 {
		t.Fatalf("expected 3 attempts, got %d", got.AttemptCount)
	}
	if dlqPusher.count.Load() != 1 {
		t.Fatalf("expected 1 DLQ push, got %d", dlqPusher.count.Load())
	}
}

func TestEngine410DisablesWebhook(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusGone)
	})

	dlqPusher := &stubDLQ{}
	store, engine, srv := setupEngine(t, handler, dlqPusher)
	defer srv.Close()

	wh, del := createTestData(t, store, srv.URL)

	ctx := context.Background()
	engine.Start(ctx)
	waitForState(t, store, del.ID, delivery.StateFailed, 2*time.Second)
	engine.Stop(ctx)

	whGot, err := store.GetWebhook(ctx, wh.ID)
	if err != nil {
		t.Fatal(err)
	}
	if whGot.Enabled {
		t.Fatal("expected webhook to be disabled after 410")
	}
	if dlqPusher.count.Load() != 1 {
		t.Fatalf("expected 1 DLQ push for 410, got %d", dlqPusher.count.Load())
	}
}

func TestEngineSkipsDisabledWebhook(t *testing.T) {
	var hits atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	})

	dlqPusher := &stubDLQ{}
	store, engine, srv := setupEngine(t, handler, dlqPusher)
	defer srv.Close()

	wh, del := createTestData(t, store, srv.URL)
	if err := store.SetWebhookEnabled(context.Background(), wh.ID, false); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	engine.Start(ctx)
	got := waitForState(t, store, del.ID, delivery.StateFailed, 2*time.Second)
	engine.Stop(ctx)

	if hits.Load() != 0 {
		t.Fatal("a disabled webhook must not receive deliveries")
	}
	if got.LastError != "webhook disabled" {
		t.Fatalf("unexpected last error %q", got.LastError)
	}
	if dlqPusher.count.Load() != 0 {
		t.Fatal("abandoned deliveries are not dead-lettered")
	}
}

func TestEngineRespectsRateLimit(t *testing.T) {
	var mu sync.Mutex
	var stamps []time.Time
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		stamps = append(stamps, time.Now())
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})

	store, engine, srv := setupEngine(t, handler, nil)
	defer srv.Close()

	wh := newTestWebhook(srv.URL)
	wh.RateLimit = 2
	if err := store.CreateWebhook(context.Background(), wh); err != nil {
		t.Fatal(err)
	}
	h := delivery.NewHandler(store, 3, nil, nil)
	for range 3 {
		if err := h.Handle(context.Background(), wh, event.Payload{"n": 1}); err != nil {
			t.Fatal(err)
		}
	}

	ctx := context.Background()
	engine.Start(ctx)
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if n, _ := store.CountPending(ctx); n == 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	engine.Stop(ctx)

	mu.Lock()
	defer mu.Unlock()
	if len(stamps) != 3 {
		t.Fatalf("expected 3 deliveries, got %d", len(stamps))
	}
	first, last := stamps[0], stamps[0]
	for _, s := range stamps {
		if s.Before(first) {
			first = s
		}
		if s.After(last) {
			last = s
		}
	}
	// Burst of 2, the third token refills after 500ms.
	if last.Sub(first) < 300*time.Millisecond {
		t.Fatalf("expected the third delivery to be throttled, spread was %v", last.Sub(first))
	}
}

func TestEngineGracefulShutdown(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	store, engine, srv := setupEngine(t, handler, nil)
	defer srv.Close()

	for range 5 {
		createTestData(t, store, srv.URL)
	}

	ctx := context.Background()
	engine.Start(ctx)
	engine.Start(ctx)

	time.Sleep(200 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	engine.Stop(stopCtx)
	engine.Stop(stopCtx)

	pending, err := store.CountPending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if pending != 0 {
		t.Fatalf("expected all deliveries completed, %d pending", pending)
	}
}

func TestEngineNilDLQ(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	store, engine, srv := setupEngine(t, handler, nil)
	defer srv.Close()

	_, del := createTestData(t, store, srv.URL)

	ctx := context.Background()
	engine.Start(ctx)
	got := waitForState(t, store, del.ID, delivery.StateFailed, 2*time.Second)
	engine.Stop(ctx)

	if got.AttemptCount != 1 {
		t.Fatalf("4xx must dead-letter on the first attempt, got %d attempts", got.AttemptCount)
	}
}

func TestEngineAbandonsMissingWebhook(t *testing.T) {
	store, engine, srv := setupEngine(t, http.NotFoundHandler(), nil)
	defer srv.Close()

	wh, del := createTestData(t, store, srv.URL)
	if err := store.DeleteWebhook(context.Background(), wh.ID); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	engine.Start(ctx)
	got := waitForState(t, store, del.ID, delivery.StateFailed, 2*time.Second)
	engine.Stop(ctx)

	if got.LastError != "webhook not found" {
		t.Fatalf("unexpected last error %q", got.LastError)
	}
}

// flakyStore fails the first GetWebhook call with a connection error.
type flakyStore struct {
	*memory.Store
	calls atomic.Int32
}

func (s *flakyStore) GetWebhook(ctx context.Context, whID id.ID) (*webhook.Webhook, error) {
	if s.calls.Add(1) == 1 {
		return nil, errors.New("connection reset by peer")
	}
	return s.Store.GetWebhook(ctx, whID)
}

func TestEngineRetriesTransientLookupError(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	mem := memory.New()
	_, del := createTestData(t, mem, srv.URL)

	store := &flakyStore{Store: mem}
	engine := delivery.NewEngine(store, nil, delivery.EngineConfig{
		PollInterval:  20 * time.Millisecond,
		RetrySchedule: []time.Duration{10 * time.Millisecond},
		IsNotFound:    cachehook.IsNotFound,
	}, nil)

	ctx := context.Background()
	engine.Start(ctx)
	got := waitForState(t, mem, del.ID, delivery.StateDelivered, 2*time.Second)
	engine.Stop(ctx)

	if store.calls.Load() < 2 {
		t.Fatalf("expected the webhook lookup to be retried, got %d calls", store.calls.Load())
	}
	if hits.Load() != 1 {
		t.Fatalf("expected 1 delivery to the receiver, got %d", hits.Load())
	}
	if got.AttemptCount != 1 || got.LastError != "" {
		t.Fatalf("a failed lookup must not spend an attempt: %+v", got)
	}
}
