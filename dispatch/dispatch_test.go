package dispatch_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/xraph/cachehook/dispatch"
	"github.com/xraph/cachehook/event"
	"github.com/xraph/cachehook/id"
	"github.com/xraph/cachehook/registry"
	"github.com/xraph/cachehook/webhook"
)

type fakeRepo struct {
	allowed []string
	hooks   []*webhook.Webhook
	err     error
}

func (r *fakeRepo) AllowedEvents(context.Context) map[string]struct{} {
	out := make(map[string]struct{}, len(r.allowed))
	for _, n := range r.allowed {
		out[n] = struct{}{}
	}
	return out
}

func (r *fakeRepo) All(context.Context) ([]*webhook.Webhook, error) {
	return r.hooks, r.err
}

type recorder struct {
	mu       sync.Mutex
	calls    []string
	payloads []event.Payload
}

func (r *recorder) Handle(_ context.Context, wh *webhook.Webhook, p event.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, wh.Name)
	r.payloads = append(r.payloads, p)
	return nil
}

func hook(name, evt string) *webhook.Webhook {
	return &webhook.Webhook{ID: id.NewWebhookID(), Name: name, Event: evt, Enabled: true}
}

func ctx() context.Context { return context.Background() }

func TestTriggerFansOutToExactMatches(t *testing.T) {
	rec := &recorder{}
	disabled := hook("off", "post_created")
	disabled.Enabled = false
	repo := &fakeRepo{
		allowed: []string{"post_created"},
		hooks: []*webhook.Webhook{
			hook("a", "post_created"),
			hook("b", "post_updated"),
			hook("c", "post_created"),
			disabled,
		},
	}
	d := dispatch.New(repo, rec)

	d.Trigger(ctx(), "post_created", event.Payload{"object_type": "post"})

	if len(rec.calls) != 2 || rec.calls[0] != "a" || rec.calls[1] != "c" {
		t.Fatalf("expected [a c], got %v", rec.calls)
	}
	if d.Dispatched() != 2 {
		t.Fatalf("expected 2 dispatched, got %d", d.Dispatched())
	}
}

func TestTriggerRejectsUnlistedEvents(t *testing.T) {
	rec := &recorder{}
	repo := &fakeRepo{
		allowed: []string{"post_created"},
		hooks:   []*webhook.Webhook{hook("a", "unregistered_event")},
	}
	before := 0
	d := dispatch.New(repo, rec, dispatch.WithBeforeTrigger(func(context.Context, string, event.Payload) {
		before++
	}))

	d.Trigger(ctx(), "unregistered_event", event.Payload{})

	if len(rec.calls) != 0 {
		t.Fatalf("expected no handler calls, got %v", rec.calls)
	}
	if d.Rejected() != 1 {
		t.Fatalf("expected 1 rejection, got %d", d.Rejected())
	}
	if before != 0 {
		t.Fatal("observers must not run for rejected events")
	}
}

func TestTriggerIsolatesSubscribers(t *testing.T) {
	var called []string
	handler := dispatch.HandlerFunc(func(_ context.Context, wh *webhook.Webhook, _ event.Payload) error {
		called = append(called, wh.Name)
		switch wh.Name {
		case "panics":
			panic("boom")
		case "fails":
			return errors.New("endpoint down")
		}
		return nil
	})
	repo := &fakeRepo{
		allowed: []string{"post_updated"},
		hooks: []*webhook.Webhook{
			hook("panics", "post_updated"),
			hook("fails", "post_updated"),
			hook("ok", "post_updated"),
		},
	}
	d := dispatch.New(repo, handler)

	d.Trigger(ctx(), "post_updated", event.Payload{})

	if len(called) != 3 || called[2] != "ok" {
		t.Fatalf("expected all subscribers attempted, got %v", called)
	}
	if d.Failures() != 2 || d.Dispatched() != 1 {
		t.Fatalf("expected 2 failures and 1 success, got %d/%d", d.Failures(), d.Dispatched())
	}
}

func TestTriggerHooksAndTransforms(t *testing.T) {
	rec := &recorder{}
	repo := &fakeRepo{allowed: []string{"post_updated"}, hooks: []*webhook.Webhook{hook("a", "post_updated")}}

	var order []string
	d := dispatch.New(repo, rec,
		dispatch.WithTransform(func(_ context.Context, _ string, p event.Payload) event.Payload {
			order = append(order, "transform")
			p["severity"] = "info"
			return p
		}),
		dispatch.WithBeforeTrigger(func(_ context.Context, name string, p event.Payload) {
			order = append(order, "before:"+name)
			if p["severity"] != "info" {
				t.Error("before hook should see transformed payload")
			}
		}),
		dispatch.WithAfterTrigger(func(context.Context, string, event.Payload) {
			order = append(order, "after")
		}),
	)

	d.Trigger(ctx(), "post_updated", event.Payload{"object_type": "post"})

	want := []string{"transform", "before:post_updated", "after"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, order)
		}
	}
	if rec.payloads[0]["severity"] != "info" {
		t.Fatal("subscriber should receive transformed payload")
	}
}

func TestTriggerClonesPayloadPerSubscriber(t *testing.T) {
	repo := &fakeRepo{
		allowed: []string{"post_updated"},
		hooks:   []*webhook.Webhook{hook("a", "post_updated"), hook("b", "post_updated")},
	}
	var seen []any
	handler := dispatch.HandlerFunc(func(_ context.Context, _ *webhook.Webhook, p event.Payload) error {
		seen = append(seen, p["mark"])
		p["mark"] = "touched"
		return nil
	})
	d := dispatch.New(repo, handler)

	d.Trigger(ctx(), "post_updated", event.Payload{})

	if seen[0] != nil || seen[1] != nil {
		t.Fatalf("a subscriber's mutation leaked to the next one: %v", seen)
	}
}

func TestTriggerCELFilter(t *testing.T) {
	filters, err := webhook.NewFilters()
	if err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}

	many := hook("many", "post_updated")
	many.Filter = `payload.cache_keys_observed > 2`
	few := hook("few", "post_updated")
	few.Filter = `payload.cache_keys_observed <= 2`
	broken := hook("broken", "post_updated")
	broken.Filter = `payload.nope == 1`

	type snapshot struct {
		ID int64 `json:"id"`
	}
	repo := &fakeRepo{allowed: []string{"post_updated"}, hooks: []*webhook.Webhook{many, few, broken}}
	d := dispatch.New(repo, rec, dispatch.WithFilters(filters))

	d.Trigger(ctx(), "post_updated", event.Payload{
		"cache_keys_observed": 2,
		"objects_affected":    []snapshot{{ID: 1}},
	})

	if len(rec.calls) != 1 || rec.calls[0] != "few" {
		t.Fatalf("expected only [few], got %v", rec.calls)
	}
}

func TestTriggerSchemaValidation(t *testing.T) {
	reg := registry.New()
	reg.Register(registry.Definition{
		Name:    "post_updated",
		Trigger: "save_post",
		Schema:  []byte(`{"type":"object","required":["object_type"]}`),
	})
	rec := &recorder{}
	repo := &fakeRepo{allowed: []string{"post_updated"}, hooks: []*webhook.Webhook{hook("a", "post_updated")}}
	d := dispatch.New(repo, rec, dispatch.WithSchemas(reg, registry.NewValidator()))

	d.Trigger(ctx(), "post_updated", event.Payload{"action": "UPDATE"})
	if len(rec.calls) != 0 {
		t.Fatal("invalid payload should not be dispatched")
	}

	d.Trigger(ctx(), "post_updated", event.Payload{"object_type": "post"})
	if len(rec.calls) != 1 {
		t.Fatalf("valid payload should be dispatched, got %v", rec.calls)
	}
}

func TestTriggerRepositoryError(t *testing.T) {
	rec := &recorder{}
	after := false
	repo := &fakeRepo{allowed: []string{"post_updated"}, err: errors.New("db down")}
	d := dispatch.New(repo, rec, dispatch.WithAfterTrigger(func(context.Context, string, event.Payload) {
		after = true
	}))

	d.Trigger(ctx(), "post_updated", event.Payload{})
	if !after {
		t.Fatal("after hook should still run")
	}
}

func TestRoute(t *testing.T) {
	rec := &recorder{}
	repo := &fakeRepo{allowed: []string{"nodes_purged"}, hooks: []*webhook.Webhook{hook("a", "nodes_purged")}}

	d := dispatch.New(repo, rec, dispatch.WithShouldHandle(func(_ context.Context, _ registry.Definition, args []any) bool {
		return len(args) == 0 || args[0] != "skip-me"
	}))

	def := registry.Definition{
		Name:    "nodes_purged",
		Trigger: "graphql_purge_nodes",
		Handler: func(_ context.Context, args []any) (event.Payload, error) {
			return event.Payload{"cache_key": args[0]}, nil
		},
	}

	if err := d.Route(ctx(), def, []any{"skip-me"}); err != nil {
		t.Fatal(err)
	}
	if len(rec.calls) != 0 {
		t.Fatal("gate should have skipped the event")
	}

	if err := d.Route(ctx(), def, []any{"k1"}); err != nil {
		t.Fatal(err)
	}
	if len(rec.calls) != 1 || rec.payloads[0]["cache_key"] != "k1" {
		t.Fatalf("expected one routed dispatch, got %v", rec.payloads)
	}

	def.Handler = func(context.Context, []any) (event.Payload, error) {
		return nil, errors.New("bad args")
	}
	if err := d.Route(ctx(), def, nil); err == nil {
		t.Fatal("expected handler error to be returned")
	}
}
