package registry_test

import (
	"context"
	"testing"

	"github.com/xraph/cachehook/bus"
	"github.com/xraph/cachehook/event"
	"github.com/xraph/cachehook/registry"
)

type recordingRouter struct {
	calls []string
	args  [][]any
}

func (r *recordingRouter) Route(_ context.Context, def registry.Definition, args []any) error {
	r.calls = append(r.calls, def.Name)
	r.args = append(r.args, args)
	return nil
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	r := registry.New()

	first := registry.Definition{Name: "post_updated", Trigger: "save_post", Description: "first"}
	if !r.Register(first) {
		t.Fatal("expected first register to succeed")
	}

	second := registry.Definition{Name: "post_updated", Trigger: "other", Description: "second"}
	if r.Register(second) {
		t.Fatal("expected duplicate register to fail")
	}

	got, ok := r.Get("post_updated")
	if !ok {
		t.Fatal("expected definition")
	}
	if got.Description != "first" || got.Trigger != "save_post" {
		t.Fatalf("duplicate register mutated definition: %+v", got)
	}
	if len(r.All()) != 1 {
		t.Fatalf("expected 1 definition, got %d", len(r.All()))
	}
}

func TestRegisterRequiresNameAndTrigger(t *testing.T) {
	r := registry.New()

	if r.Register(registry.Definition{Trigger: "t"}) {
		t.Fatal("expected missing name to fail")
	}
	if r.Register(registry.Definition{Name: "n"}) {
		t.Fatal("expected missing trigger to fail")
	}
}

func TestGetMissing(t *testing.T) {
	r := registry.New()
	if _, ok := r.Get("nope"); ok {
		t.Fatal("expected miss")
	}
}

func TestAttachAllRoutesThroughRouter(t *testing.T) {
	r := registry.New()
	b := bus.New(nil)
	router := &recordingRouter{}

	handlerCalled := false
	r.Register(registry.Definition{
		Name:     "cache_purged",
		Trigger:  "graphql_purge",
		Priority: 10,
		ArgCount: 2,
		Handler: func(context.Context, []any) (event.Payload, error) {
			handlerCalled = true
			return nil, nil
		},
	})
	r.Register(registry.Definition{
		Name:     "nodes_purged",
		Trigger:  "graphql_purge_nodes",
		Priority: 10,
	})

	subs := r.AttachAll(b, router)
	if len(subs) != 2 {
		t.Fatalf("expected 2 subscriptions, got %d", len(subs))
	}

	b.Publish(context.Background(), "graphql_purge", "key", "post_UPDATE", "/graphql")

	if handlerCalled {
		t.Fatal("handler must not be called directly by the bus")
	}
	if len(router.calls) != 1 || router.calls[0] != "cache_purged" {
		t.Fatalf("expected one routed call, got %v", router.calls)
	}
	if len(router.args[0]) != 2 {
		t.Fatalf("expected args truncated to 2, got %d", len(router.args[0]))
	}
}

func TestSchema(t *testing.T) {
	r := registry.New()
	r.Register(registry.Definition{Name: "a", Trigger: "t", Schema: []byte(`{"type":"object"}`)})
	r.Register(registry.Definition{Name: "b", Trigger: "t"})

	if _, ok := r.Schema("a"); !ok {
		t.Fatal("expected schema for a")
	}
	if _, ok := r.Schema("b"); ok {
		t.Fatal("expected no schema for b")
	}
}

func TestNamesInRegistrationOrder(t *testing.T) {
	r := registry.New()
	for _, n := range []string{"c", "a", "b"} {
		r.Register(registry.Definition{Name: n, Trigger: "t"})
	}
	names := r.Names()
	if names[0] != "c" || names[1] != "a" || names[2] != "b" {
		t.Fatalf("unexpected order %v", names)
	}
}
