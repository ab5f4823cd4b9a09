package bus_test

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/cachehook/bus"
)

func TestPublishPriorityOrder(t *testing.T) {
	b := bus.New(nil)

	var order []string
	record := func(name string) bus.Handler {
		return func(_ context.Context, _ []any) error {
			order = append(order, name)
			return nil
		}
	}

	b.Subscribe("graphql_purge", record("late"), 20, 0)
	b.Subscribe("graphql_purge", record("early"), 5, 0)
	b.Subscribe("graphql_purge", record("default-a"), 10, 0)
	b.Subscribe("graphql_purge", record("default-b"), 10, 0)
	b.Subscribe("other", record("other"), 0, 0)

	n := b.Publish(context.Background(), "graphql_purge")
	if n != 4 {
		t.Fatalf("expected 4 handlers, got %d", n)
	}

	want := []string{"early", "default-a", "default-b", "late"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, order)
		}
	}
}

func TestPublishTruncatesArgs(t *testing.T) {
	b := bus.New(nil)

	var got []any
	b.Subscribe("purge", func(_ context.Context, args []any) error {
		got = args
		return nil
	}, 10, 2)

	b.Publish(context.Background(), "purge", "key", "post_UPDATE", "/graphql")

	if len(got) != 2 {
		t.Fatalf("expected 2 args, got %d", len(got))
	}
	if got[0] != "key" || got[1] != "post_UPDATE" {
		t.Fatalf("unexpected args %v", got)
	}
}

func TestPublishIsolatesFailures(t *testing.T) {
	b := bus.New(nil)

	called := false
	b.Subscribe("purge", func(context.Context, []any) error {
		panic("boom")
	}, 1, 0)
	b.Subscribe("purge", func(context.Context, []any) error {
		return errors.New("nope")
	}, 2, 0)
	b.Subscribe("purge", func(context.Context, []any) error {
		called = true
		return nil
	}, 3, 0)

	n := b.Publish(context.Background(), "purge")
	if !called {
		t.Fatal("expected last subscriber to run")
	}
	if n != 1 {
		t.Fatalf("expected 1 success, got %d", n)
	}
}

func TestUnsubscribe(t *testing.T) {
	b := bus.New(nil)

	calls := 0
	sub := b.Subscribe("purge.*", func(context.Context, []any) error {
		calls++
		return nil
	}, 10, 0)

	b.Publish(context.Background(), "purge.nodes")
	if !b.Unsubscribe(sub) {
		t.Fatal("expected unsubscribe to succeed")
	}
	if b.Unsubscribe(sub) {
		t.Fatal("second unsubscribe should report false")
	}
	b.Publish(context.Background(), "purge.nodes")

	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
	if b.Len() != 0 {
		t.Fatalf("expected 0 subscriptions, got %d", b.Len())
	}
}
