package resolve_test

import (
	"context"
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/xraph/cachehook/content"
	"github.com/xraph/cachehook/event"
	"github.com/xraph/cachehook/resolve"
)

func seeded() *content.Memory {
	m := content.NewMemory()
	m.PutPost(content.Post{ID: 1, Type: "post", Title: "Hello", Status: "publish", Link: "https://example.com/hello"})
	m.PutTerm(content.Term{ID: 2, Taxonomy: "category", Name: "News"})
	m.PutUser(content.User{ID: 3, Name: "Ada"})
	return m
}

func TestNewRejectsUnknownKind(t *testing.T) {
	_, err := resolve.New(map[resolve.Kind]resolve.Fetcher{
		"posts": func(context.Context, int64) (*resolve.Snapshot, error) { return nil, nil },
	})
	if !errors.Is(err, resolve.ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestResolveFetchesByKind(t *testing.T) {
	r, err := resolve.New(resolve.ContentFetchers(seeded()))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	snap, err := r.Resolve(ctx, "post", 1, event.ActionUpdate)
	if err != nil {
		t.Fatal(err)
	}
	if snap == nil || snap.Name != "Hello" || snap.Status != "publish" || snap.Deleted {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	snap, _ = r.Resolve(ctx, "category", 2, event.ActionCreate)
	if snap == nil || snap.Name != "News" || snap.Type != "category" {
		t.Fatalf("unexpected term snapshot %+v", snap)
	}

	snap, _ = r.Resolve(ctx, "user", 3, event.ActionUpdate)
	if snap == nil || snap.Name != "Ada" {
		t.Fatalf("unexpected user snapshot %+v", snap)
	}
}

func TestResolveMissingAndUnknown(t *testing.T) {
	r, _ := resolve.New(resolve.ContentFetchers(seeded()))
	ctx := context.Background()

	snap, err := r.Resolve(ctx, "post", 99, event.ActionUpdate)
	if err != nil || snap != nil {
		t.Fatalf("expected nil for a missing object, got %+v, %v", snap, err)
	}

	snap, err = r.Resolve(ctx, "comment", 1, event.ActionUpdate)
	if err != nil || snap != nil {
		t.Fatalf("expected nil for an unknown type, got %+v, %v", snap, err)
	}
}

func TestResolveFetcherError(t *testing.T) {
	r, _ := resolve.New(map[resolve.Kind]resolve.Fetcher{
		resolve.KindPost: func(context.Context, int64) (*resolve.Snapshot, error) {
			return nil, errors.New("db down")
		},
	})
	snap, err := r.Resolve(context.Background(), "post", 1, event.ActionCreate)
	if err == nil || snap != nil {
		t.Fatalf("expected an error, got %+v, %v", snap, err)
	}
}

func TestResolveDeleteNeverFetches(t *testing.T) {
	calls := 0
	count := func(context.Context, int64) (*resolve.Snapshot, error) {
		calls++
		return &resolve.Snapshot{}, nil
	}
	r, _ := resolve.New(map[resolve.Kind]resolve.Fetcher{
		resolve.KindPost: count,
		resolve.KindTerm: count,
		resolve.KindUser: count,
	})

	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("DELETE short-circuits to a deleted snapshot", prop.ForAll(
		func(typ string, id int64) bool {
			snap, err := r.Resolve(context.Background(), typ, id, event.ActionDelete)
			return err == nil &&
				snap != nil &&
				snap.ID == id &&
				snap.Type == typ &&
				snap.Deleted
		},
		gen.OneConstOf("post", "page", "category", "user", "anything"),
		gen.Int64Range(1, 1<<40),
	))

	properties.TestingRun(t)

	if calls != 0 {
		t.Fatalf("expected no fetcher calls, got %d", calls)
	}
}
