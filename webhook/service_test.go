package webhook_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/xraph/cachehook"
	"github.com/xraph/cachehook/id"
	"github.com/xraph/cachehook/store/memory"
	"github.com/xraph/cachehook/webhook"
)

func ctx() context.Context { return context.Background() }

func strPtr(s string) *string { return &s }

func newService(t *testing.T) *webhook.Service {
	t.Helper()
	filters, err := webhook.NewFilters()
	if err != nil {
		t.Fatal(err)
	}
	return webhook.NewService(memory.New(), filters, nil)
}

func TestWebhookServiceCreate(t *testing.T) {
	svc := newService(t)

	wh, err := svc.Create(ctx(), webhook.Input{
		URL:   "https://example.com/hook",
		Event: "post_updated",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(wh.ID.String(), "wh_") {
		t.Fatalf("expected wh_ ID, got %q", wh.ID)
	}
	if !strings.HasPrefix(wh.Secret, "whsec_") {
		t.Fatalf("expected generated secret, got %q", wh.Secret)
	}
	if !wh.Enabled {
		t.Fatal("expected enabled by default")
	}
	if wh.Name != "post_updated" {
		t.Fatalf("expected name to default to the event, got %q", wh.Name)
	}
}

func TestWebhookServiceCreateValidation(t *testing.T) {
	svc := newService(t)

	tests := []struct {
		name  string
		in    webhook.Input
		field string
	}{
		{"missing url", webhook.Input{Event: "post_created"}, "url"},
		{"relative url", webhook.Input{URL: "/hook", Event: "post_created"}, "url"},
		{"ftp url", webhook.Input{URL: "ftp://example.com", Event: "post_created"}, "url"},
		{"missing event", webhook.Input{URL: "https://example.com"}, "event"},
		{"bad filter", webhook.Input{URL: "https://example.com", Event: "post_created", Filter: strPtr("payload.")}, "filter"},
		{"non-bool filter", webhook.Input{URL: "https://example.com", Event: "post_created", Filter: strPtr(`"text"`)}, "filter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx(), tt.in)
			var verr *webhook.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Fatalf("expected field %q, got %q", tt.field, verr.Field)
			}
		})
	}
}

func TestWebhookServiceGetUpdateDelete(t *testing.T) {
	svc := newService(t)

	wh, err := svc.Create(ctx(), webhook.Input{URL: "https://example.com/hook", Event: "post_created"})
	if err != nil {
		t.Fatal(err)
	}

	got, err := svc.Get(ctx(), wh.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.URL != "https://example.com/hook" {
		t.Fatalf("got URL %q", got.URL)
	}

	updated, err := svc.Update(ctx(), wh.ID, webhook.Input{
		Event:     "post_updated",
		Filter:    strPtr(`payload.cache_keys_observed > 1`),
		RateLimit: 5,
	})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Event != "post_updated" || updated.RateLimit != 5 || updated.Filter == "" {
		t.Fatalf("update not applied: %+v", updated)
	}

	if err := svc.Delete(ctx(), wh.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(ctx(), wh.ID); !errors.Is(err, cachehook.ErrWebhookNotFound) {
		t.Fatalf("expected ErrWebhookNotFound, got %v", err)
	}
}

func TestWebhookServiceListAndEnable(t *testing.T) {
	svc := newService(t)

	for _, evt := range []string{"post_created", "post_created", "term_deleted"} {
		if _, err := svc.Create(ctx(), webhook.Input{URL: "https://example.com", Event: evt}); err != nil {
			t.Fatal(err)
		}
	}

	all, err := svc.List(ctx(), webhook.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3, got %d", len(all))
	}

	posts, _ := svc.List(ctx(), webhook.ListOpts{Event: "post_created"})
	if len(posts) != 2 {
		t.Fatalf("expected 2 post_created webhooks, got %d", len(posts))
	}

	if err := svc.SetEnabled(ctx(), posts[0].ID, false); err != nil {
		t.Fatal(err)
	}
	enabled := true
	active, _ := svc.List(ctx(), webhook.ListOpts{Enabled: &enabled})
	if len(active) != 2 {
		t.Fatalf("expected 2 enabled, got %d", len(active))
	}
}

func TestWebhookServiceRotateSecret(t *testing.T) {
	svc := newService(t)

	wh, _ := svc.Create(ctx(), webhook.Input{URL: "https://example.com", Event: "post_created"})
	old := wh.Secret

	secret, err := svc.RotateSecret(ctx(), wh.ID)
	if err != nil {
		t.Fatal(err)
	}
	if secret == old {
		t.Fatal("expected a new secret")
	}

	got, _ := svc.Get(ctx(), wh.ID)
	if got.Secret != secret {
		t.Fatal("secret not persisted")
	}

	if _, err := svc.RotateSecret(ctx(), id.NewWebhookID()); !errors.Is(err, cachehook.ErrWebhookNotFound) {
		t.Fatalf("expected ErrWebhookNotFound, got %v", err)
	}
}
