package webhook_test

import (
	"testing"

	"github.com/xraph/cachehook/webhook"
)

func TestFiltersMatch(t *testing.T) {
	f, err := webhook.NewFilters()
	if err != nil {
		t.Fatal(err)
	}

	payload := map[string]any{
		"object_type":         "post",
		"cache_keys_observed": 3,
		"objects_affected": []any{
			map[string]any{"id": 1, "status": "publish"},
		},
	}

	tests := []struct {
		expr string
		want bool
	}{
		{"", true},
		{`event == "post_updated"`, true},
		{`event == "post_created"`, false},
		{`payload.object_type == "post" && payload.cache_keys_observed >= 2`, true},
		{`payload.objects_affected.exists(o, o.status == "draft")`, false},
		{`size(payload.objects_affected) == 1`, true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := f.Match(tt.expr, "post_updated", payload)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Fatalf("Match(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestFiltersErrors(t *testing.T) {
	f, _ := webhook.NewFilters()

	if err := f.Compile("payload."); err == nil {
		t.Fatal("expected compile error")
	}
	if err := f.Compile(`1 + 1`); err == nil {
		t.Fatal("expected non-bool expression to be rejected")
	}
	if _, err := f.Match(`payload.missing == 1`, "e", map[string]any{}); err == nil {
		t.Fatal("expected eval error for a missing key")
	}
}

func TestWebhookMatches(t *testing.T) {
	wh := &webhook.Webhook{Event: "post_created", Enabled: true}
	if !wh.Matches("post_created") {
		t.Fatal("expected match")
	}
	if wh.Matches("post_created_extra") {
		t.Fatal("match must be exact")
	}
	wh.Enabled = false
	if wh.Matches("post_created") {
		t.Fatal("disabled webhooks never match")
	}
}
