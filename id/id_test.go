package id_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/xraph/cachehook/id"
)

func TestNewHasPrefix(t *testing.T) {
	wh := id.NewWebhookID()
	if !strings.HasPrefix(wh.String(), "wh_") {
		t.Fatalf("expected wh_ prefix, got %q", wh.String())
	}
	if wh.Prefix() != id.PrefixWebhook {
		t.Fatalf("expected prefix %q, got %q", id.PrefixWebhook, wh.Prefix())
	}
	if wh.IsNil() {
		t.Fatal("generated ID should not be nil")
	}
}

func TestParseWithPrefixMismatch(t *testing.T) {
	evt := id.NewEventID()

	if _, err := id.ParseWebhookID(evt.String()); err == nil {
		t.Fatal("expected prefix mismatch error")
	}

	got, err := id.ParseEventID(evt.String())
	if err != nil {
		t.Fatal(err)
	}
	if got != evt {
		t.Fatalf("round trip mismatch: %s vs %s", got, evt)
	}
}

func TestParseEmpty(t *testing.T) {
	if _, err := id.Parse(""); err == nil {
		t.Fatal("expected error for empty string")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	type wrapper struct {
		ID    id.ID `json:"id"`
		Empty id.ID `json:"empty"`
	}
	in := wrapper{ID: id.NewDeliveryID()}

	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}

	var out wrapper
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatal(err)
	}
	if out.ID != in.ID {
		t.Fatalf("expected %s, got %s", in.ID, out.ID)
	}
	if !out.Empty.IsNil() {
		t.Fatal("expected empty ID to decode as Nil")
	}
}

func TestScan(t *testing.T) {
	dlq := id.NewDLQID()

	var got id.ID
	if err := got.Scan(dlq.String()); err != nil {
		t.Fatal(err)
	}
	if got != dlq {
		t.Fatalf("expected %s, got %s", dlq, got)
	}

	if err := got.Scan(nil); err != nil {
		t.Fatal(err)
	}
	if !got.IsNil() {
		t.Fatal("expected Nil after scanning NULL")
	}

	if err := got.Scan(42); err == nil {
		t.Fatal("expected error scanning int")
	}
}
