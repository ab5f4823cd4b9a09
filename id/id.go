// Package id defines TypeID-based identifiers for persisted cachehook entities.
//
// IDs render as "prefix_suffix" where the suffix is a UUIDv7, so they sort by
// creation time and are safe to use in URLs and storage keys.
package id

import (
	"database/sql/driver"
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix names the entity kind carried by an ID.
type Prefix string

const (
	PrefixWebhook  Prefix = "wh"
	PrefixEvent    Prefix = "evt"
	PrefixDelivery Prefix = "del"
	PrefixDLQ      Prefix = "dlq"
	PrefixSecret   Prefix = "whsec"
)

// ID identifies a webhook, event, delivery or DLQ entry.
//
//nolint:recvcheck // value receivers for reads, pointer receivers for decoding.
type ID struct {
	tid typeid.TypeID
	ok  bool
}

// Nil is the zero ID.
var Nil ID

// New generates an ID with the given prefix. An invalid prefix is a
// programming error and panics.
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: generate %q: %v", prefix, err))
	}
	return ID{tid: tid, ok: true}
}

// Parse decodes any TypeID string.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse: empty string")
	}
	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}
	return ID{tid: tid, ok: true}, nil
}

// ParseWithPrefix decodes s and checks that it carries the expected prefix.
func ParseWithPrefix(s string, want Prefix) (ID, error) {
	v, err := Parse(s)
	if err != nil {
		return Nil, err
	}
	if got := v.Prefix(); got != want {
		return Nil, fmt.Errorf("id: %q has prefix %q, want %q", s, got, want)
	}
	return v, nil
}

// MustParse is Parse for literals; it panics on error.
func MustParse(s string) ID {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func NewWebhookID() ID  { return New(PrefixWebhook) }
func NewEventID() ID    { return New(PrefixEvent) }
func NewDeliveryID() ID { return New(PrefixDelivery) }
func NewDLQID() ID      { return New(PrefixDLQ) }

func ParseWebhookID(s string) (ID, error)  { return ParseWithPrefix(s, PrefixWebhook) }
func ParseEventID(s string) (ID, error)    { return ParseWithPrefix(s, PrefixEvent) }
func ParseDeliveryID(s string) (ID, error) { return ParseWithPrefix(s, PrefixDelivery) }
func ParseDLQID(s string) (ID, error)      { return ParseWithPrefix(s, PrefixDLQ) }

// String returns "prefix_suffix", or "" for Nil.
func (i ID) String() string {
	if !i.ok {
		return ""
	}
	return i.tid.String()
}

// Prefix returns the entity prefix, or "" for Nil.
func (i ID) Prefix() Prefix {
	if !i.ok {
		return ""
	}
	return Prefix(i.tid.Prefix())
}

// IsNil reports whether i is the zero ID.
func (i ID) IsNil() bool { return !i.ok }

// MarshalText implements encoding.TextMarshaler.
func (i ID) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty input yields Nil.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil
		return nil
	}
	v, err := Parse(string(data))
	if err != nil {
		return err
	}
	*i = v
	return nil
}

// Value implements driver.Valuer; Nil is stored as NULL.
func (i ID) Value() (driver.Value, error) {
	if !i.ok {
		return nil, nil //nolint:nilnil // NULL
	}
	return i.tid.String(), nil
}

// Scan implements sql.Scanner.
func (i *ID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*i = Nil
		return nil
	case string:
		return i.UnmarshalText([]byte(v))
	case []byte:
		return i.UnmarshalText(v)
	default:
		return fmt.Errorf("id: cannot scan %T", src)
	}
}
