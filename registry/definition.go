package registry

import (
	"context"
	"encoding/json"

	"github.com/xraph/cachehook/event"
)

// HandlerFunc turns the raw arguments of a trigger into a payload. A nil
// payload means the handler consumed the arguments itself (for example by
// buffering them) and nothing is dispatched right away.
type HandlerFunc func(ctx context.Context, args []any) (event.Payload, error)

// Definition describes a named event and the trigger it listens on.
// Definitions are immutable once registered.
type Definition struct {
	// Name is unique within a Registry, e.g. "nodes_purged".
	Name string `json:"name"`

	// Trigger is the bus topic the handler subscribes to.
	Trigger string `json:"trigger"`

	// Priority orders subscribers on the same topic; lower runs first.
	Priority int `json:"priority"`

	// ArgCount caps the number of trigger arguments passed to Handler.
	// Zero passes all of them.
	ArgCount int `json:"arg_count"`

	Handler HandlerFunc `json:"-"`

	// Description is a human-readable explanation of when the event fires.
	Description string `json:"description,omitempty"`

	// Schema is an optional JSON Schema the dispatched payload must satisfy.
	Schema json.RawMessage `json:"schema,omitempty"`
}

// Router receives every invocation of an attached definition.
type Router interface {
	Route(ctx context.Context, def Definition, args []any) error
}
