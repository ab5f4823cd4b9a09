package event

import (
	"maps"
	"time"

	"github.com/xraph/cachehook/id"
	"github.com/xraph/cachehook/internal/entity"
)

// Payload is the mutable body handed to the dispatcher. Transforms may add
// or overwrite fields before subscribers see it.
type Payload map[string]any

// Clone returns a shallow copy so each subscriber gets its own top-level map.
func (p Payload) Clone() Payload {
	if p == nil {
		return Payload{}
	}
	return maps.Clone(p)
}

// Event is one outbound webhook message, recorded when a dispatched payload
// is handed to a matching webhook.
type Event struct {
	entity.Entity

	ID id.ID `json:"id"`

	// Type is the dispatched event name (e.g. "post_updated").
	Type string `json:"type"`

	// WebhookID is the subscription the message was produced for.
	WebhookID id.ID `json:"webhook_id"`

	Data Payload `json:"data"`
}

// ListOpts configures filtering and pagination for event listing.
type ListOpts struct {
	Offset int
	Limit  int
	Type   string
	From   *time.Time
	To     *time.Time
}

// Action is the kind of change a trigger reports.
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// Suffix returns the event-name suffix for a, e.g. "created". Unknown
// actions report false.
func (a Action) Suffix() (string, bool) {
	switch a {
	case ActionCreate:
		return "created", true
	case ActionUpdate:
		return "updated", true
	case ActionDelete:
		return "deleted", true
	default:
		return "", false
	}
}

// Name builds the outbound event name for objectType, e.g. "post_updated".
func Name(objectType string, a Action) (string, bool) {
	suffix, ok := a.Suffix()
	if !ok {
		return "", false
	}
	return objectType + "_" + suffix, true
}

// NodesPurged is the event name for bulk node purges.
const NodesPurged = "nodes_purged"
