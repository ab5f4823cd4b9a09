// Package trigger defines the contract between purge signal sources and the
// engine, and the JSON message shape shared by queue-backed sources.
package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidMessage is returned for messages that carry no cache key.
var ErrInvalidMessage = errors.New("trigger: invalid purge message")

// Sink receives purge signals. *cachehook.Engine implements it.
type Sink interface {
	// Purge reports one purged key with its "{object_type}_{ACTION}"
	// descriptor and the endpoint whose cache was purged.
	Purge(ctx context.Context, key, descriptor, sourceEndpoint string)

	// PurgeNodes reports a bulk purge of graph nodes.
	PurgeNodes(ctx context.Context, key string, nodes []string)
}

// Message is one purge signal on the wire. A message with a "nodes" field,
// even an empty one, is a bulk purge.
type Message struct {
	Key            string   `json:"key"`
	Descriptor     string   `json:"descriptor,omitempty"`
	SourceEndpoint string   `json:"source_endpoint,omitempty"`
	Nodes          []string `json:"nodes,omitempty"`
}

// Bulk reports whether m is a node purge.
func (m Message) Bulk() bool { return m.Nodes != nil }

// Decode parses a JSON purge message.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	if m.Key == "" {
		return Message{}, fmt.Errorf("%w: missing key", ErrInvalidMessage)
	}
	return m, nil
}

// Apply hands m to sink.
func (m Message) Apply(ctx context.Context, sink Sink) {
	if m.Bulk() {
		sink.PurgeNodes(ctx, m.Key, m.Nodes)
		return
	}
	sink.Purge(ctx, m.Key, m.Descriptor, m.SourceEndpoint)
}
