// Package registry holds named event definitions and attaches them to a bus.
package registry

import (
	"context"
	"errors"
	"sync"

	"github.com/xraph/cachehook/bus"
)

// ErrDuplicate is returned by callers that need an error for a rejected
// Register call.
var ErrDuplicate = errors.New("cachehook: event definition already registered")

// Registry stores event definitions keyed by name.
type Registry struct {
	mu    sync.RWMutex
	defs  map[string]Definition
	order []string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

// Register stores def. It returns false, leaving the registry untouched,
// when def has no name or trigger or when the name is already taken.
func (r *Registry) Register(def Definition) bool {
	if def.Name == "" || def.Trigger == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[def.Name]; exists {
		return false
	}
	r.defs[def.Name] = def
	r.order = append(r.order, def.Name)
	return true
}

// Get returns the definition registered under name.
func (r *Registry) Get(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.defs[name]
	return def, ok
}

// All returns a copy of every registered definition keyed by name.
func (r *Registry) All() map[string]Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Definition, len(r.defs))
	for name, def := range r.defs {
		out[name] = def
	}
	return out
}

// Names returns definition names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Schema returns the JSON Schema attached to name, if any.
func (r *Registry) Schema(name string) ([]byte, bool) {
	def, ok := r.Get(name)
	if !ok || len(def.Schema) == 0 {
		return nil, false
	}
	return def.Schema, true
}

// Attach subscribes a single definition on b. The bus handler never calls
// def.Handler directly; it hands the invocation to router.
func Attach(b *bus.Bus, router Router, def Definition) bus.Subscription {
	return b.Subscribe(def.Trigger, func(ctx context.Context, args []any) error {
		return router.Route(ctx, def, args)
	}, def.Priority, def.ArgCount)
}

// AttachAll subscribes every registered definition on b, in registration
// order.
func (r *Registry) AttachAll(b *bus.Bus, router Router) []bus.Subscription {
	names := r.Names()
	subs := make([]bus.Subscription, 0, len(names))
	for _, name := range names {
		def, _ := r.Get(name)
		subs = append(subs, Attach(b, router, def))
	}
	return subs
}
