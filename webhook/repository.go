package webhook

import (
	"context"
	"sort"
	"sync"
)

const pageSize = 200

// Repository answers the two questions the dispatcher asks: which event
// names may be dispatched, and which webhooks exist.
type Repository struct {
	store Store

	mu      sync.RWMutex
	allowed map[string]struct{}
}

// NewRepository creates a repository over store with the given allow-list.
func NewRepository(store Store, allowed []string) *Repository {
	r := &Repository{store: store, allowed: make(map[string]struct{}, len(allowed))}
	for _, name := range allowed {
		r.allowed[name] = struct{}{}
	}
	return r
}

// AllowedEvents returns a copy of the allow-list.
func (r *Repository) AllowedEvents(_ context.Context) map[string]struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]struct{}, len(r.allowed))
	for name := range r.allowed {
		out[name] = struct{}{}
	}
	return out
}

// AllowedList returns the allow-list sorted by name.
func (r *Repository) AllowedList() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.allowed))
	for name := range r.allowed {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Allow adds names to the allow-list.
func (r *Repository) Allow(names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range names {
		r.allowed[name] = struct{}{}
	}
}

// All returns every stored webhook, enabled or not.
func (r *Repository) All(ctx context.Context) ([]*Webhook, error) {
	var out []*Webhook
	for offset := 0; ; offset += pageSize {
		page, err := r.store.ListWebhooks(ctx, ListOpts{Offset: offset, Limit: pageSize})
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < pageSize {
			return out, nil
		}
	}
}
