// Package resolve takes snapshots of domain objects for inclusion in
// webhook payloads.
package resolve

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/cachehook/content"
	"github.com/xraph/cachehook/event"
)

// ErrUnknownKind is returned by New for fetchers outside the Kind set.
var ErrUnknownKind = errors.New("cachehook: unknown object kind")

// Kind is the closed set of fetchable object families.
type Kind string

const (
	KindPost Kind = "post"
	KindTerm Kind = "term"
	KindUser Kind = "user"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindPost, KindTerm, KindUser:
		return true
	}
	return false
}

// aliases maps decoded object types onto their fetcher family.
var aliases = map[string]Kind{
	"post":     KindPost,
	"page":     KindPost,
	"product":  KindPost,
	"term":     KindTerm,
	"category": KindTerm,
	"tag":      KindTerm,
	"post_tag": KindTerm,
	"user":     KindUser,
}

// KindOf returns the fetcher family for an object type.
func KindOf(objectType string) (Kind, bool) {
	k, ok := aliases[objectType]
	return k, ok
}

// Snapshot is the state of an object at the moment a change was observed.
// It is never mutated after creation.
type Snapshot struct {
	ID      int64  `json:"id"`
	Type    string `json:"type"`
	Name    string `json:"display_name,omitempty"`
	Status  string `json:"status,omitempty"`
	Deleted bool   `json:"deleted,omitempty"`
	URL     string `json:"url,omitempty"`
}

// Fetcher loads one object. A missing object is (nil, nil) or
// content.ErrNotFound.
type Fetcher func(ctx context.Context, id int64) (*Snapshot, error)

// Resolver dispatches lookups to per-kind fetchers.
type Resolver struct {
	fetchers map[Kind]Fetcher
}

// New builds a Resolver. Fetchers keyed by anything outside post, term and
// user are rejected with ErrUnknownKind.
func New(fetchers map[Kind]Fetcher) (*Resolver, error) {
	r := &Resolver{fetchers: make(map[Kind]Fetcher, len(fetchers))}
	for k, f := range fetchers {
		if !k.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKind, k)
		}
		if f != nil {
			r.fetchers[k] = f
		}
	}
	return r, nil
}

// Resolve returns a snapshot of (objectType, id), or nil when there is
// nothing to attach. DELETE never fetches: the object may already be gone.
func (r *Resolver) Resolve(ctx context.Context, objectType string, id int64, action event.Action) (*Snapshot, error) {
	if action == event.ActionDelete {
		return &Snapshot{ID: id, Type: objectType, Deleted: true}, nil
	}

	kind, ok := KindOf(objectType)
	if !ok {
		return nil, nil
	}
	fetch, ok := r.fetchers[kind]
	if !ok {
		return nil, nil
	}

	snap, err := fetch(ctx, id)
	switch {
	case errors.Is(err, content.ErrNotFound):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("resolve %s:%d: %w", objectType, id, err)
	case snap == nil:
		return nil, nil
	}
	if snap.Type == "" {
		snap.Type = objectType
	}
	return snap, nil
}

// ContentFetchers builds post, term and user fetchers over src.
func ContentFetchers(src content.Source) map[Kind]Fetcher {
	return map[Kind]Fetcher{
		KindPost: func(ctx context.Context, id int64) (*Snapshot, error) {
			p, err := src.Post(ctx, id)
			if err != nil {
				return nil, err
			}
			return &Snapshot{ID: p.ID, Type: p.Type, Name: p.Title, Status: p.Status, URL: p.Link}, nil
		},
		KindTerm: func(ctx context.Context, id int64) (*Snapshot, error) {
			t, err := src.Term(ctx, id)
			if err != nil {
				return nil, err
			}
			return &Snapshot{ID: t.ID, Type: t.Taxonomy, Name: t.Name, URL: t.Link}, nil
		},
		KindUser: func(ctx context.Context, id int64) (*Snapshot, error) {
			u, err := src.User(ctx, id)
			if err != nil {
				return nil, err
			}
			return &Snapshot{ID: u.ID, Type: string(KindUser), Name: u.Name, URL: u.Link}, nil
		},
	}
}
