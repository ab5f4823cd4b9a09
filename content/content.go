// Package content provides read-only access to the domain objects that
// cache keys refer to: posts, terms and users.
package content

import (
	"context"
	"errors"
)

// ErrNotFound is returned when the object no longer exists. Resolvers treat
// it as "nothing to attach", not as a failure.
var ErrNotFound = errors.New("content: not found")

// Post is a post-like object (posts, pages, products).
type Post struct {
	ID     int64  `json:"id"`
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status string `json:"status"`
	Link   string `json:"link"`
}

// Term is a taxonomy term (categories, tags).
type Term struct {
	ID       int64  `json:"id"`
	Taxonomy string `json:"taxonomy"`
	Name     string `json:"name"`
	Link     string `json:"link"`
}

// User is an author or account.
type User struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Link string `json:"link"`
}

// Source looks up objects by numeric id.
type Source interface {
	Post(ctx context.Context, id int64) (*Post, error)
	Term(ctx context.Context, id int64) (*Term, error)
	User(ctx context.Context, id int64) (*User, error)
}
