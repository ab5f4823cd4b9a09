package content

import (
	"context"
	"sync"
)

var _ Source = (*Memory)(nil)

// Memory is a seedable in-process Source.
type Memory struct {
	mu    sync.RWMutex
	posts map[int64]Post
	terms map[int64]Term
	users map[int64]User
}

// NewMemory returns an empty Memory source.
func NewMemory() *Memory {
	return &Memory{
		posts: make(map[int64]Post),
		terms: make(map[int64]Term),
		users: make(map[int64]User),
	}
}

func (m *Memory) PutPost(p Post) {
	m.mu.Lock()
	m.posts[p.ID] = p
	m.mu.Unlock()
}

func (m *Memory) PutTerm(t Term) {
	m.mu.Lock()
	m.terms[t.ID] = t
	m.mu.Unlock()
}

func (m *Memory) PutUser(u User) {
	m.mu.Lock()
	m.users[u.ID] = u
	m.mu.Unlock()
}

// DeletePost removes a post, simulating a concurrent delete.
func (m *Memory) DeletePost(id int64) {
	m.mu.Lock()
	delete(m.posts, id)
	m.mu.Unlock()
}

func (m *Memory) Post(_ context.Context, id int64) (*Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *Memory) Term(_ context.Context, id int64) (*Term, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.terms[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (m *Memory) User(_ context.Context, id int64) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}
