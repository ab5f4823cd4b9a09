// Package bus is a small in-process publish/subscribe bus with priorities.
//
// It stands in for a host's lifecycle hook system: trigger sources publish
// raw arguments on a topic, and subscribers run synchronously in ascending
// priority order. Topics may contain "*" segments (see Match).
package bus

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
)

// Handler receives the raw arguments published on a topic.
type Handler func(ctx context.Context, args []any) error

// Subscription identifies one registered handler.
type Subscription struct {
	ID       uint64
	Topic    string
	Priority int
	ArgCount int
}

type entry struct {
	Subscription
	handler Handler
	seq     uint64
}

// Bus fans published arguments out to subscribers.
type Bus struct {
	mu     sync.RWMutex
	subs   []*entry
	seq    atomic.Uint64
	logger *slog.Logger
}

// New creates an empty bus.
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{logger: logger}
}

// Subscribe registers handler on topic. Lower priorities run first; equal
// priorities run in subscription order. When argCount > 0 the handler sees
// at most argCount arguments.
func (b *Bus) Subscribe(topic string, handler Handler, priority, argCount int) Subscription {
	e := &entry{
		Subscription: Subscription{
			ID:       b.seq.Add(1),
			Topic:    topic,
			Priority: priority,
			ArgCount: argCount,
		},
		handler: handler,
	}
	e.seq = e.ID

	b.mu.Lock()
	defer b.mu.Unlock()

	b.subs = append(b.subs, e)
	sort.SliceStable(b.subs, func(i, j int) bool {
		if b.subs[i].Priority != b.subs[j].Priority {
			return b.subs[i].Priority < b.subs[j].Priority
		}
		return b.subs[i].seq < b.subs[j].seq
	})

	return e.Subscription
}

// Unsubscribe removes a subscription. It reports whether it was present.
func (b *Bus) Unsubscribe(sub Subscription) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, e := range b.subs {
		if e.ID == sub.ID {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of live subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Publish runs every subscriber whose topic matches, in priority order, in
// the caller's goroutine. A failing or panicking subscriber is logged and
// the remaining subscribers still run. It returns the number of handlers
// that completed without error.
func (b *Bus) Publish(ctx context.Context, topic string, args ...any) int {
	b.mu.RLock()
	matched := make([]*entry, 0, len(b.subs))
	for _, e := range b.subs {
		if Match(e.Topic, topic) {
			matched = append(matched, e)
		}
	}
	b.mu.RUnlock()

	ok := 0
	for _, e := range matched {
		callArgs := args
		if e.ArgCount > 0 && len(callArgs) > e.ArgCount {
			callArgs = callArgs[:e.ArgCount]
		}
		if err := b.invoke(ctx, e, callArgs); err != nil {
			b.logger.WarnContext(ctx, "bus: subscriber failed",
				"topic", topic,
				"subscription", e.ID,
				"error", err,
			)
			continue
		}
		ok++
	}
	return ok
}

func (b *Bus) invoke(ctx context.Context, e *entry, args []any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return e.handler(ctx, args)
}
