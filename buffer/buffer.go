// Package buffer consolidates bursts of cache-purge observations into one
// enriched event per (object type, action) and window.
package buffer

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/cachehook/classify"
	"github.com/xraph/cachehook/event"
	"github.com/xraph/cachehook/observability"
	"github.com/xraph/cachehook/resolve"
)

// DefaultWindow is the delay between the first observation of a window and
// its flush.
const DefaultWindow = time.Second

// Dispatcher receives flushed events.
type Dispatcher interface {
	Trigger(ctx context.Context, name string, payload event.Payload)
}

// Resolver snapshots a decoded object.
type Resolver interface {
	Resolve(ctx context.Context, objectType string, id int64, action event.Action) (*resolve.Snapshot, error)
}

// Buffer owns the groups of the current window. Observe and Flush are safe
// for concurrent use.
//
// Observe resolves a newly seen object while holding the buffer lock, so an
// object is fetched at most once per window. The cost is that a slow
// resolver (a remote content source, say) stalls concurrent Observe calls
// and the timed Flush for the duration of the lookup; bound it with the
// resolver's own timeout.
type Buffer struct {
	classifier *classify.Classifier
	resolver   Resolver
	dispatcher Dispatcher

	window  time.Duration
	logger  *slog.Logger
	metrics *observability.Metrics
	tracer  *observability.Tracer
	now     func() time.Time

	mu        sync.Mutex
	groups    map[string]*Group
	order     []string
	scheduled bool
	epoch     uint64
	timer     *time.Timer
	closed    bool
}

// New creates a Buffer. A nil classifier uses classify.New(nil); a nil
// resolver records keys without snapshots.
func New(classifier *classify.Classifier, resolver Resolver, dispatcher Dispatcher, opts ...Option) *Buffer {
	if classifier == nil {
		classifier = classify.New(nil)
	}
	b := &Buffer{
		classifier: classifier,
		resolver:   resolver,
		dispatcher: dispatcher,
		window:     DefaultWindow,
		logger:     slog.Default(),
		now:        time.Now,
		groups:     make(map[string]*Group),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Observe records one purged key for (objectType, action). The object the
// key refers to is resolved now, at most once per window, so its snapshot
// reflects the moment of the change.
func (b *Buffer) Observe(ctx context.Context, key, objectType string, action event.Action, sourceEndpoint string) {
	ck := b.classifier.Classify(key)
	b.metrics.RecordObserved(string(ck.Category))

	b.mu.Lock()
	defer b.mu.Unlock()

	gk := GroupKey(objectType, action)
	g, ok := b.groups[gk]
	if !ok {
		g = newGroup(objectType, action, sourceEndpoint)
		b.groups[gk] = g
		b.order = append(b.order, gk)
	}

	if d := ck.Decoded; d != nil {
		ref := d.Type + ":" + d.ID
		if !g.has(ref) {
			if snap := b.resolve(ctx, d, action); snap != nil {
				g.put(ref, *snap)
			}
		}
	}

	g.Keys = append(g.Keys, ck)
	b.schedule()
}

// ObserveDescriptor parses descriptor as "{object_type}_{ACTION}" and calls
// Observe. Descriptors that do not split into exactly two non-empty parts,
// or whose action is not CREATE, UPDATE or DELETE, are dropped silently.
func (b *Buffer) ObserveDescriptor(ctx context.Context, key, descriptor, sourceEndpoint string) {
	objectType, action, ok := ParseDescriptor(descriptor)
	if !ok {
		return
	}
	b.Observe(ctx, key, objectType, action, sourceEndpoint)
}

// ParseDescriptor splits "{object_type}_{ACTION}". The action is upper-cased
// and must be one of the known actions.
func ParseDescriptor(descriptor string) (string, event.Action, bool) {
	parts := strings.Split(descriptor, "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	action := event.Action(strings.ToUpper(parts[1]))
	if _, known := action.Suffix(); !known {
		return "", "", false
	}
	return parts[0], action, true
}

// ObserveBulk dispatches a pre-batched node purge immediately, bypassing the
// buffer.
func (b *Buffer) ObserveBulk(ctx context.Context, key string, nodes []string) {
	if nodes == nil {
		nodes = []string{}
	}
	payload := event.Payload{
		"cache_key":   key,
		"nodes":       nodes,
		"nodes_count": len(nodes),
		"timestamp":   b.timestamp(),
	}

	defer func() {
		if r := recover(); r != nil {
			b.logger.ErrorContext(ctx, "buffer: bulk dispatch panicked", "cache_key", key, "panic", fmt.Sprint(r))
		}
	}()
	b.dispatcher.Trigger(ctx, event.NodesPurged, payload)
}

// Flush swaps out the current window and dispatches each group in insertion
// order. Observations arriving during the flush land in the next window. A
// group whose dispatch panics is logged and does not affect the others.
func (b *Buffer) Flush(ctx context.Context) {
	b.mu.Lock()
	groups, order := b.groups, b.order
	b.groups = make(map[string]*Group)
	b.order = nil
	b.scheduled = false
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.mu.Unlock()

	if len(order) == 0 {
		return
	}

	if b.tracer != nil {
		var span trace.Span
		ctx, span = b.tracer.StartFlushSpan(ctx, len(order))
		defer span.End()
	}

	flushed := 0
	for _, gk := range order {
		if b.flushGroup(ctx, groups[gk]) {
			flushed++
		}
	}
	b.metrics.RecordFlush(flushed)
}

func (b *Buffer) flushGroup(ctx context.Context, g *Group) (ok bool) {
	name, mapped := event.Name(g.ObjectType, g.Action)
	if !mapped {
		b.logger.DebugContext(ctx, "buffer: no event for action", "group", g.Key)
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			ok = false
			b.logger.ErrorContext(ctx, "buffer: group dispatch panicked",
				"group", g.Key,
				"event", name,
				"panic", fmt.Sprint(r),
			)
		}
	}()

	b.dispatcher.Trigger(ctx, name, b.payload(g))
	return true
}

func (b *Buffer) payload(g *Group) event.Payload {
	return event.Payload{
		"object_type":          g.ObjectType,
		"action":               string(g.Action),
		"source_endpoint":      g.SourceEndpoint,
		"timestamp":            b.timestamp(),
		"cache_keys_observed":  len(g.Keys),
		"objects_affected":     g.Objects(),
		"key_category_summary": g.Summary(),
	}
}

// Close flushes what is buffered and stops timed flushes for good. Later
// observations are still recorded but are only dispatched by an explicit
// Flush.
func (b *Buffer) Close(ctx context.Context) {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.Flush(ctx)
}

// Groups returns copies of the buffered groups in insertion order.
func (b *Buffer) Groups() []Group {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Group, 0, len(b.order))
	for _, gk := range b.order {
		out = append(out, b.groups[gk].clone())
	}
	return out
}

// Scheduled reports whether a flush is pending.
func (b *Buffer) Scheduled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.scheduled
}

// schedule arms one flush per window. Must be called with b.mu held. With a
// non-positive window nothing is armed and the owner flushes explicitly.
func (b *Buffer) schedule() {
	if b.scheduled || b.closed {
		return
	}
	b.scheduled = true
	if b.window <= 0 {
		return
	}
	b.epoch++
	epoch := b.epoch
	b.timer = time.AfterFunc(b.window, func() {
		b.mu.Lock()
		stale := b.epoch != epoch || !b.scheduled || b.closed
		b.mu.Unlock()
		if stale {
			return
		}
		b.Flush(context.Background())
	})
}

func (b *Buffer) resolve(ctx context.Context, d *classify.Decoded, action event.Action) *resolve.Snapshot {
	if b.resolver == nil {
		return nil
	}
	n, err := strconv.ParseInt(d.ID, 10, 64)
	if err != nil {
		return nil
	}
	snap, err := b.resolver.Resolve(ctx, d.Type, n, action)
	if err != nil {
		b.logger.WarnContext(ctx, "buffer: resolve failed", "type", d.Type, "id", d.ID, "error", err)
		return nil
	}
	return snap
}

func (b *Buffer) timestamp() string {
	return b.now().UTC().Format(time.RFC3339)
}
