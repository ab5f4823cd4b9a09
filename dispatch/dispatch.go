// Package dispatch gates named events against the allow-list and fans them
// out to matching webhook subscriptions.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/cachehook/event"
	"github.com/xraph/cachehook/observability"
	"github.com/xraph/cachehook/registry"
	"github.com/xraph/cachehook/webhook"
)

// Repository supplies the allow-list and the subscriptions.
type Repository interface {
	AllowedEvents(ctx context.Context) map[string]struct{}
	All(ctx context.Context) ([]*webhook.Webhook, error)
}

// Handler delivers one payload to one subscription, whose Event is the
// dispatched name. Its error is logged and never stops the fan-out.
type Handler interface {
	Handle(ctx context.Context, wh *webhook.Webhook, payload event.Payload) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, wh *webhook.Webhook, payload event.Payload) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, wh *webhook.Webhook, payload event.Payload) error {
	return f(ctx, wh, payload)
}

type (
	// ShouldHandleFunc may force-skip a trigger before its handler runs.
	ShouldHandleFunc func(ctx context.Context, def registry.Definition, args []any) bool

	// TransformFunc may add or change payload fields before dispatch.
	TransformFunc func(ctx context.Context, name string, payload event.Payload) event.Payload

	// ObserverFunc is a read-only hook around dispatch.
	ObserverFunc func(ctx context.Context, name string, payload event.Payload)
)

// Dispatcher routes registry invocations and triggers named events.
type Dispatcher struct {
	repo    Repository
	handler Handler
	logger  *slog.Logger

	filters   *webhook.Filters
	validator *registry.Validator
	schemas   *registry.Registry
	metrics   *observability.Metrics
	tracer    *observability.Tracer

	shouldHandle []ShouldHandleFunc
	transforms   []TransformFunc
	before       []ObserverFunc
	after        []ObserverFunc

	rejected   atomic.Int64
	dispatched atomic.Int64
	failures   atomic.Int64
}

var _ registry.Router = (*Dispatcher)(nil)

// New creates a Dispatcher.
func New(repo Repository, handler Handler, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		repo:    repo,
		handler: handler,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Route is called for every bus invocation of a registered definition. It
// runs the should-handle gates, the definition's handler, and, when the
// handler produced a payload, Trigger.
func (d *Dispatcher) Route(ctx context.Context, def registry.Definition, args []any) error {
	for _, gate := range d.shouldHandle {
		if !gate(ctx, def, args) {
			d.logger.DebugContext(ctx, "dispatch: trigger skipped by gate", "event", def.Name)
			return nil
		}
	}
	if def.Handler == nil {
		return nil
	}

	payload, err := def.Handler(ctx, args)
	if err != nil {
		return fmt.Errorf("dispatch: %s handler: %w", def.Name, err)
	}
	if payload != nil {
		d.Trigger(ctx, def.Name, payload)
	}
	return nil
}

// Trigger dispatches name to every enabled webhook subscribed to it. Events
// missing from the allow-list are rejected and counted. A failing or
// panicking subscriber never prevents the others from running.
func (d *Dispatcher) Trigger(ctx context.Context, name string, payload event.Payload) {
	if _, ok := d.repo.AllowedEvents(ctx)[name]; !ok {
		d.rejected.Add(1)
		d.metrics.RecordRejection(name)
		d.logger.InfoContext(ctx, "dispatch: event not in allow-list", "event", name)
		return
	}

	if d.tracer != nil {
		var span trace.Span
		ctx, span = d.tracer.StartDispatchSpan(ctx, name)
		defer span.End()
	}

	if payload == nil {
		payload = event.Payload{}
	}
	for _, tf := range d.transforms {
		if next := tf(ctx, name, payload); next != nil {
			payload = next
		}
	}

	if d.validator != nil && d.schemas != nil {
		if schema, ok := d.schemas.Schema(name); ok {
			if err := d.validator.Validate(schema, payload); err != nil {
				d.logger.WarnContext(ctx, "dispatch: payload failed schema", "event", name, "error", err)
				return
			}
		}
	}

	for _, obs := range d.before {
		obs(ctx, name, payload)
	}

	subs, err := d.repo.All(ctx)
	if err != nil {
		d.logger.ErrorContext(ctx, "dispatch: list subscriptions", "event", name, "error", err)
		subs = nil
	}

	var plain map[string]any
	for _, wh := range subs {
		if !wh.Matches(name) {
			continue
		}
		if wh.Filter != "" {
			if plain == nil {
				plain = normalize(payload)
			}
			if !d.passesFilter(ctx, wh, name, plain) {
				continue
			}
		}
		d.deliver(ctx, wh, name, payload.Clone())
	}

	for _, obs := range d.after {
		obs(ctx, name, payload)
	}
}

func (d *Dispatcher) passesFilter(ctx context.Context, wh *webhook.Webhook, name string, payload map[string]any) bool {
	if d.filters == nil {
		return true
	}
	ok, err := d.filters.Match(wh.Filter, name, payload)
	if err != nil {
		d.logger.WarnContext(ctx, "dispatch: webhook filter failed",
			"event", name,
			"webhook_id", wh.ID.String(),
			"error", err,
		)
		return false
	}
	return ok
}

func (d *Dispatcher) deliver(ctx context.Context, wh *webhook.Webhook, name string, payload event.Payload) {
	defer func() {
		if r := recover(); r != nil {
			d.failures.Add(1)
			d.metrics.RecordHandlerFailure(name)
			d.logger.ErrorContext(ctx, "dispatch: handler panicked",
				"event", name,
				"webhook_id", wh.ID.String(),
				"panic", fmt.Sprint(r),
			)
		}
	}()

	if err := d.handler.Handle(ctx, wh, payload); err != nil {
		d.failures.Add(1)
		d.metrics.RecordHandlerFailure(name)
		d.logger.ErrorContext(ctx, "dispatch: handler failed",
			"event", name,
			"webhook_id", wh.ID.String(),
			"error", err,
		)
		return
	}
	d.dispatched.Add(1)
	d.metrics.RecordDispatch(name)
}

// Rejected returns how many events the allow-list gate refused.
func (d *Dispatcher) Rejected() int64 { return d.rejected.Load() }

// Dispatched returns how many handler invocations succeeded.
func (d *Dispatcher) Dispatched() int64 { return d.dispatched.Load() }

// Failures returns how many handler invocations failed or panicked.
func (d *Dispatcher) Failures() int64 { return d.failures.Load() }

// normalize converts a payload holding Go values into plain JSON types so
// filter expressions see the same shape a receiver would.
func normalize(p event.Payload) map[string]any {
	raw, err := json.Marshal(p)
	if err != nil {
		return map[string]any(p)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any(p)
	}
	return out
}
