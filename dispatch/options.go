package dispatch

import (
	"log/slog"

	"github.com/xraph/cachehook/observability"
	"github.com/xraph/cachehook/registry"
	"github.com/xraph/cachehook/webhook"
)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithFilters enables CEL filter evaluation on webhooks.
func WithFilters(f *webhook.Filters) Option {
	return func(d *Dispatcher) { d.filters = f }
}

// WithSchemas validates payloads against the schema registered for each
// event name. Invalid payloads are logged and not dispatched.
func WithSchemas(reg *registry.Registry, v *registry.Validator) Option {
	return func(d *Dispatcher) {
		d.schemas = reg
		d.validator = v
	}
}

func WithMetrics(m *observability.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

func WithTracer(t *observability.Tracer) Option {
	return func(d *Dispatcher) { d.tracer = t }
}

// WithShouldHandle adds a gate evaluated before a definition's handler.
func WithShouldHandle(fn ShouldHandleFunc) Option {
	return func(d *Dispatcher) { d.shouldHandle = append(d.shouldHandle, fn) }
}

// WithTransform appends a payload transform.
func WithTransform(fn TransformFunc) Option {
	return func(d *Dispatcher) { d.transforms = append(d.transforms, fn) }
}

// WithBeforeTrigger adds an observer that runs before subscribers.
func WithBeforeTrigger(fn ObserverFunc) Option {
	return func(d *Dispatcher) { d.before = append(d.before, fn) }
}

// WithAfterTrigger adds an observer that runs after subscribers.
func WithAfterTrigger(fn ObserverFunc) Option {
	return func(d *Dispatcher) { d.after = append(d.after, fn) }
}
