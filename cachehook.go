package cachehook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/xraph/cachehook/buffer"
	"github.com/xraph/cachehook/bus"
	"github.com/xraph/cachehook/classify"
	"github.com/xraph/cachehook/content"
	"github.com/xraph/cachehook/delivery"
	"github.com/xraph/cachehook/dispatch"
	"github.com/xraph/cachehook/dlq"
	"github.com/xraph/cachehook/event"
	"github.com/xraph/cachehook/observability"
	"github.com/xraph/cachehook/ratelimit"
	"github.com/xraph/cachehook/registry"
	"github.com/xraph/cachehook/resolve"
	"github.com/xraph/cachehook/store"
	"github.com/xraph/cachehook/trigger"
	"github.com/xraph/cachehook/webhook"
)

// Bus topics fired by trigger sources.
const (
	// TopicPurge carries (key, descriptor, source endpoint) for one purged key.
	TopicPurge = "graphql_purge"

	// TopicPurgeNodes carries (key, nodes) for a bulk node purge.
	TopicPurgeNodes = "graphql_purge_nodes"
)

// Names of the definitions every Engine registers.
const (
	DefinitionCachePurged = "cache_purged"
	DefinitionNodesPurged = event.NodesPurged
)

// Engine turns purge signals into consolidated webhook deliveries.
type Engine struct {
	config Config
	store  store.Store
	logger *slog.Logger

	source       content.Source
	fetchers     map[resolve.Kind]resolve.Fetcher
	decoder      classify.Decoder
	definitions  []registry.Definition
	dispatchOpts []dispatch.Option
	metrics      *observability.Metrics
	tracer       *observability.Tracer

	registry   *registry.Registry
	bus        *bus.Bus
	classifier *classify.Classifier
	resolver   *resolve.Resolver
	buffer     *buffer.Buffer
	dispatcher *dispatch.Dispatcher
	filters    *webhook.Filters
	webhooks   *webhook.Service
	repo       *webhook.Repository
	handler    *delivery.Handler
	dlqSvc     *dlq.Service
	engine     *delivery.Engine

	mu   sync.Mutex
	subs []bus.Subscription
}

var _ trigger.Sink = (*Engine)(nil)

// New creates an Engine. A store and a non-empty allow-list are required.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		config:   DefaultConfig(),
		logger:   slog.Default(),
		fetchers: make(map[resolve.Kind]resolve.Fetcher),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	if e.store == nil {
		return nil, ErrNoStore
	}
	if len(e.config.AllowedEvents) == 0 {
		return nil, ErrNoAllowedEvents
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if err := e.wire(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) wire() error {
	fetchers := make(map[resolve.Kind]resolve.Fetcher)
	if e.source != nil {
		maps.Copy(fetchers, resolve.ContentFetchers(e.source))
	}
	maps.Copy(fetchers, e.fetchers)

	resolver, err := resolve.New(fetchers)
	if err != nil {
		return err
	}
	e.resolver = resolver

	filters, err := webhook.NewFilters()
	if err != nil {
		return fmt.Errorf("cachehook: filter environment: %w", err)
	}
	e.filters = filters

	e.registry = registry.New()
	e.bus = bus.New(e.logger)
	e.classifier = classify.New(e.decoder)
	e.webhooks = webhook.NewService(e.store, filters, e.logger)
	e.repo = webhook.NewRepository(e.store, e.config.AllowedEvents)
	e.handler = delivery.NewHandler(e.store, e.config.MaxRetries, e.metrics, e.logger)

	dopts := []dispatch.Option{
		dispatch.WithLogger(e.logger),
		dispatch.WithFilters(filters),
		dispatch.WithSchemas(e.registry, registry.NewValidator()),
		dispatch.WithMetrics(e.metrics),
		dispatch.WithTracer(e.tracer),
	}
	e.dispatcher = dispatch.New(e.repo, e.handler, append(dopts, e.dispatchOpts...)...)

	e.buffer = buffer.New(e.classifier, e.resolver, e.dispatcher,
		buffer.WithWindow(e.config.BufferWindow),
		buffer.WithLogger(e.logger),
		buffer.WithMetrics(e.metrics),
		buffer.WithTracer(e.tracer),
	)

	e.dlqSvc = dlq.NewService(e.store, e.logger)
	e.engine = delivery.NewEngine(e.store, e.dlqSvc, delivery.EngineConfig{
		Concurrency:    e.config.Concurrency,
		PollInterval:   e.config.PollInterval,
		BatchSize:      e.config.BatchSize,
		RequestTimeout: e.config.RequestTimeout,
		RetrySchedule:  e.config.RetrySchedule,
		Limiter:        ratelimit.New(),
		Metrics:        e.metrics,
		Tracer:         e.tracer,
		IsNotFound:     IsNotFound,
	}, e.logger)

	for _, def := range append(e.builtins(), e.definitions...) {
		if !e.registry.Register(def) {
			return fmt.Errorf("%w: %q", ErrDuplicateDefinition, def.Name)
		}
	}
	e.subs = e.registry.AttachAll(e.bus, e.dispatcher)
	return nil
}

// builtins are the two definitions fed by trigger sources. Both consume
// their arguments through the buffer, so Route dispatches nothing itself.
func (e *Engine) builtins() []registry.Definition {
	return []registry.Definition{
		{
			Name:        DefinitionCachePurged,
			Trigger:     TopicPurge,
			Priority:    10,
			ArgCount:    3,
			Description: "A single cache key was purged.",
			Handler: func(ctx context.Context, args []any) (event.Payload, error) {
				e.buffer.ObserveDescriptor(ctx, argString(args, 0), argString(args, 1), argString(args, 2))
				return nil, nil
			},
		},
		{
			Name:        DefinitionNodesPurged,
			Trigger:     TopicPurgeNodes,
			Priority:    10,
			ArgCount:    2,
			Description: "A batch of graph nodes was purged.",
			Handler: func(ctx context.Context, args []any) (event.Payload, error) {
				e.buffer.ObserveBulk(ctx, argString(args, 0), argStrings(args, 1))
				return nil, nil
			},
		},
	}
}

// Start begins the delivery engine.
func (e *Engine) Start(ctx context.Context) {
	e.engine.Start(ctx)
}

// Stop flushes the buffer so nothing observed is lost, then stops the
// delivery engine, waiting at most ShutdownTimeout for in-flight attempts.
func (e *Engine) Stop(ctx context.Context) {
	e.buffer.Close(ctx)

	if e.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.ShutdownTimeout)
		defer cancel()
	}
	e.engine.Stop(ctx)
}

// Purge reports one purged cache key. descriptor has the form
// "{object_type}_{ACTION}", e.g. "post_UPDATE".
func (e *Engine) Purge(ctx context.Context, key, descriptor, sourceEndpoint string) {
	e.bus.Publish(ctx, TopicPurge, key, descriptor, sourceEndpoint)
}

// PurgeNodes reports a bulk node purge. It is dispatched immediately.
func (e *Engine) PurgeNodes(ctx context.Context, key string, nodes []string) {
	e.bus.Publish(ctx, TopicPurgeNodes, key, nodes)
}

// Observe buffers one key observation directly, bypassing the bus.
func (e *Engine) Observe(ctx context.Context, key, objectType string, action event.Action, sourceEndpoint string) {
	e.buffer.Observe(ctx, key, objectType, action, sourceEndpoint)
}

// Flush dispatches everything buffered so far.
func (e *Engine) Flush(ctx context.Context) {
	e.buffer.Flush(ctx)
}

// Trigger dispatches a named event to its subscribers.
func (e *Engine) Trigger(ctx context.Context, name string, payload event.Payload) {
	e.dispatcher.Trigger(ctx, name, payload)
}

// Register adds a definition and subscribes it on the bus.
func (e *Engine) Register(def registry.Definition) error {
	if def.Name == "" || def.Trigger == "" {
		return &webhook.ValidationError{Field: "definition", Message: "name and trigger are required"}
	}
	if !e.registry.Register(def) {
		return fmt.Errorf("%w: %q", ErrDuplicateDefinition, def.Name)
	}

	e.mu.Lock()
	e.subs = append(e.subs, registry.Attach(e.bus, e.dispatcher, def))
	e.mu.Unlock()
	return nil
}

// Publish fires topic on the engine's bus and returns how many handlers ran.
func (e *Engine) Publish(ctx context.Context, topic string, args ...any) int {
	return e.bus.Publish(ctx, topic, args...)
}

// Allow adds names to the dispatch allow-list at runtime.
func (e *Engine) Allow(names ...string) {
	e.repo.Allow(names...)
}

// Webhooks returns the subscription management service.
func (e *Engine) Webhooks() *webhook.Service { return e.webhooks }

// Repository returns the allow-list and subscription lookup.
func (e *Engine) Repository() *webhook.Repository { return e.repo }

// DLQ returns the dead letter queue service.
func (e *Engine) DLQ() *dlq.Service { return e.dlqSvc }

// Store returns the underlying store.
func (e *Engine) Store() store.Store { return e.store }

// Registry returns the event definition registry.
func (e *Engine) Registry() *registry.Registry { return e.registry }

// Bus returns the trigger bus.
func (e *Engine) Bus() *bus.Bus { return e.bus }

// Buffer returns the consolidation buffer.
func (e *Engine) Buffer() *buffer.Buffer { return e.buffer }

// Dispatcher returns the event dispatcher.
func (e *Engine) Dispatcher() *dispatch.Dispatcher { return e.dispatcher }

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.config }

func argString(args []any, i int) string {
	if i >= len(args) {
		return ""
	}
	switch v := args[i].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func argStrings(args []any, i int) []string {
	if i >= len(args) {
		return nil
	}
	switch v := args[i].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, n := range v {
			out = append(out, fmt.Sprint(n))
		}
		return out
	case string:
		return []string{v}
	default:
		return nil
	}
}

// IsNotFound reports whether err is one of the store's not-found errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWebhookNotFound) ||
		errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, ErrDeliveryNotFound) ||
		errors.Is(err, ErrDLQNotFound)
}
