package cachehook

import (
	"log/slog"
	"time"

	"github.com/xraph/cachehook/classify"
	"github.com/xraph/cachehook/content"
	"github.com/xraph/cachehook/dispatch"
	"github.com/xraph/cachehook/observability"
	"github.com/xraph/cachehook/registry"
	"github.com/xraph/cachehook/resolve"
	"github.com/xraph/cachehook/store"
)

// Option configures an Engine.
type Option func(*Engine) error

// WithStore sets the persistence backend.
func WithStore(s store.Store) Option {
	return func(e *Engine) error {
		e.store = s
		return nil
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		e.logger = logger
		return nil
	}
}

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(e *Engine) error {
		e.config = cfg
		return nil
	}
}

// WithBufferWindow sets the consolidation window.
func WithBufferWindow(d time.Duration) Option {
	return func(e *Engine) error {
		e.config.BufferWindow = d
		return nil
	}
}

// WithAllowedEvents appends names to the dispatch allow-list.
func WithAllowedEvents(names ...string) Option {
	return func(e *Engine) error {
		e.config.AllowedEvents = append(e.config.AllowedEvents, names...)
		return nil
	}
}

// WithFetcher installs the fetcher for one object kind ("post", "term" or
// "user"). It overrides the content source for that kind. Other kinds make
// New fail with ErrUnknownObjectKind.
func WithFetcher(kind string, f resolve.Fetcher) Option {
	return func(e *Engine) error {
		e.fetchers[resolve.Kind(kind)] = f
		return nil
	}
}

// WithContentSource resolves posts, terms and users from src.
func WithContentSource(src content.Source) Option {
	return func(e *Engine) error {
		e.source = src
		return nil
	}
}

// WithDecoder replaces the opaque-ID decoder used by the key classifier.
func WithDecoder(d classify.Decoder) Option {
	return func(e *Engine) error {
		e.decoder = d
		return nil
	}
}

// WithDefinition registers an additional event definition at construction.
func WithDefinition(def registry.Definition) Option {
	return func(e *Engine) error {
		e.definitions = append(e.definitions, def)
		return nil
	}
}

// WithDispatchOptions passes gates, transforms and observers through to the
// dispatcher.
func WithDispatchOptions(opts ...dispatch.Option) Option {
	return func(e *Engine) error {
		e.dispatchOpts = append(e.dispatchOpts, opts...)
		return nil
	}
}

// WithMetrics enables metrics collection.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) error {
		e.metrics = m
		return nil
	}
}

// WithTracer enables OpenTelemetry spans for flushes, dispatches and
// delivery attempts.
func WithTracer(t *observability.Tracer) Option {
	return func(e *Engine) error {
		e.tracer = t
		return nil
	}
}

// WithConcurrency sets the number of delivery worker goroutines.
func WithConcurrency(n int) Option {
	return func(e *Engine) error {
		e.config.Concurrency = n
		return nil
	}
}

// WithPollInterval sets how often the delivery engine checks for pending deliveries.
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) error {
		e.config.PollInterval = d
		return nil
	}
}

// WithBatchSize sets the maximum number of deliveries dequeued per poll cycle.
func WithBatchSize(n int) Option {
	return func(e *Engine) error {
		e.config.BatchSize = n
		return nil
	}
}

// WithRequestTimeout sets the HTTP timeout per delivery attempt.
func WithRequestTimeout(d time.Duration) Option {
	return func(e *Engine) error {
		e.config.RequestTimeout = d
		return nil
	}
}

// WithMaxRetries sets the maximum number of delivery attempts.
func WithMaxRetries(n int) Option {
	return func(e *Engine) error {
		e.config.MaxRetries = n
		return nil
	}
}

// WithRetrySchedule sets the backoff intervals between retry attempts.
func WithRetrySchedule(schedule []time.Duration) Option {
	return func(e *Engine) error {
		e.config.RetrySchedule = schedule
		return nil
	}
}

// WithShutdownTimeout bounds how long Stop waits for in-flight deliveries.
func WithShutdownTimeout(d time.Duration) Option {
	return func(e *Engine) error {
		e.config.ShutdownTimeout = d
		return nil
	}
}
