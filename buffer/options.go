package buffer

import (
	"log/slog"
	"time"

	"github.com/xraph/cachehook/observability"
)

// Option configures a Buffer.
type Option func(*Buffer)

// WithWindow sets the flush delay. Zero or negative disables the timer; the
// owner then flushes at the end of its lifecycle.
func WithWindow(d time.Duration) Option {
	return func(b *Buffer) { b.window = d }
}

func WithLogger(logger *slog.Logger) Option {
	return func(b *Buffer) {
		if logger != nil {
			b.logger = logger
		}
	}
}

func WithMetrics(m *observability.Metrics) Option {
	return func(b *Buffer) { b.metrics = m }
}

func WithTracer(t *observability.Tracer) Option {
	return func(b *Buffer) { b.tracer = t }
}

// WithClock overrides time.Now for payload timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Buffer) { b.now = now }
}
