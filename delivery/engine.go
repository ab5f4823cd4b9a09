package delivery

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/cachehook/event"
	"github.com/xraph/cachehook/id"
	"github.com/xraph/cachehook/observability"
	"github.com/xraph/cachehook/ratelimit"
	"github.com/xraph/cachehook/webhook"
)

// EngineStore is the interface the engine needs for delivery operations.
type EngineStore interface {
	Dequeue(ctx context.Context, limit int) ([]*Delivery, error)
	UpdateDelivery(ctx context.Context, d *Delivery) error
	GetWebhook(ctx context.Context, whID id.ID) (*webhook.Webhook, error)
	GetEvent(ctx context.Context, evtID id.ID) (*event.Event, error)
	SetWebhookEnabled(ctx context.Context, whID id.ID, enabled bool) error
}

// DLQPusher pushes permanently failed deliveries to the dead letter queue.
type DLQPusher interface {
	PushFailed(ctx context.Context, d *Delivery, wh *webhook.Webhook, evt *event.Event, lastError string, lastStatusCode int) error
}

// EngineConfig holds engine configuration.
type EngineConfig struct {
	Concurrency    int
	PollInterval   time.Duration
	BatchSize      int
	RequestTimeout time.Duration
	RetrySchedule  []time.Duration
	Limiter        *ratelimit.Limiter
	Metrics        *observability.Metrics
	Tracer         *observability.Tracer

	// IsNotFound reports whether a store lookup error means the webhook or
	// event is gone. Only those deliveries are abandoned; any other lookup
	// error leaves the delivery pending for a later poll. Nil treats every
	// lookup error as transient.
	IsNotFound func(error) bool
}

// Engine is the delivery worker pool that dequeues and processes deliveries.
type Engine struct {
	store   EngineStore
	sender  *Sender
	retrier *Retrier
	dlq     DLQPusher
	limiter *ratelimit.Limiter
	config  EngineConfig
	logger  *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine creates a delivery engine. Zero config fields fall back to one
// worker, a one second poll and batches of ten.
func NewEngine(store EngineStore, dlq DLQPusher, cfg EngineConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = ratelimit.New()
	}
	return &Engine{
		store:   store,
		sender:  NewSender(cfg.RequestTimeout),
		retrier: NewRetrier(cfg.RetrySchedule),
		dlq:     dlq,
		limiter: limiter,
		config:  cfg,
		logger:  logger,
	}
}

// Start begins the delivery workers and poll loop. Calling Start on a
// running engine is a no-op.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		return
	}
	ctx, e.cancel = context.WithCancel(ctx)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.pollLoop(ctx)
	}()
}

// Stop cancels the poll loop and waits for in-flight deliveries, or for ctx
// to expire, whichever comes first.
func (e *Engine) Stop(ctx context.Context) {
	e.mu.Lock()
	cancel := e.cancel
	e.cancel = nil
	e.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		e.logger.WarnContext(ctx, "delivery engine stop timed out")
	}
}

func (e *Engine) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(e.config.PollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, e.config.Concurrency)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			batch, err := e.store.Dequeue(ctx, e.config.BatchSize)
			if err != nil {
				e.logger.ErrorContext(ctx, "dequeue failed", "error", err)
				continue
			}

			for _, d := range batch {
				select {
				case <-ctx.Done():
					return
				case sem <- struct{}{}:
				}

				e.wg.Add(1)
				go func(del *Delivery) {
					defer e.wg.Done()
					defer func() { <-sem }()
					e.process(ctx, del)
				}(d)
			}
		}
	}
}

// process handles a single delivery: fetch webhook and event, wait for the
// rate limiter, send, decide, update.
func (e *Engine) process(ctx context.Context, d *Delivery) {
	var span trace.Span
	if e.config.Tracer != nil {
		ctx, span = e.config.Tracer.StartDeliverySpan(ctx, d.ID.String(), d.EventID.String(), d.WebhookID.String())
	}
	endSpan := func() {
		if span != nil {
			e.config.Tracer.EndDeliverySpan(span, d.LastStatusCode, d.LastLatencyMs, d.LastError)
		}
	}

	wh, err := e.store.GetWebhook(ctx, d.WebhookID)
	if err != nil {
		e.lookupFailed(ctx, d, err, "webhook not found",
			"webhook_id", d.WebhookID)
		endSpan()
		return
	}

	evt, err := e.store.GetEvent(ctx, d.EventID)
	if err != nil {
		e.lookupFailed(ctx, d, err, "event not found",
			"event_id", d.EventID)
		endSpan()
		return
	}

	if !wh.Enabled {
		e.abandon(ctx, d, "webhook disabled")
		endSpan()
		return
	}

	if err := e.limiter.Wait(ctx, wh.ID.String(), wh.RateLimit); err != nil {
		// Shutting down; the delivery stays pending and is picked up again.
		d.NextAttemptAt = time.Now().UTC()
		e.update(ctx, d)
		endSpan()
		return
	}

	d.AttemptCount++
	result := e.sender.Send(ctx, wh, evt, d)

	d.LastError = result.Error
	d.LastStatusCode = result.StatusCode
	d.LastResponse = result.Response
	d.LastLatencyMs = result.LatencyMs

	latencySeconds := float64(result.LatencyMs) / 1000.0
	decision := e.retrier.Decide(result, d)
	e.config.Metrics.RecordDelivery(decision.String(), latencySeconds)

	switch decision {
	case Delivered:
		e.complete(d, StateDelivered)
		e.config.Metrics.DeliveryFinished(false)
		e.logger.DebugContext(ctx, "delivered",
			"delivery_id", d.ID, "status", result.StatusCode, "latency_ms", result.LatencyMs)

	case Retry:
		d.NextAttemptAt = e.retrier.ComputeNextAttempt(d.AttemptCount)
		e.logger.DebugContext(ctx, "retry scheduled",
			"delivery_id", d.ID, "attempt", d.AttemptCount, "next_at", d.NextAttemptAt)

	case DLQ:
		e.complete(d, StateFailed)
		e.pushDLQ(ctx, d, wh, evt, result)
		e.config.Metrics.DeliveryFinished(true)
		e.logger.WarnContext(ctx, "delivery failed permanently",
			"delivery_id", d.ID, "status", result.StatusCode, "error", result.Error)

	case DisableWebhook:
		e.complete(d, StateFailed)
		if disableErr := e.store.SetWebhookEnabled(ctx, d.WebhookID, false); disableErr != nil {
			e.logger.ErrorContext(ctx, "disable webhook failed",
				"webhook_id", d.WebhookID, "error", disableErr)
		}
		e.pushDLQ(ctx, d, wh, evt, result)
		e.config.Metrics.DeliveryFinished(true)
		e.logger.WarnContext(ctx, "webhook disabled (410 Gone)",
			"webhook_id", d.WebhookID, "delivery_id", d.ID)
	}

	endSpan()
	e.update(ctx, d)
}

// lookupFailed abandons d when err says its webhook or event is gone, and
// otherwise pushes it back without spending an attempt.
func (e *Engine) lookupFailed(ctx context.Context, d *Delivery, err error, reason string, attrs ...any) {
	attrs = append(attrs, "delivery_id", d.ID, "error", err)
	if e.config.IsNotFound != nil && e.config.IsNotFound(err) {
		e.logger.WarnContext(ctx, "delivery abandoned: "+reason, attrs...)
		e.abandon(ctx, d, reason)
		return
	}

	e.logger.ErrorContext(ctx, "delivery lookup failed, will retry", attrs...)
	d.NextAttemptAt = e.retrier.ComputeNextAttempt(d.AttemptCount + 1)
	e.update(ctx, d)
}

// abandon fails a delivery that can no longer be attempted.
func (e *Engine) abandon(ctx context.Context, d *Delivery, reason string) {
	d.LastError = reason
	e.complete(d, StateFailed)
	e.config.Metrics.DeliveryFinished(false)
	e.update(ctx, d)
}

func (e *Engine) complete(d *Delivery, state State) {
	now := time.Now().UTC()
	d.State = state
	d.CompletedAt = &now
}

func (e *Engine) pushDLQ(ctx context.Context, d *Delivery, wh *webhook.Webhook, evt *event.Event, res Result) {
	if e.dlq == nil {
		return
	}
	if err := e.dlq.PushFailed(ctx, d, wh, evt, res.Error, res.StatusCode); err != nil {
		e.logger.ErrorContext(ctx, "push to DLQ failed", "delivery_id", d.ID, "error", err)
	}
}

func (e *Engine) update(ctx context.Context, d *Delivery) {
	// Persist even when ctx was cancelled mid-attempt.
	if err := e.store.UpdateDelivery(context.WithoutCancel(ctx), d); err != nil {
		e.logger.ErrorContext(ctx, "update delivery failed", "delivery_id", d.ID, "error", err)
	}
}
