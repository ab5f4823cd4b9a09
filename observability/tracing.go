package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/xraph/cachehook"

// Tracer provides OpenTelemetry spans for flushes and deliveries.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer uses the globally registered tracer provider.
func NewTracer() *Tracer {
	return &Tracer{tracer: otel.Tracer(tracerName)}
}

// StartFlushSpan starts a span covering one buffer flush.
func (t *Tracer) StartFlushSpan(ctx context.Context, groups int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "cachehook.flush",
		trace.WithAttributes(attribute.Int("cachehook.groups", groups)),
	)
}

// StartDispatchSpan starts a span for one dispatched event.
func (t *Tracer) StartDispatchSpan(ctx context.Context, eventName string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "cachehook.dispatch",
		trace.WithAttributes(attribute.String("cachehook.event", eventName)),
	)
}

// StartDeliverySpan starts a span for one delivery attempt.
func (t *Tracer) StartDeliverySpan(ctx context.Context, deliveryID, eventID, webhookID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "cachehook.delivery",
		trace.WithAttributes(
			attribute.String("cachehook.delivery_id", deliveryID),
			attribute.String("cachehook.event_id", eventID),
			attribute.String("cachehook.webhook_id", webhookID),
		),
	)
}

// EndDeliverySpan ends a delivery span with result attributes.
func (t *Tracer) EndDeliverySpan(span trace.Span, statusCode, latencyMs int, errMsg string) {
	span.SetAttributes(
		attribute.Int("http.status_code", statusCode),
		attribute.Int("cachehook.latency_ms", latencyMs),
	)
	if errMsg != "" {
		span.SetAttributes(attribute.String("cachehook.error", errMsg))
		span.SetStatus(codes.Error, errMsg)
	}
	span.End()
}
