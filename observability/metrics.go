package observability

import (
	gu "github.com/xraph/go-utils/metrics"
)

// Metrics holds the cachehook instruments, backed by any go-utils
// MetricFactory (e.g. fapp.Metrics() inside a forge app). Every Record
// method is safe on a nil *Metrics.
type Metrics struct {
	KeysObserved     gu.Counter
	GroupsFlushed    gu.Counter
	EventsDispatched gu.Counter
	EventsRejected   gu.Counter
	HandlerFailures  gu.Counter

	DeliveriesTotal   gu.Counter
	DeliveryLatency   gu.Histogram
	DLQSize           gu.Gauge
	PendingDeliveries gu.Gauge
}

// NewMetrics creates the instruments using the supplied factory.
func NewMetrics(factory gu.MetricFactory) *Metrics {
	return &Metrics{
		KeysObserved:     factory.Counter("cachehook_keys_observed_total"),
		GroupsFlushed:    factory.Counter("cachehook_groups_flushed_total"),
		EventsDispatched: factory.Counter("cachehook_events_dispatched_total"),
		EventsRejected:   factory.Counter("cachehook_events_rejected_total"),
		HandlerFailures:  factory.Counter("cachehook_handler_failures_total"),

		DeliveriesTotal:   factory.Counter("cachehook_deliveries_total"),
		DeliveryLatency:   factory.Histogram("cachehook_delivery_latency_seconds"),
		DLQSize:           factory.Gauge("cachehook_dlq_size"),
		PendingDeliveries: factory.Gauge("cachehook_pending_deliveries"),
	}
}

// RecordObserved counts one observed cache key by category.
func (m *Metrics) RecordObserved(category string) {
	if m == nil {
		return
	}
	m.KeysObserved.WithLabels(map[string]string{"category": category}).Inc()
}

// RecordFlush counts the groups handed to the dispatcher by one flush.
func (m *Metrics) RecordFlush(groups int) {
	if m == nil {
		return
	}
	for range groups {
		m.GroupsFlushed.Inc()
	}
}

func (m *Metrics) RecordDispatch(eventName string) {
	if m == nil {
		return
	}
	m.EventsDispatched.WithLabels(map[string]string{"event": eventName}).Inc()
}

// RecordRejection counts an event refused by the allow-list gate.
func (m *Metrics) RecordRejection(eventName string) {
	if m == nil {
		return
	}
	m.EventsRejected.WithLabels(map[string]string{"event": eventName}).Inc()
}

func (m *Metrics) RecordHandlerFailure(eventName string) {
	if m == nil {
		return
	}
	m.HandlerFailures.WithLabels(map[string]string{"event": eventName}).Inc()
}

// RecordDelivery records a delivery attempt with the given status and latency.
func (m *Metrics) RecordDelivery(status string, latencySeconds float64) {
	if m == nil {
		return
	}
	m.DeliveriesTotal.WithLabels(map[string]string{"status": status}).Inc()
	m.DeliveryLatency.Observe(latencySeconds)
}

// DeliveryQueued bumps the pending gauge.
func (m *Metrics) DeliveryQueued() {
	if m == nil {
		return
	}
	m.PendingDeliveries.Inc()
}

// DeliveryFinished lowers the pending gauge and, for dead letters, raises
// the DLQ gauge.
func (m *Metrics) DeliveryFinished(deadLettered bool) {
	if m == nil {
		return
	}
	m.PendingDeliveries.Dec()
	if deadLettered {
		m.DLQSize.Inc()
	}
}
