package mongo

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/cachehook/delivery"
	"github.com/xraph/cachehook/dlq"
	"github.com/xraph/cachehook/event"
	"github.com/xraph/cachehook/id"
	"github.com/xraph/cachehook/internal/entity"
	"github.com/xraph/cachehook/webhook"
)

// --- Webhook models ---

type webhookModel struct {
	grove.BaseModel `grove:"table:cachehook_webhooks"`

	ID        string            `grove:"id,pk"      bson:"_id"`
	Name      string            `grove:"name"       bson:"name"`
	Event     string            `grove:"event"      bson:"event"`
	URL       string            `grove:"url"        bson:"url"`
	Secret    string            `grove:"secret"     bson:"secret"`
	Headers   map[string]string `grove:"headers"    bson:"headers,omitempty"`
	Filter    string            `grove:"filter"     bson:"filter,omitempty"`
	Enabled   bool              `grove:"enabled"    bson:"enabled"`
	RateLimit int               `grove:"rate_limit" bson:"rate_limit"`
	Metadata  map[string]string `grove:"metadata"   bson:"metadata,omitempty"`
	CreatedAt time.Time         `grove:"created_at" bson:"created_at"`
	UpdatedAt time.Time         `grove:"updated_at" bson:"updated_at"`
}

func toWebhookModel(wh *webhook.Webhook) *webhookModel {
	return &webhookModel{
		ID:        wh.ID.String(),
		Name:      wh.Name,
		Event:     wh.Event,
		URL:       wh.URL,
		Secret:    wh.Secret,
		Headers:   wh.Headers,
		Filter:    wh.Filter,
		Enabled:   wh.Enabled,
		RateLimit: wh.RateLimit,
		Metadata:  wh.Metadata,
		CreatedAt: wh.CreatedAt,
		UpdatedAt: wh.UpdatedAt,
	}
}

func fromWebhookModel(m *webhookModel) (*webhook.Webhook, error) {
	whID, err := id.ParseWebhookID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse webhook ID %q: %w", m.ID, err)
	}

	return &webhook.Webhook{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:        whID,
		Name:      m.Name,
		Event:     m.Event,
		URL:       m.URL,
		Secret:    m.Secret,
		Headers:   m.Headers,
		Filter:    m.Filter,
		Enabled:   m.Enabled,
		RateLimit: m.RateLimit,
		Metadata:  m.Metadata,
	}, nil
}

// --- Event models ---

// Data is kept as JSON text so nested payload values round-trip as plain
// maps and slices rather than BSON documents.
type eventModel struct {
	grove.BaseModel `grove:"table:cachehook_events"`

	ID        string    `grove:"id,pk"      bson:"_id"`
	Type      string    `grove:"type"       bson:"type"`
	WebhookID string    `grove:"webhook_id" bson:"webhook_id"`
	Data      string    `grove:"data"       bson:"data"`
	CreatedAt time.Time `grove:"created_at" bson:"created_at"`
	UpdatedAt time.Time `grove:"updated_at" bson:"updated_at"`
}

func toEventModel(evt *event.Event) (*eventModel, error) {
	data, err := json.Marshal(evt.Data)
	if err != nil {
		return nil, fmt.Errorf("encode event data: %w", err)
	}

	return &eventModel{
		ID:        evt.ID.String(),
		Type:      evt.Type,
		WebhookID: evt.WebhookID.String(),
		Data:      string(data),
		CreatedAt: evt.CreatedAt,
		UpdatedAt: evt.UpdatedAt,
	}, nil
}

func fromEventModel(m *eventModel) (*event.Event, error) {
	evtID, err := id.ParseEventID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse event ID %q: %w", m.ID, err)
	}

	whID, err := id.ParseWebhookID(m.WebhookID)
	if err != nil {
		return nil, fmt.Errorf("parse webhook ID %q: %w", m.WebhookID, err)
	}

	var data event.Payload
	if m.Data != "" {
		if err := json.Unmarshal([]byte(m.Data), &data); err != nil {
			return nil, fmt.Errorf("decode event data: %w", err)
		}
	}

	return &event.Event{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:        evtID,
		Type:      m.Type,
		WebhookID: whID,
		Data:      data,
	}, nil
}

// --- Delivery models ---

type deliveryModel struct {
	grove.BaseModel `grove:"table:cachehook_deliveries"`

	ID             string     `grove:"id,pk"            bson:"_id"`
	EventID        string     `grove:"event_id"         bson:"event_id"`
	WebhookID      string     `grove:"webhook_id"       bson:"webhook_id"`
	State          string     `grove:"state"            bson:"state"`
	AttemptCount   int        `grove:"attempt_count"    bson:"attempt_count"`
	MaxAttempts    int        `grove:"max_attempts"     bson:"max_attempts"`
	NextAttemptAt  time.Time  `grove:"next_attempt_at"  bson:"next_attempt_at"`
	LastError      string     `grove:"last_error"       bson:"last_error"`
	LastStatusCode int        `grove:"last_status_code" bson:"last_status_code"`
	LastResponse   string     `grove:"last_response"    bson:"last_response"`
	LastLatencyMs  int        `grove:"last_latency_ms"  bson:"last_latency_ms"`
	CompletedAt    *time.Time `grove:"completed_at"     bson:"completed_at,omitempty"`
	CreatedAt      time.Time  `grove:"created_at"       bson:"created_at"`
	UpdatedAt      time.Time  `grove:"updated_at"       bson:"updated_at"`
}

func toDeliveryModel(d *delivery.Delivery) *deliveryModel {
	return &deliveryModel{
		ID:             d.ID.String(),
		EventID:        d.EventID.String(),
		WebhookID:      d.WebhookID.String(),
		State:          string(d.State),
		AttemptCount:   d.AttemptCount,
		MaxAttempts:    d.MaxAttempts,
		NextAttemptAt:  d.NextAttemptAt,
		LastError:      d.LastError,
		LastStatusCode: d.LastStatusCode,
		LastResponse:   d.LastResponse,
		LastLatencyMs:  d.LastLatencyMs,
		CompletedAt:    d.CompletedAt,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func fromDeliveryModel(m *deliveryModel) (*delivery.Delivery, error) {
	delID, err := id.ParseDeliveryID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse delivery ID %q: %w", m.ID, err)
	}

	evtID, err := id.ParseEventID(m.EventID)
	if err != nil {
		return nil, fmt.Errorf("parse event ID %q: %w", m.EventID, err)
	}

	whID, err := id.ParseWebhookID(m.WebhookID)
	if err != nil {
		return nil, fmt.Errorf("parse webhook ID %q: %w", m.WebhookID, err)
	}

	state := delivery.State(m.State)
	if m.State == stateInFlight {
		state = delivery.StatePending
	}

	return &delivery.Delivery{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:             delID,
		EventID:        evtID,
		WebhookID:      whID,
		State:          state,
		AttemptCount:   m.AttemptCount,
		MaxAttempts:    m.MaxAttempts,
		NextAttemptAt:  m.NextAttemptAt,
		LastError:      m.LastError,
		LastStatusCode: m.LastStatusCode,
		LastResponse:   m.LastResponse,
		LastLatencyMs:  m.LastLatencyMs,
		CompletedAt:    m.CompletedAt,
	}, nil
}

// --- DLQ models ---

type dlqEntryModel struct {
	grove.BaseModel `grove:"table:cachehook_dlq"`

	ID             string     `grove:"id,pk"            bson:"_id"`
	DeliveryID     string     `grove:"delivery_id"      bson:"delivery_id"`
	EventID        string     `grove:"event_id"         bson:"event_id"`
	WebhookID      string     `grove:"webhook_id"       bson:"webhook_id"`
	EventType      string     `grove:"event_type"       bson:"event_type"`
	URL            string     `grove:"url"              bson:"url"`
	Payload        string     `grove:"payload"          bson:"payload,omitempty"`
	Error          string     `grove:"error"            bson:"error"`
	AttemptCount   int        `grove:"attempt_count"    bson:"attempt_count"`
	LastStatusCode int        `grove:"last_status_code" bson:"last_status_code"`
	ReplayedAt     *time.Time `grove:"replayed_at"      bson:"replayed_at,omitempty"`
	FailedAt       time.Time  `grove:"failed_at"        bson:"failed_at"`
	CreatedAt      time.Time  `grove:"created_at"       bson:"created_at"`
	UpdatedAt      time.Time  `grove:"updated_at"       bson:"updated_at"`
}

func toDLQEntryModel(e *dlq.Entry) *dlqEntryModel {
	return &dlqEntryModel{
		ID:             e.ID.String(),
		DeliveryID:     e.DeliveryID.String(),
		EventID:        e.EventID.String(),
		WebhookID:      e.WebhookID.String(),
		EventType:      e.EventType,
		URL:            e.URL,
		Payload:        string(e.Payload),
		Error:          e.Error,
		AttemptCount:   e.AttemptCount,
		LastStatusCode: e.LastStatusCode,
		ReplayedAt:     e.ReplayedAt,
		FailedAt:       e.FailedAt,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

func fromDLQEntryModel(m *dlqEntryModel) (*dlq.Entry, error) {
	dlqID, err := id.ParseDLQID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse DLQ ID %q: %w", m.ID, err)
	}

	delID, err := id.ParseDeliveryID(m.DeliveryID)
	if err != nil {
		return nil, fmt.Errorf("parse delivery ID %q: %w", m.DeliveryID, err)
	}

	evtID, err := id.ParseEventID(m.EventID)
	if err != nil {
		return nil, fmt.Errorf("parse event ID %q: %w", m.EventID, err)
	}

	whID, err := id.ParseWebhookID(m.WebhookID)
	if err != nil {
		return nil, fmt.Errorf("parse webhook ID %q: %w", m.WebhookID, err)
	}

	var payload json.RawMessage
	if m.Payload != "" {
		payload = json.RawMessage(m.Payload)
	}

	return &dlq.Entry{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:             dlqID,
		DeliveryID:     delID,
		EventID:        evtID,
		WebhookID:      whID,
		EventType:      m.EventType,
		URL:            m.URL,
		Payload:        payload,
		Error:          m.Error,
		AttemptCount:   m.AttemptCount,
		LastStatusCode: m.LastStatusCode,
		ReplayedAt:     m.ReplayedAt,
		FailedAt:       m.FailedAt,
	}, nil
}
