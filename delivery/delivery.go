package delivery

import (
	"time"

	"github.com/xraph/cachehook/id"
	"github.com/xraph/cachehook/internal/entity"
)

// State is where a delivery sits in its lifecycle. Pending is the only
// state the engine acts on; delivered and failed are terminal.
type State string

const (
	// StatePending covers both waiting for NextAttemptAt and claimed by a poller.
	StatePending State = "pending"

	// StateDelivered means the receiver answered 2xx.
	StateDelivered State = "delivered"

	// StateFailed means no further attempt will be made: retries ran out,
	// the receiver rejected the request, or the webhook or event is gone.
	// Only exhausted retries are pushed to the DLQ.
	StateFailed State = "failed"
)

// Delivery is one event queued for one webhook. Fan-out creates one per
// enabled subscriber and each is retried independently.
type Delivery struct {
	entity.Entity

	// ID is the unique TypeID for this delivery.
	ID id.ID `json:"id"`

	// EventID references the event being delivered.
	EventID id.ID `json:"event_id"`

	// WebhookID references the target webhook.
	WebhookID id.ID `json:"webhook_id"`

	// State is the current delivery state.
	State State `json:"state"`

	// AttemptCount counts HTTP attempts. Lookup failures do not count.
	AttemptCount int `json:"attempt_count"`

	// MaxAttempts is the attempt after which a failure goes to the DLQ.
	MaxAttempts int `json:"max_attempts"`

	// NextAttemptAt is when Dequeue may next claim the delivery.
	NextAttemptAt time.Time `json:"next_attempt_at"`

	// LastError is the error message from the most recent failed attempt.
	LastError string `json:"last_error,omitempty"`

	// LastStatusCode is the HTTP status code from the most recent attempt.
	LastStatusCode int `json:"last_status_code,omitempty"`

	// LastResponse is the response body of the most recent attempt, capped at 1KB.
	LastResponse string `json:"last_response,omitempty"`

	// LastLatencyMs is the latency in milliseconds of the most recent attempt.
	LastLatencyMs int `json:"last_latency_ms,omitempty"`

	// CompletedAt is when the delivery was completed (delivered or failed).
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ListOpts configures filtering and pagination for delivery listing.
type ListOpts struct {
	Offset int
	Limit  int
	State  *State
}
