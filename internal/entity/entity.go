// Package entity holds the timestamp fields shared by persisted cachehook records.
package entity

import "time"

// Entity is embedded by webhooks, events, deliveries and DLQ entries.
type Entity struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New stamps both fields with the current UTC time.
func New() Entity {
	now := time.Now().UTC()
	return Entity{CreatedAt: now, UpdatedAt: now}
}

// Touch advances UpdatedAt.
func (e *Entity) Touch() {
	e.UpdatedAt = time.Now().UTC()
}
