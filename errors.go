package cachehook

import (
	"errors"

	"github.com/xraph/cachehook/registry"
	"github.com/xraph/cachehook/resolve"
)

// Sentinel errors returned by cachehook operations.
var (
	// ErrNoStore is returned when an Engine is created without a store.
	ErrNoStore = errors.New("cachehook: store is required")

	// ErrNoAllowedEvents is returned when an Engine is created without an
	// allow-list. There is no "allow everything" default.
	ErrNoAllowedEvents = errors.New("cachehook: allowed events are required")

	ErrWebhookNotFound  = errors.New("cachehook: webhook not found")
	ErrEventNotFound    = errors.New("cachehook: event not found")
	ErrDeliveryNotFound = errors.New("cachehook: delivery not found")
	ErrDLQNotFound      = errors.New("cachehook: dlq entry not found")

	// ErrWebhookDisabled is returned when delivering to a disabled webhook.
	ErrWebhookDisabled = errors.New("cachehook: webhook is disabled")

	// ErrStoreClosed is returned when a store is used after Close.
	ErrStoreClosed = errors.New("cachehook: store is closed")

	// ErrMigrationFailed is returned when a database migration fails.
	ErrMigrationFailed = errors.New("cachehook: migration failed")

	// ErrUnknownObjectKind is returned when a fetcher is configured for an
	// object type outside post, term and user.
	ErrUnknownObjectKind = resolve.ErrUnknownKind

	// ErrDuplicateDefinition is returned by Engine.Register when the name is taken.
	ErrDuplicateDefinition = registry.ErrDuplicate

	// ErrPayloadValidationFailed is returned when a payload fails its JSON Schema.
	ErrPayloadValidationFailed = registry.ErrValidation
)
