// Package store defines the composite Store interface for all cachehook
// persistence.
//
// Each subsystem defines its own store interface and the aggregate Store
// composes them, so a backend implements one type and every service takes
// only the slice it needs.
package store

import (
	"context"

	"github.com/xraph/cachehook/delivery"
	"github.com/xraph/cachehook/dlq"
	"github.com/xraph/cachehook/event"
	"github.com/xraph/cachehook/webhook"
)

// Store is the aggregate persistence interface.
type Store interface {
	webhook.Store
	event.Store
	delivery.Store
	dlq.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
