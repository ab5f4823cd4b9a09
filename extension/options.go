package extension

import (
	"log/slog"

	"github.com/xraph/grove"
	"github.com/xraph/grove/kv"

	"github.com/xraph/cachehook"
	"github.com/xraph/cachehook/store"
)

// ExtOption configures the cachehook extension.
type ExtOption func(*Extension)

// WithStore sets the persistence backend directly, bypassing Driver.
func WithStore(s store.Store) ExtOption {
	return func(e *Extension) {
		e.store = s
	}
}

// WithGroveDatabase supplies the database used by the postgres, sqlite and
// mongo drivers.
func WithGroveDatabase(db *grove.DB) ExtOption {
	return func(e *Extension) {
		e.db = db
	}
}

// WithGroveKV supplies the KV store used by the redis driver.
func WithGroveKV(kvs *kv.Store) ExtOption {
	return func(e *Extension) {
		e.kv = kvs
	}
}

// WithPrefix sets the URL prefix for all admin routes.
func WithPrefix(prefix string) ExtOption {
	return func(e *Extension) {
		e.config.BasePath = prefix
	}
}

// WithConfig sets the extension configuration directly.
func WithConfig(cfg Config) ExtOption {
	return func(e *Extension) {
		e.config = cfg
	}
}

// WithLogger sets the logger shared by the engine, API and trigger sources.
func WithLogger(logger *slog.Logger) ExtOption {
	return func(e *Extension) {
		e.logger = logger
	}
}

// WithEngineOption appends a raw cachehook.Option to the engine options.
func WithEngineOption(opt cachehook.Option) ExtOption {
	return func(e *Extension) {
		e.opts = append(e.opts, opt)
	}
}

// WithDisableMigrations disables schema migration in Init.
func WithDisableMigrations() ExtOption {
	return func(e *Extension) {
		e.config.DisableMigrate = true
	}
}
