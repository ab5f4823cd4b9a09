package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the cachehook store (SQLite).
var Migrations = migrate.NewGroup("cachehook")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_cachehook_webhooks",
			Version: "20250601000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS cachehook_webhooks (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL DEFAULT '',
    event       TEXT NOT NULL,
    url         TEXT NOT NULL DEFAULT '',
    secret      TEXT NOT NULL DEFAULT '',
    headers     TEXT NOT NULL DEFAULT '{}',
    filter      TEXT NOT NULL DEFAULT '',
    enabled     INTEGER NOT NULL DEFAULT 1,
    rate_limit  INTEGER NOT NULL DEFAULT 0,
    metadata    TEXT NOT NULL DEFAULT '{}',
    created_at  TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_cachehook_webhooks_event ON cachehook_webhooks (event);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS cachehook_webhooks`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_cachehook_events",
			Version: "20250601000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS cachehook_events (
    id          TEXT PRIMARY KEY,
    type        TEXT NOT NULL DEFAULT '',
    webhook_id  TEXT NOT NULL DEFAULT '',
    data        TEXT,
    created_at  TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_cachehook_events_type ON cachehook_events (type);
CREATE INDEX IF NOT EXISTS idx_cachehook_events_webhook ON cachehook_events (webhook_id, created_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS cachehook_events`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_cachehook_deliveries",
			Version: "20250601000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS cachehook_deliveries (
    id               TEXT PRIMARY KEY,
    event_id         TEXT NOT NULL DEFAULT '',
    webhook_id       TEXT NOT NULL DEFAULT '',
    state            TEXT NOT NULL DEFAULT 'pending',
    attempt_count    INTEGER NOT NULL DEFAULT 0,
    max_attempts     INTEGER NOT NULL DEFAULT 0,
    next_attempt_at  TEXT NOT NULL DEFAULT (datetime('now')),
    last_error       TEXT NOT NULL DEFAULT '',
    last_status_code INTEGER NOT NULL DEFAULT 0,
    last_response    TEXT NOT NULL DEFAULT '',
    last_latency_ms  INTEGER NOT NULL DEFAULT 0,
    completed_at     TEXT,
    created_at       TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at       TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_cachehook_deliveries_pending ON cachehook_deliveries (state, next_attempt_at);
CREATE INDEX IF NOT EXISTS idx_cachehook_deliveries_event ON cachehook_deliveries (event_id);
CREATE INDEX IF NOT EXISTS idx_cachehook_deliveries_webhook ON cachehook_deliveries (webhook_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS cachehook_deliveries`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_cachehook_dlq",
			Version: "20250601000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS cachehook_dlq (
    id               TEXT PRIMARY KEY,
    delivery_id      TEXT NOT NULL DEFAULT '',
    event_id         TEXT NOT NULL DEFAULT '',
    webhook_id       TEXT NOT NULL DEFAULT '',
    event_type       TEXT NOT NULL DEFAULT '',
    url              TEXT NOT NULL DEFAULT '',
    payload          TEXT,
    error            TEXT NOT NULL DEFAULT '',
    attempt_count    INTEGER NOT NULL DEFAULT 0,
    last_status_code INTEGER NOT NULL DEFAULT 0,
    replayed_at      TEXT,
    failed_at        TEXT NOT NULL DEFAULT (datetime('now')),
    created_at       TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at       TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_cachehook_dlq_webhook ON cachehook_dlq (webhook_id);
CREATE INDEX IF NOT EXISTS idx_cachehook_dlq_failed ON cachehook_dlq (failed_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS cachehook_dlq`)
				return err
			},
		},
	)
}
