package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/cachehook"
	"github.com/xraph/cachehook/delivery"
	"github.com/xraph/cachehook/dlq"
	"github.com/xraph/cachehook/event"
	"github.com/xraph/cachehook/id"
	"github.com/xraph/cachehook/store"
	"github.com/xraph/cachehook/webhook"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// stateInFlight marks rows claimed by Dequeue until UpdateDelivery.
const stateInFlight = "delivering"

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("cachehook/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("%w: postgres: %w", cachehook.ErrMigrationFailed, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Webhook Store ====================

func (s *Store) CreateWebhook(ctx context.Context, wh *webhook.Webhook) error {
	_, err := s.pg.NewInsert(toWebhookModel(wh)).Exec(ctx)
	return err
}

func (s *Store) GetWebhook(ctx context.Context, whID id.ID) (*webhook.Webhook, error) {
	m := new(webhookModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", whID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, cachehook.ErrWebhookNotFound
		}
		return nil, err
	}
	return fromWebhookModel(m)
}

func (s *Store) UpdateWebhook(ctx context.Context, wh *webhook.Webhook) error {
	m := toWebhookModel(wh)
	m.UpdatedAt = time.Now().UTC()
	res, err := s.pg.NewUpdate(m).
		WherePK().
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectRow(res, cachehook.ErrWebhookNotFound)
}

func (s *Store) DeleteWebhook(ctx context.Context, whID id.ID) error {
	res, err := s.pg.NewDelete((*webhookModel)(nil)).
		Where("id = $1", whID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectRow(res, cachehook.ErrWebhookNotFound)
}

func (s *Store) ListWebhooks(ctx context.Context, opts webhook.ListOpts) ([]*webhook.Webhook, error) {
	var models []webhookModel
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if opts.Event != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("event = $%d", argIdx), opts.Event)
	}
	if opts.Enabled != nil {
		argIdx++
		q = q.Where(fmt.Sprintf("enabled = $%d", argIdx), *opts.Enabled)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*webhook.Webhook, len(models))
	for i := range models {
		wh, err := fromWebhookModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = wh
	}
	return result, nil
}

func (s *Store) SetWebhookEnabled(ctx context.Context, whID id.ID, enabled bool) error {
	now := time.Now().UTC()
	res, err := s.pg.NewUpdate((*webhookModel)(nil)).
		Set("enabled = $1", enabled).
		Set("updated_at = $2", now).
		Where("id = $3", whID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectRow(res, cachehook.ErrWebhookNotFound)
}

// ==================== Event Store ====================

func (s *Store) CreateEvent(ctx context.Context, evt *event.Event) error {
	m, err := toEventModel(evt)
	if err != nil {
		return err
	}
	_, err = s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetEvent(ctx context.Context, evtID id.ID) (*event.Event, error) {
	m := new(eventModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", evtID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, cachehook.ErrEventNotFound
		}
		return nil, err
	}
	return fromEventModel(m)
}

func (s *Store) ListEvents(ctx context.Context, opts event.ListOpts) ([]*event.Event, error) {
	return s.listEvents(ctx, nil, opts)
}

func (s *Store) ListEventsByWebhook(ctx context.Context, whID id.ID, opts event.ListOpts) ([]*event.Event, error) {
	return s.listEvents(ctx, &whID, opts)
}

func (s *Store) listEvents(ctx context.Context, whID *id.ID, opts event.ListOpts) ([]*event.Event, error) {
	var models []eventModel
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if whID != nil {
		argIdx++
		q = q.Where(fmt.Sprintf("webhook_id = $%d", argIdx), whID.String())
	}
	if opts.Type != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("type = $%d", argIdx), opts.Type)
	}
	if opts.From != nil {
		argIdx++
		q = q.Where(fmt.Sprintf("created_at >= $%d", argIdx), *opts.From)
	}
	if opts.To != nil {
		argIdx++
		q = q.Where(fmt.Sprintf("created_at <= $%d", argIdx), *opts.To)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*event.Event, len(models))
	for i := range models {
		evt, err := fromEventModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = evt
	}
	return result, nil
}

// ==================== Delivery Store ====================

func (s *Store) Enqueue(ctx context.Context, d *delivery.Delivery) error {
	_, err := s.pg.NewInsert(toDeliveryModel(d)).Exec(ctx)
	return err
}

func (s *Store) EnqueueBatch(ctx context.Context, ds []*delivery.Delivery) error {
	if len(ds) == 0 {
		return nil
	}
	models := make([]deliveryModel, len(ds))
	for i, d := range ds {
		models[i] = *toDeliveryModel(d)
	}
	_, err := s.pg.NewInsert(&models).Exec(ctx)
	return err
}

func (s *Store) Dequeue(ctx context.Context, limit int) ([]*delivery.Delivery, error) {
	// FOR UPDATE SKIP LOCKED lets several workers poll the same table.
	var models []deliveryModel
	err := s.pg.NewRaw(`
		UPDATE cachehook_deliveries
		SET state = 'delivering', updated_at = NOW()
		WHERE id IN (
			SELECT id FROM cachehook_deliveries
			WHERE state = 'pending' AND next_attempt_at <= NOW()
			ORDER BY next_attempt_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING *
	`, limit).Scan(ctx, &models)
	if err != nil {
		return nil, err
	}
	return fromDeliveryModels(models)
}

func (s *Store) UpdateDelivery(ctx context.Context, d *delivery.Delivery) error {
	m := toDeliveryModel(d)
	m.UpdatedAt = time.Now().UTC()
	res, err := s.pg.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	return expectRow(res, cachehook.ErrDeliveryNotFound)
}

func (s *Store) GetDelivery(ctx context.Context, delID id.ID) (*delivery.Delivery, error) {
	m := new(deliveryModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", delID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, cachehook.ErrDeliveryNotFound
		}
		return nil, err
	}
	return fromDeliveryModel(m)
}

func (s *Store) ListByWebhook(ctx context.Context, whID id.ID, opts delivery.ListOpts) ([]*delivery.Delivery, error) {
	var models []deliveryModel
	q := s.pg.NewSelect(&models).Where("webhook_id = $1", whID.String())

	if opts.State != nil {
		q = q.Where("state = $2", string(*opts.State))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return fromDeliveryModels(models)
}

func (s *Store) ListByEvent(ctx context.Context, evtID id.ID) ([]*delivery.Delivery, error) {
	var models []deliveryModel
	if err := s.pg.NewSelect(&models).
		Where("event_id = $1", evtID.String()).
		OrderExpr("created_at DESC").
		Scan(ctx); err != nil {
		return nil, err
	}
	return fromDeliveryModels(models)
}

func (s *Store) CountPending(ctx context.Context) (int64, error) {
	return s.pg.NewSelect((*deliveryModel)(nil)).
		Where("state = $1", string(delivery.StatePending)).
		Count(ctx)
}

// ==================== DLQ Store ====================

func (s *Store) Push(ctx context.Context, entry *dlq.Entry) error {
	_, err := s.pg.NewInsert(toDLQEntryModel(entry)).Exec(ctx)
	return err
}

func (s *Store) ListDLQ(ctx context.Context, opts dlq.ListOpts) ([]*dlq.Entry, error) {
	var models []dlqEntryModel
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if opts.WebhookID != nil {
		argIdx++
		q = q.Where(fmt.Sprintf("webhook_id = $%d", argIdx), opts.WebhookID.String())
	}
	if opts.EventType != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("event_type = $%d", argIdx), opts.EventType)
	}
	if opts.From != nil {
		argIdx++
		q = q.Where(fmt.Sprintf("failed_at >= $%d", argIdx), *opts.From)
	}
	if opts.To != nil {
		argIdx++
		q = q.Where(fmt.Sprintf("failed_at <= $%d", argIdx), *opts.To)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("failed_at DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*dlq.Entry, len(models))
	for i := range models {
		entry, err := fromDLQEntryModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = entry
	}
	return result, nil
}

func (s *Store) GetDLQ(ctx context.Context, dlqID id.ID) (*dlq.Entry, error) {
	m := new(dlqEntryModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", dlqID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, cachehook.ErrDLQNotFound
		}
		return nil, err
	}
	return fromDLQEntryModel(m)
}

func (s *Store) Replay(ctx context.Context, dlqID id.ID) error {
	entry, err := s.GetDLQ(ctx, dlqID)
	if err != nil {
		return err
	}
	return s.replay(ctx, entry, time.Now().UTC())
}

func (s *Store) ReplayBulk(ctx context.Context, from, to time.Time) (int64, error) {
	var models []dlqEntryModel
	if err := s.pg.NewSelect(&models).
		Where("failed_at >= $1", from).
		Where("failed_at <= $2", to).
		Where("replayed_at IS NULL").
		Scan(ctx); err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	var count int64
	for i := range models {
		entry, err := fromDLQEntryModel(&models[i])
		if err != nil {
			return count, err
		}
		if err := s.replay(ctx, entry, now); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// replay enqueues a fresh delivery for entry and stamps replayed_at. The
// entry itself stays in the queue as an audit record until Purge.
func (s *Store) replay(ctx context.Context, entry *dlq.Entry, now time.Time) error {
	d := &delivery.Delivery{
		Entity:        cachehook.NewEntity(),
		ID:            id.NewDeliveryID(),
		EventID:       entry.EventID,
		WebhookID:     entry.WebhookID,
		State:         delivery.StatePending,
		MaxAttempts:   dlq.ReplayMaxAttempts,
		NextAttemptAt: now,
	}
	if err := s.Enqueue(ctx, d); err != nil {
		return err
	}

	_, err := s.pg.NewUpdate((*dlqEntryModel)(nil)).
		Set("replayed_at = $1", now).
		Set("updated_at = $2", now).
		Where("id = $3", entry.ID.String()).
		Exec(ctx)
	return err
}

func (s *Store) Purge(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.pg.NewDelete((*dlqEntryModel)(nil)).
		Where("created_at < $1", before).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) CountDLQ(ctx context.Context) (int64, error) {
	return s.pg.NewSelect((*dlqEntryModel)(nil)).Count(ctx)
}

func fromDeliveryModels(models []deliveryModel) ([]*delivery.Delivery, error) {
	result := make([]*delivery.Delivery, len(models))
	for i := range models {
		d, err := fromDeliveryModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = d
	}
	return result, nil
}

type rowsAffected interface {
	RowsAffected() (int64, error)
}

// expectRow maps a zero-row write onto notFound.
func expectRow(res rowsAffected, notFound error) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return notFound
	}
	return nil
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
