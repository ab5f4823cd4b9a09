// Package extension assembles a complete cachehook deployment from a Config:
// the store selected by Config.Driver, the engine, the admin API and the
// optional Kafka and Redis trigger sources.
//
// It is used by cmd/cachehookd and can be embedded in a Forge application:
//
//	ext := extension.New(
//	    extension.WithConfig(cfg),
//	    extension.WithGroveDatabase(db),
//	)
//	if err := ext.Init(ctx); err != nil { ... }
//	ext.RegisterRoutes(app.Router(), app.Logger())
//	ext.Start(ctx)
//	defer ext.Stop(context.Background())
package extension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/grove/kv"

	"github.com/xraph/cachehook"
	"github.com/xraph/cachehook/api"
	"github.com/xraph/cachehook/content"
	"github.com/xraph/cachehook/store"
	"github.com/xraph/cachehook/store/memory"
	"github.com/xraph/cachehook/store/mongo"
	"github.com/xraph/cachehook/store/postgres"
	"github.com/xraph/cachehook/store/redis"
	"github.com/xraph/cachehook/store/sqlite"
	"github.com/xraph/cachehook/trigger/kafka"
	redistrigger "github.com/xraph/cachehook/trigger/redis"
)

// ErrNotInitialized is returned when the extension is used before Init.
var ErrNotInitialized = errors.New("cachehook: extension not initialized")

// Extension owns the engine and everything wired around it.
type Extension struct {
	config Config
	opts   []cachehook.Option
	logger *slog.Logger

	db    *grove.DB
	kv    *kv.Store
	store store.Store

	engine *cachehook.Engine

	kafka       *kafka.Consumer
	redisClient goredis.UniversalClient
	subscriber  *redistrigger.Subscriber

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an extension with DefaultConfig.
func New(opts ...ExtOption) *Extension {
	e := &Extension{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Init builds the store, runs migrations and constructs the engine and the
// trigger sources.
func (e *Extension) Init(ctx context.Context) error {
	if e.store == nil {
		s, err := e.buildStore()
		if err != nil {
			return err
		}
		e.store = s
	}

	if !e.config.DisableMigrate {
		if err := e.store.Migrate(ctx); err != nil {
			return err
		}
	}

	opts := []cachehook.Option{
		cachehook.WithStore(e.store),
		cachehook.WithLogger(e.logger),
	}
	opts = append(opts, e.config.ToOptions()...)
	if e.config.ContentURL != "" {
		opts = append(opts, cachehook.WithContentSource(content.NewREST(e.config.ContentURL)))
	}
	opts = append(opts, e.opts...)

	engine, err := cachehook.New(opts...)
	if err != nil {
		return err
	}
	e.engine = engine

	if k := e.config.Kafka; k.Enabled() {
		e.kafka = kafka.New(kafka.Config{
			Brokers: k.Brokers,
			Topic:   k.Topic,
			GroupID: k.GroupID,
		}, engine, e.logger)
	}

	if r := e.config.Redis; r.Enabled() {
		e.redisClient = goredis.NewClient(&goredis.Options{
			Addr:     r.Addr,
			Password: r.Password,
			DB:       r.DB,
		})
		e.subscriber = redistrigger.New(e.redisClient, r.Channel, engine, e.logger)
	}

	return nil
}

func (e *Extension) buildStore() (store.Store, error) {
	switch strings.ToLower(e.config.Driver) {
	case "", DriverMemory:
		return memory.New(), nil
	case DriverPostgres, DriverSQLite, DriverMongo:
		if e.db == nil {
			return nil, fmt.Errorf("cachehook: driver %q requires a grove database", e.config.Driver)
		}
		switch strings.ToLower(e.config.Driver) {
		case DriverPostgres:
			return postgres.New(e.db), nil
		case DriverSQLite:
			return sqlite.New(e.db), nil
		default:
			return mongo.New(e.db), nil
		}
	case DriverRedis:
		if e.kv == nil {
			return nil, fmt.Errorf("cachehook: driver %q requires a grove kv store", e.config.Driver)
		}
		return redis.New(e.kv), nil
	default:
		return nil, fmt.Errorf("cachehook: unknown store driver %q", e.config.Driver)
	}
}

// Engine returns the engine built by Init.
func (e *Extension) Engine() *cachehook.Engine { return e.engine }

// Config returns the extension configuration.
func (e *Extension) Config() Config { return e.config }

// Prefix returns the configured URL prefix.
func (e *Extension) Prefix() string { return e.config.BasePath }

// Handler returns the net/http admin API mounted under BasePath.
func (e *Extension) Handler() (http.Handler, error) {
	if e.engine == nil {
		return nil, ErrNotInitialized
	}
	h := api.NewHandler(e.engine, e.logger)

	prefix := strings.TrimSuffix(e.config.BasePath, "/")
	if prefix == "" {
		return h, nil
	}
	mux := http.NewServeMux()
	mux.Handle(prefix+"/", http.StripPrefix(prefix, h))
	return mux, nil
}

// RegisterRoutes registers the admin API on a Forge router under BasePath.
func (e *Extension) RegisterRoutes(router forge.Router, log forge.Logger) error {
	if e.engine == nil {
		return ErrNotInitialized
	}
	g := router.Group(e.config.BasePath)
	api.NewForgeAPI(e.engine, log).RegisterRoutes(g)
	return nil
}

// Start starts the delivery engine and the trigger sources.
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return ErrNotInitialized
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.cancel = cancel

	e.engine.Start(runCtx)

	if e.kafka != nil {
		e.run(runCtx, "kafka", e.kafka.Run)
	}
	if e.subscriber != nil {
		e.run(runCtx, "redis", e.subscriber.Run)
	}

	e.logger.InfoContext(ctx, "cachehook started",
		"driver", e.config.Driver,
		"base_path", e.config.BasePath,
		"kafka", e.kafka != nil,
		"redis", e.subscriber != nil,
	)
	return nil
}

func (e *Extension) run(ctx context.Context, name string, fn func(context.Context) error) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := fn(ctx); err != nil {
			e.logger.ErrorContext(ctx, "trigger stopped", "trigger", name, "error", err)
		}
	}()
}

// Stop stops the trigger sources, then the engine (which flushes the
// buffer), then closes the store.
func (e *Extension) Stop(ctx context.Context) error {
	if e.engine == nil {
		return ErrNotInitialized
	}

	if e.cancel != nil {
		e.cancel()
	}
	var errs []error
	if e.kafka != nil {
		errs = append(errs, e.kafka.Close())
	}
	e.wg.Wait()
	if e.redisClient != nil {
		errs = append(errs, e.redisClient.Close())
	}

	e.engine.Stop(ctx)
	errs = append(errs, e.store.Close())

	e.logger.InfoContext(ctx, "cachehook stopped")
	return errors.Join(errs...)
}

// drainInterval is how often Drain rechecks the queue.
const drainInterval = 20 * time.Millisecond

// Drain flushes the buffer and waits until the store holds no pending
// deliveries or ctx is done. Call it between Start and Stop when the queue
// does not outlive the process, as with the memory driver. Deliveries still
// backing off when ctx expires are lost.
func (e *Extension) Drain(ctx context.Context) error {
	if e.engine == nil {
		return ErrNotInitialized
	}
	e.engine.Flush(ctx)

	ticker := time.NewTicker(drainInterval)
	defer ticker.Stop()
	for {
		n, err := e.store.CountPending(ctx)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			e.logger.WarnContext(ctx, "cachehook drain incomplete", "pending", n)
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Health checks store connectivity.
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return ErrNotInitialized
	}
	return e.store.Ping(ctx)
}
