// Command cachehookd runs the cachehook engine as a standalone daemon: the
// admin API over HTTP plus the configured Kafka and Redis trigger sources.
//
// Persistent drivers need a database handle and are available when the
// extension is embedded in an application; the daemon itself runs on the
// memory store. That queue dies with the process, so on shutdown the daemon
// drains it for up to ShutdownTimeout before stopping the engine. Deliveries
// still waiting on a retry backoff at that point are lost.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xraph/cachehook/extension"
)

var version = "dev"

func main() {
	configPath := flag.String("config", os.Getenv("CACHEHOOK_CONFIG"), "path to the YAML config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := extension.Load(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("cachehookd terminated with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg extension.Config, logger *slog.Logger) error {
	ext := extension.New(
		extension.WithConfig(cfg),
		extension.WithLogger(logger),
	)
	if err := ext.Init(ctx); err != nil {
		return err
	}

	handler, err := ext.Handler()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := ext.Start(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("cachehookd listening", "addr", cfg.Listen, "base_path", cfg.BasePath, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout+5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	if cfg.Driver == "" || cfg.Driver == extension.DriverMemory {
		drainCtx, cancelDrain := context.WithTimeout(shutdownCtx, cfg.ShutdownTimeout)
		if err := ext.Drain(drainCtx); err != nil {
			logger.Warn("queue not drained", "error", err)
		}
		cancelDrain()
	}
	// Stop flushes the buffer before the engine exits.
	if err := ext.Stop(shutdownCtx); err != nil {
		logger.Warn("extension shutdown", "error", err)
	}
	return serveErr
}
