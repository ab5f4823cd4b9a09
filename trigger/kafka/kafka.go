// Package kafka feeds purge messages from a Kafka topic into a trigger.Sink.
package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/xraph/cachehook/trigger"
)

// Config selects the topic to consume.
type Config struct {
	Brokers []string
	Topic   string
	GroupID string

	// ReadTimeout bounds one ReadMessage call so Run notices cancellation.
	ReadTimeout time.Duration
}

// Reader is the part of *kafka.Reader the consumer uses.
type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer reads purge messages and applies them to a sink.
type Consumer struct {
	reader      Reader
	sink        trigger.Sink
	logger      *slog.Logger
	readTimeout time.Duration
}

// New creates a consumer group reader for cfg.
func New(cfg Config, sink trigger.Sink, logger *slog.Logger) *Consumer {
	if cfg.GroupID == "" {
		cfg.GroupID = "cachehook"
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		Topic:          cfg.Topic,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
	})
	c := NewWithReader(reader, sink, logger)
	if cfg.ReadTimeout > 0 {
		c.readTimeout = cfg.ReadTimeout
	}
	return c
}

// NewWithReader wraps an existing reader.
func NewWithReader(r Reader, sink trigger.Sink, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		reader:      r,
		sink:        sink,
		logger:      logger,
		readTimeout: 10 * time.Second,
	}
}

// Run consumes until ctx is cancelled. Malformed messages are logged and
// skipped.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.InfoContext(ctx, "kafka trigger started")
	for {
		if ctx.Err() != nil {
			return nil
		}

		readCtx, cancel := context.WithTimeout(ctx, c.readTimeout)
		msg, err := c.reader.ReadMessage(readCtx)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			// A closed reader reports io.EOF.
			if errors.Is(err, io.EOF) {
				return nil
			}
			c.logger.WarnContext(ctx, "kafka trigger: read failed", "error", err)
			continue
		}

		m, err := trigger.Decode(msg.Value)
		if err != nil {
			c.logger.WarnContext(ctx, "kafka trigger: dropping message",
				"topic", msg.Topic,
				"offset", msg.Offset,
				"error", err,
			)
			continue
		}
		m.Apply(ctx, c.sink)
	}
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
