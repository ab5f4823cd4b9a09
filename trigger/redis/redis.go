// Package redis feeds purge messages published on a Redis channel into a
// trigger.Sink.
package redis

import (
	"context"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/cachehook/trigger"
)

// DefaultChannel is the channel subscribed to when none is configured.
const DefaultChannel = "cachehook:purge"

// Subscriber listens on one pub/sub channel.
type Subscriber struct {
	client  goredis.UniversalClient
	channel string
	sink    trigger.Sink
	logger  *slog.Logger
}

// New creates a Subscriber. An empty channel selects DefaultChannel.
func New(client goredis.UniversalClient, channel string, sink trigger.Sink, logger *slog.Logger) *Subscriber {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{client: client, channel: channel, sink: sink, logger: logger}
}

// Channel returns the subscribed channel name.
func (s *Subscriber) Channel() string { return s.channel }

// Run subscribes and applies messages until ctx is cancelled or the
// subscription is closed.
func (s *Subscriber) Run(ctx context.Context) error {
	ps := s.client.Subscribe(ctx, s.channel)
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("redis trigger: subscribe %s: %w", s.channel, err)
	}
	s.logger.InfoContext(ctx, "redis trigger started", "channel", s.channel)

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			s.Handle(ctx, msg.Payload)
		}
	}
}

// Handle applies one raw message. Malformed payloads are logged and dropped.
func (s *Subscriber) Handle(ctx context.Context, payload string) {
	m, err := trigger.Decode([]byte(payload))
	if err != nil {
		s.logger.WarnContext(ctx, "redis trigger: dropping message", "channel", s.channel, "error", err)
		return
	}
	m.Apply(ctx, s.sink)
}
