package trigger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisSource consumes change events from a Redis pub/sub channel.
type RedisSource struct {
	log     *slog.Logger
	client  *redis.Client
	channel string
}

func NewRedis(log *slog.Logger, client *redis.Client, channel string) *RedisSource {
	return &RedisSource{log: log, client: client, channel: channel}
}

func (s *RedisSource) Run(ctx context.Context, handle Handler) error {
	sub := s.client.Subscribe(ctx, s.channel)
	defer sub.Close()

	// Receive blocks until the subscription is confirmed.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe %s: %w", s.channel, err)
	}
	s.log.Info("listening for change events", "transport", "redis", "channel", s.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("redis subscription to %s closed", s.channel)
			}
			dispatch(ctx, s.log, []byte(msg.Payload), handle)
		}
	}
}
