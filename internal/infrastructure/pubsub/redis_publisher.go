package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"commerce-sync-layer/internal/domain"
)

// DefaultChannel is the Redis channel webhook events are broadcast on.
const DefaultChannel = "commerce:webhooks"

// RedisPublisher pushes normalized webhook events onto a Redis channel so
// other services can react to marketplace activity without polling.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	logger  zerolog.Logger
}

// NewRedisPublisher wraps an already-connected Redis client. An empty channel
// name falls back to DefaultChannel.
func NewRedisPublisher(client *redis.Client, channel string, logger zerolog.Logger) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{client: client, channel: channel, logger: logger}
}

// Publish serializes the event and broadcasts it.
func (p *RedisPublisher) Publish(ctx context.Context, event *domain.WebhookEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook event: %w", err)
	}

	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish webhook event to redis: %w", err)
	}

	p.logger.Debug().
		Str("channel", p.channel).
		Str("platform", string(event.Platform)).
		Str("kind", string(event.Kind)).
		Msg("published webhook event to redis")
	return nil
}
