package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Steel-tech/fabtrack/pkg/models"
)

// DefaultChannel is the Redis channel workflow events are published on.
const DefaultChannel = "fabtrack:events"

// Logger is the minimal logging surface the publisher needs.
type Logger interface {
	Errorf(format string, args ...interface{})
}

// RedisPublisher fans workflow events out to other processes over Redis
// pub/sub. Publishing is best effort: a failed publish is logged, never
// surfaced to the engine, and never blocks a commit.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	logger  Logger
}

// NewRedisPublisher connects to Redis and returns a publisher on channel.
// An empty channel uses DefaultChannel.
func NewRedisPublisher(addr, channel string, logger Logger) (*RedisPublisher, error) {
	if channel == "" {
		channel = DefaultChannel
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &RedisPublisher{client: client, channel: channel, logger: logger}, nil
}

// Publish serializes the event as JSON and publishes it.
func (p *RedisPublisher) Publish(event models.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Errorf("Failed to marshal event %s: %v", event.Kind, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		p.logger.Errorf("Failed to publish event %s: %v", event.Kind, err)
	}
}

// Close releases the Redis connection.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
