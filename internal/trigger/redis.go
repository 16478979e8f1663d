package trigger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379").
	URL string
	// Key is the list that receives one entry per identifier.
	Key string
	// Channel receives a JSON envelope per event. Defaults to Key + ":events".
	Channel string
	// ConnectTimeout is the maximum time to wait for connection establishment.
	ConnectTimeout time.Duration
}

// RedisPublisher appends identifiers to a Redis list, usable as an audit
// stream or a work queue, and announces every event on a pub/sub channel.
type RedisPublisher struct {
	client  *redis.Client
	key     string
	channel string
}

var _ Publisher = (*RedisPublisher)(nil)

// NewRedisPublisher connects to Redis and verifies the connection.
func NewRedisPublisher(opts RedisOptions) (*RedisPublisher, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.Key == "" {
		opts.Key = "trihash:identifiers"
	}
	if opts.Channel == "" {
		opts.Channel = opts.Key + ":events"
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("trigger: failed to parse Redis URL: %w", err)
	}
	redisOpts.DialTimeout = opts.ConnectTimeout

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("trigger: failed to connect to Redis: %w", err)
	}

	return &RedisPublisher{client: client, key: opts.Key, channel: opts.Channel}, nil
}

// Publish pushes identifier lines onto the list and publishes the event
// envelope, both in one pipeline.
func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	envelope, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("trigger: marshal event: %w", err)
	}

	pipe := p.client.TxPipeline()
	if ev.Type == TypeIdentifiers {
		if ids := strings.Fields(ev.Payload); len(ids) > 0 {
			values := make([]any, len(ids))
			for i, id := range ids {
				values[i] = id
			}
			pipe.RPush(ctx, p.key, values...)
		}
	}
	pipe.Publish(ctx, p.channel, envelope)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("trigger: publish %s: %w", ev.Type, err)
	}
	return nil
}

// Close closes the Redis connection.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
