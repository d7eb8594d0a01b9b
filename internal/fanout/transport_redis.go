package fanout

import (
	"context"
	"fmt"
	"time"

	"github.com/frahmantamala/teamspace/internal"
	"github.com/redis/go-redis/v9"
)

const defaultChannelPrefix = "teamspace:org:"

// RedisTransport publishes each envelope on a per-organization channel.
// A publish that reaches no subscriber still counts as delivered.
type RedisTransport struct {
	client *redis.Client
	prefix string
}

func NewRedisTransport(cfg internal.RedisConfig) *RedisTransport {
	prefix := cfg.ChannelPrefix
	if prefix == "" {
		prefix = defaultChannelPrefix
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	return &RedisTransport{client: client, prefix: prefix}
}

func (t *RedisTransport) Channel(orgSlug string) string {
	return t.prefix + orgSlug
}

func (t *RedisTransport) Deliver(ctx context.Context, orgSlug string, payload []byte) error {
	if err := t.client.Publish(ctx, t.Channel(orgSlug), payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (t *RedisTransport) Close() error {
	return t.client.Close()
}
