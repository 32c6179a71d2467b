package prefill

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig captures the connection settings for the pre-fill cache backend.
type RedisConfig struct {
	URL string        `env:"REDIS_URL"`
	TTL time.Duration `env:"PREFILL_TTL" envDefault:"30m"`
}

// RedisCache is the redis-backed Cache used when the portal runs with more
// than one API instance. Keys expire server-side after the configured TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a RedisCache from the provided configuration and
// verifies connectivity with a ping.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis url is required")
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	return &RedisCache{client: client, ttl: ttl}, nil
}

func prefillKey(sessionID string) string {
	return "prefill:identity:" + sessionID
}

func (c *RedisCache) Put(ctx context.Context, sessionID string, identity Identity) error {
	payload, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("marshal prefill identity: %w", err)
	}
	return c.client.Set(ctx, prefillKey(sessionID), payload, c.ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, sessionID string) (Identity, bool, error) {
	payload, err := c.client.Get(ctx, prefillKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Identity{}, false, nil
		}
		return Identity{}, false, fmt.Errorf("get prefill identity: %w", err)
	}

	var identity Identity
	if err := json.Unmarshal(payload, &identity); err != nil {
		return Identity{}, false, fmt.Errorf("unmarshal prefill identity: %w", err)
	}
	return identity, true, nil
}

func (c *RedisCache) Clear(ctx context.Context, sessionID string) error {
	return c.client.Del(ctx, prefillKey(sessionID)).Err()
}

// Close releases the underlying redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
