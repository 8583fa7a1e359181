// Package cache holds result cache backends other than the libsql store.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tutorlink/tutorlink/internal/core"
	"github.com/tutorlink/tutorlink/internal/core/normalize"
)

// DefaultPrefix namespaces result keys.
const DefaultPrefix = "tutorlink:result:"

// RedisConfig describes the redis connection.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Prefix   string
}

// client is the subset of *redis.Client the cache uses.
type client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// Redis caches normalized payloads as JSON strings with a native TTL.
type Redis struct {
	client client
	prefix string
}

// NewRedis connects and pings the server.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	if cfg.Address == "" {
		return nil, errors.New("redis address is required")
	}
	c := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return newRedis(c, cfg.Prefix), nil
}

func newRedis(c client, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Redis{client: c, prefix: prefix}
}

// Backend names the cache in metrics.
func (r *Redis) Backend() string { return "redis" }

// Key returns the redis key for env.
func (r *Redis) Key(env core.Envelope) string {
	return r.prefix + string(env.Shape) + ":" + core.EnvelopeKey(env)
}

// Lookup returns the cached payload for env, if any.
func (r *Redis) Lookup(ctx context.Context, env core.Envelope) (core.Payload, bool, error) {
	value, err := r.client.Get(ctx, r.Key(env)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	payload, err := core.DecodePayload(env.Shape, []byte(value))
	if err != nil {
		return nil, false, fmt.Errorf("decode cached %s: %w", env.Shape, err)
	}
	return payload, true, nil
}

// Store writes payload with ttl. A non-positive ttl stores nothing.
func (r *Redis) Store(ctx context.Context, env core.Envelope, payload core.Payload, ttl time.Duration) error {
	if ttl <= 0 || payload == nil {
		return nil
	}
	encoded, err := normalize.Canonical(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", payload.Shape(), err)
	}
	if err := r.client.Set(ctx, r.Key(env), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}
