package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis is a Store backed by a shared Redis instance, for consoles running
// more than one replica behind a load balancer.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to Redis at addr and returns a Store with the given key
// prefix. The client is instrumented for tracing.
func NewRedis(addr, prefix string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("failed to instrument redis tracing: %w", err)
	}

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	zap.L().Info("Connected to Redis", zap.String("addr", addr))
	return &Redis{client: client, prefix: prefix}, nil
}

// Get returns the payload stored under key, if present. Expiry is handled
// by Redis itself via the TTL applied on Set.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	payload, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

// Set stores payload under key with ttl.
func (r *Redis) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	return r.client.Set(ctx, r.prefix+key, payload, ttl).Err()
}

// Close shuts down the Redis client.
func (r *Redis) Close() {
	if r != nil && r.client != nil {
		if err := r.client.Close(); err != nil {
			zap.L().Error("redis close", zap.Error(err))
		}
	}
}
