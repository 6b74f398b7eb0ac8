package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodykit/keystone/ports"
)

// RedisStore is a Redis implementation of the Store interface.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(client *redis.Client) ports.Store {
	return &RedisStore{
		client: client,
		prefix: "keystone:consumed:",
	}
}

// MarkConsumed records the identifier in Redis with an expiry.
func (s *RedisStore) MarkConsumed(ctx context.Context, id string, ttl time.Duration) error {
	key := s.prefix + id

	if err := s.client.Set(ctx, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to mark consumed: %w", err)
	}
	return nil
}

// IsConsumed checks whether the identifier is marked consumed in Redis.
func (s *RedisStore) IsConsumed(ctx context.Context, id string) (bool, error) {
	key := s.prefix + id

	val, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check consumption: %w", err)
	}
	return val > 0, nil
}
