package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/translation-hub/hub-auth/internal/core/ports"
)

// Storage implements ports.SessionStorage on Redis strings. With a positive
// TTL every write refreshes the expiry of the keys it touches, so abandoned
// sessions age out.
type Storage struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStorage(client *redis.Client, ttl time.Duration) *Storage {
	return &Storage{client: client, ttl: ttl}
}

func (s *Storage) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, true, nil
}

// Apply runs the batch in one MULTI/EXEC transaction. Every written key gets
// the same TTL.
func (s *Storage) Apply(ctx context.Context, b ports.Batch) error {
	if len(b.Set) == 0 && len(b.Delete) == 0 {
		return nil
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range b.Set {
			pipe.Set(ctx, k, v, s.ttl)
		}
		if len(b.Delete) > 0 {
			pipe.Del(ctx, b.Delete...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis apply: %w", err)
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
