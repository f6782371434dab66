package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/justestif/daily-song/internal/shared"
)

const redisKeyPrefix = "session:"

// RedisBackend stores each session as a Redis hash with a sliding TTL.
type RedisBackend struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisBackend wraps an existing client.
func NewRedisBackend(client *redis.Client, ttl time.Duration) *RedisBackend {
	return &RedisBackend{client: client, ttl: ttl}
}

func redisKey(sessionID string) string {
	return redisKeyPrefix + sessionID
}

// Get reads one hash field.
func (b *RedisBackend) Get(ctx context.Context, sessionID, key string) ([]byte, error) {
	value, err := b.client.HGet(ctx, redisKey(sessionID), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading session: %w", shared.ErrStorage, err)
	}
	return value, nil
}

// Set writes one hash field and extends the session TTL.
func (b *RedisBackend) Set(ctx context.Context, sessionID, key string, value []byte) error {
	k := redisKey(sessionID)

	pipe := b.client.TxPipeline()
	pipe.HSet(ctx, k, key, value)
	if b.ttl > 0 {
		pipe.Expire(ctx, k, b.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: writing session: %w", shared.ErrStorage, err)
	}
	return nil
}

// Delete removes the session hash.
func (b *RedisBackend) Delete(ctx context.Context, sessionID string) error {
	if err := b.client.Del(ctx, redisKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: deleting session: %w", shared.ErrStorage, err)
	}
	return nil
}
