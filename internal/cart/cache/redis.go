package cache

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "storefront:cart:"

type RedisCache struct {
	client    redis.UniversalClient
	baseTTL   time.Duration
	maxJitter time.Duration
}

func NewRedisCache(client redis.UniversalClient, baseTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:    client,
		baseTTL:   baseTTL,
		maxJitter: baseTTL / 3,
	}
}

func (r *RedisCache) Get(ctx context.Context, sessionID string) ([]byte, error) {
	data, err := r.client.Get(ctx, cacheKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return data, nil
}

// Set stores payload with the base TTL plus jitter so entries written
// together do not all expire together.
func (r *RedisCache) Set(ctx context.Context, sessionID string, payload []byte) error {
	if err := r.client.Set(ctx, cacheKey(sessionID), payload, r.ttl()).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Add is SETNX: an entry written by Set is never replaced by a fill that
// read the repository earlier.
func (r *RedisCache) Add(ctx context.Context, sessionID string, payload []byte) error {
	if err := r.client.SetNX(ctx, cacheKey(sessionID), payload, r.ttl()).Err(); err != nil {
		return fmt.Errorf("redis setnx failed: %w", err)
	}
	return nil
}

func (r *RedisCache) ttl() time.Duration {
	ttl := r.baseTTL
	if r.maxJitter > 0 {
		ttl += rand.N(r.maxJitter)
	}
	return ttl
}

func (r *RedisCache) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, cacheKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cacheKey(sessionID string) string {
	return keyPrefix + sessionID
}
