package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T, ttl time.Duration) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return NewRedisCache(client, ttl), mr
}

func TestGet_Hit(t *testing.T) {
	c, mr := setupTestRedis(t, time.Hour)
	require.NoError(t, mr.Set(cacheKey("s1"), `[{"id":"a"}]`))

	got, err := c.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"a"}]`, string(got))
}

func TestGet_Miss(t *testing.T) {
	c, _ := setupTestRedis(t, time.Hour)

	got, err := c.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, got)
}

func TestGet_ConnectionError(t *testing.T) {
	c, mr := setupTestRedis(t, time.Hour)
	mr.Close()

	_, err := c.Get(context.Background(), "s1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
	assert.ErrorContains(t, err, "redis get failed")
}

func TestSet_StoresPayloadWithJitteredTTL(t *testing.T) {
	c, mr := setupTestRedis(t, 30*time.Minute)

	require.NoError(t, c.Set(context.Background(), "s1", []byte(`[]`)))

	stored, err := mr.Get(cacheKey("s1"))
	require.NoError(t, err)
	assert.Equal(t, `[]`, stored)

	ttl := mr.TTL(cacheKey("s1"))
	assert.GreaterOrEqual(t, ttl, 30*time.Minute)
	assert.Less(t, ttl, 40*time.Minute)
}

func TestSet_ZeroTTLNeverExpires(t *testing.T) {
	c, mr := setupTestRedis(t, 0)

	require.NoError(t, c.Set(context.Background(), "s1", []byte(`[]`)))
	assert.Equal(t, time.Duration(0), mr.TTL(cacheKey("s1")))
}

func TestAdd_KeepsExistingEntry(t *testing.T) {
	c, mr := setupTestRedis(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, c.Add(ctx, "s1", []byte(`[{"id":"old"}]`)))
	stored, err := mr.Get(cacheKey("s1"))
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"old"}]`, stored)
	assert.Greater(t, mr.TTL(cacheKey("s1")), time.Duration(0))

	require.NoError(t, c.Set(ctx, "s1", []byte(`[{"id":"new"}]`)))
	require.NoError(t, c.Add(ctx, "s1", []byte(`[{"id":"old"}]`)))

	stored, err = mr.Get(cacheKey("s1"))
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"new"}]`, stored)
}

func TestDelete(t *testing.T) {
	c, mr := setupTestRedis(t, time.Hour)
	require.NoError(t, mr.Set(cacheKey("s1"), `[]`))

	require.NoError(t, c.Delete(context.Background(), "s1"))
	assert.False(t, mr.Exists(cacheKey("s1")))

	// deleting a missing key is not an error
	assert.NoError(t, c.Delete(context.Background(), "s1"))
}

func TestCacheKey_Format(t *testing.T) {
	assert.Equal(t, "storefront:cart:abc", cacheKey("abc"))
}
