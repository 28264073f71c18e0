package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type table struct {
	Source  string             `json:"source"`
	Entries map[string]float64 `json:"entries"`
}

func newTestRedisCache(t *testing.T, ttl time.Duration) (*RedisCache[table], *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := NewRedisClient(RedisConfig{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, Ping(context.Background(), client))

	return NewRedisCache[table](client, "livingcost:test:", ttl, nil), mr
}

func TestRedisCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestRedisCache(t, time.Hour)

	_, ok := c.Get(ctx, "rpp")
	assert.False(t, ok)

	want := table{Source: "bea", Entries: map[string]float64{"New Jersey": 108.9}}
	c.Set(ctx, "rpp", want)
	assert.True(t, mr.Exists("livingcost:test:rpp"))

	got, ok := c.Get(ctx, "rpp")
	require.True(t, ok)
	assert.Equal(t, want, got)
	assert.Equal(t, -1, c.Size())

	c.Delete(ctx, "rpp")
	_, ok = c.Get(ctx, "rpp")
	assert.False(t, ok)
}

func TestRedisCacheExpires(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestRedisCache(t, time.Minute)

	c.Set(ctx, "rpp", table{Source: "memory"})
	mr.FastForward(2 * time.Minute)

	_, ok := c.Get(ctx, "rpp")
	assert.False(t, ok)
}

func TestRedisCacheUndecodableIsMiss(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestRedisCache(t, time.Minute)

	require.NoError(t, mr.Set("livingcost:test:rpp", "{broken"))
	_, ok := c.Get(ctx, "rpp")
	assert.False(t, ok)
}

func TestRedisCacheUnavailableIsMiss(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestRedisCache(t, time.Minute)
	mr.Close()

	c.Set(ctx, "rpp", table{Source: "memory"})
	_, ok := c.Get(ctx, "rpp")
	assert.False(t, ok)
}
