package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/slot-gate/internal/config"
)

type slotEntry struct {
	Tier        int
	ActiveUsers int
}

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	t.Cleanup(func() { mr.Close() })

	cfg := config.RedisConnection{
		AddressRedis: mr.Addr(),
	}

	cache, err := InitServer(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache, mr
}

func TestSetAndGet(t *testing.T) {
	cache, mr := setupTestCache(t)

	expected := []slotEntry{{Tier: 1, ActiveUsers: 3}, {Tier: 2, ActiveUsers: 0}}
	err := cache.Set("slots:status", expected, time.Minute)
	require.NoError(t, err)
	assert.True(t, mr.Exists("slotgate:slots:status"))

	var actual []slotEntry
	found, err := cache.Get("slots:status", &actual)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, expected, actual)
}

func TestSetExpires(t *testing.T) {
	cache, mr := setupTestCache(t)

	require.NoError(t, cache.Set("slots:status", 1, 10*time.Second))
	mr.FastForward(11 * time.Second)

	var out int
	found, err := cache.Get("slots:status", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetNotFound(t *testing.T) {
	cache, _ := setupTestCache(t)

	var out slotEntry
	found, err := cache.Get("no_such_key", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInvalidate(t *testing.T) {
	cache, _ := setupTestCache(t)

	err := cache.Set("key", "value", time.Minute)
	require.NoError(t, err)

	err = cache.Invalidate("key")
	require.NoError(t, err)

	var out string
	found, err := cache.Get("key", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetInvalidJSON(t *testing.T) {
	cache, _ := setupTestCache(t)

	err := cache.Db.Set(context.Background(), keyPrefix+"bad", []byte("not-json"), time.Minute).Err()
	require.NoError(t, err)

	var out slotEntry
	found, err := cache.Get("bad", &out)
	assert.False(t, found)
	assert.Error(t, err)
}

func TestInitServerInvalidAddr(t *testing.T) {
	cfg := config.RedisConnection{
		AddressRedis: "127.0.0.1:1",
		DialTimeout:  100 * time.Millisecond,
	}

	cache, err := InitServer(context.Background(), cfg)
	assert.Nil(t, cache)
	assert.Error(t, err)
}
