package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SetGet(t *testing.T) {
	ctx := context.Background()
	c := NewCache(time.Minute, time.Minute)

	_, found, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "leaderboard:all", []byte(`[1]`), 0))
	data, found, err := c.Get(ctx, "leaderboard:all")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte(`[1]`), data)
}

func TestCache_Expiration(t *testing.T) {
	ctx := context.Background()
	c := NewCache(time.Minute, time.Minute)

	require.NoError(t, c.Set(ctx, "short", []byte("x"), 10*time.Millisecond))
	time.Sleep(25 * time.Millisecond)

	_, found, err := c.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCache_DeletePrefix(t *testing.T) {
	ctx := context.Background()
	c := NewCache(time.Minute, time.Minute)

	require.NoError(t, c.Set(ctx, "leaderboard:a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "leaderboard:b", []byte("2"), 0))
	require.NoError(t, c.Set(ctx, "categories", []byte("3"), 0))

	require.NoError(t, c.DeletePrefix(ctx, "leaderboard:"))

	size, err := c.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, size)

	_, found, _ := c.Get(ctx, "categories")
	assert.True(t, found)
}

func TestCache_DeleteAndClear(t *testing.T) {
	ctx := context.Background()
	c := NewCache(time.Minute, time.Minute)

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))

	c.Delete("a")
	_, found, _ := c.Get(ctx, "a")
	assert.False(t, found)

	c.Clear()
	size, _ := c.Size(ctx)
	assert.Zero(t, size)
	assert.Equal(t, time.Minute, c.TTL())
}
