package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalCache_SetGet(t *testing.T) {
	ctx := context.Background()
	lc := NewLocalCache(10)

	require.NoError(t, lc.Set(ctx, "a", []byte("1"), time.Minute))

	data, ok, err := lc.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), data)

	_, ok, _ = lc.Get(ctx, "missing")
	assert.False(t, ok)
}

func TestLocalCache_Expiry(t *testing.T) {
	ctx := context.Background()
	lc := NewLocalCache(10)

	require.NoError(t, lc.Set(ctx, "short", []byte("x"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, ok, _ := lc.Get(ctx, "short")
	assert.False(t, ok)
	assert.Equal(t, 0, lc.Size())
}

func TestLocalCache_LRUEviction(t *testing.T) {
	ctx := context.Background()
	lc := NewLocalCache(2)

	require.NoError(t, lc.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, lc.Set(ctx, "b", []byte("2"), time.Minute))
	_, _, _ = lc.Get(ctx, "a")
	require.NoError(t, lc.Set(ctx, "c", []byte("3"), time.Minute))

	_, okA, _ := lc.Get(ctx, "a")
	_, okB, _ := lc.Get(ctx, "b")
	assert.True(t, okA)
	assert.False(t, okB, "least recently used entry should be evicted")
	assert.Equal(t, 2, lc.Size())
}

func TestLocalCache_DeletePrefix(t *testing.T) {
	ctx := context.Background()
	lc := NewLocalCache(10)
	for _, k := range []string{"recipes/search/a/0", "recipes/search/a/12", "recipes/x", "saved-recipes"} {
		require.NoError(t, lc.Set(ctx, k, []byte("v"), time.Minute))
	}

	n, err := lc.DeletePrefix(ctx, "recipes/search/")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, lc.Size())
}

func TestLocalCache_CleanupExpired(t *testing.T) {
	ctx := context.Background()
	lc := NewLocalCache(10)
	require.NoError(t, lc.Set(ctx, "old", []byte("x"), time.Millisecond))
	require.NoError(t, lc.Set(ctx, "new", []byte("y"), time.Minute))
	time.Sleep(5 * time.Millisecond)

	assert.Equal(t, 1, lc.CleanupExpired())
	assert.Equal(t, 1, lc.Size())

	lc.Clear()
	assert.Equal(t, 0, lc.Size())
}
