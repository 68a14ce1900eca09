package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pantrypilot/web/test/testutils"
)

func TestRedisStore(t *testing.T) {
	client := testutils.StartRedis(t)
	ctx := context.Background()
	store := NewRedisStore(client, "test")

	require.NoError(t, store.Set(ctx, "recipes/search/a/0", []byte("page0"), time.Minute))
	require.NoError(t, store.Set(ctx, "recipes/search/a/12", []byte("page1"), time.Minute))
	require.NoError(t, store.Set(ctx, "saved-recipes", []byte("saved"), time.Minute))

	data, ok, err := store.Get(ctx, "recipes/search/a/0")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "page0", string(data))

	n, err := store.DeletePrefix(ctx, "recipes/search/")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, ok, err = store.Get(ctx, "recipes/search/a/12")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = store.Get(ctx, "saved-recipes")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Delete(ctx, "saved-recipes"))
	_, ok, _ = store.Get(ctx, "saved-recipes")
	assert.False(t, ok)
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, `a\*b\?c\[d\]`, escapeGlob("a*b?c[d]"))
	assert.Equal(t, "plain/key", escapeGlob("plain/key"))
}
