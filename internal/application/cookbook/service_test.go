package cookbook

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pantrypilot/web/internal/domain/recipe"
	"github.com/pantrypilot/web/internal/infrastructure/apiclient"
	"github.com/pantrypilot/web/internal/infrastructure/cache"
	"github.com/pantrypilot/web/internal/infrastructure/config"
	"github.com/pantrypilot/web/test/testutils"
)

func newService(t *testing.T, api *testutils.FakeAPI) *Service {
	t.Helper()
	client := apiclient.New(&config.Config{API: config.APIConfig{BaseURL: api.URL()}}, zap.NewNop(), nil)
	queries := cache.NewQueryClient(cache.NewLocalCache(100), time.Minute, zap.NewNop(), nil)
	return NewService(client, queries, nil, zap.NewNop())
}

func TestToggle_TwiceRestoresStateAndRefetches(t *testing.T) {
	api := testutils.NewFakeAPI(t, 4)
	svc := newService(t, api)
	ctx := context.Background()
	id := api.Recipes()[2].ID

	ids, err := svc.SavedIDs(ctx, "s1", testutils.FakeToken)
	require.NoError(t, err)
	assert.False(t, ids[id])
	require.Equal(t, 1, api.CallCount("GET /recipes/saved"))

	res, err := svc.Toggle(ctx, "s1", testutils.FakeToken, id, ids[id])
	require.NoError(t, err)
	assert.True(t, res.Saved)
	assert.Equal(t, "Added to Cookbook", res.Notice.Title)

	ids, err = svc.SavedIDs(ctx, "s1", testutils.FakeToken)
	require.NoError(t, err)
	assert.True(t, ids[id])
	assert.Equal(t, 2, api.CallCount("GET /recipes/saved"), "list refetched after toggle")

	res, err = svc.Toggle(ctx, "s1", testutils.FakeToken, id, ids[id])
	require.NoError(t, err)
	assert.False(t, res.Saved)
	assert.Equal(t, "Removed from Cookbook", res.Notice.Title)

	ids, err = svc.SavedIDs(ctx, "s1", testutils.FakeToken)
	require.NoError(t, err)
	assert.False(t, ids[id])
	assert.Equal(t, 3, api.CallCount("GET /recipes/saved"))
}

func TestList_IsCachedPerScope(t *testing.T) {
	api := testutils.NewFakeAPI(t, 2)
	svc := newService(t, api)
	ctx := context.Background()

	_, err := svc.List(ctx, "s1", testutils.FakeToken)
	require.NoError(t, err)
	_, err = svc.List(ctx, "s1", testutils.FakeToken)
	require.NoError(t, err)
	assert.Equal(t, 1, api.CallCount("GET /recipes/saved"))

	_, err = svc.List(ctx, "s2", testutils.FakeToken)
	require.NoError(t, err)
	assert.Equal(t, 2, api.CallCount("GET /recipes/saved"))
}

func TestSavedIDs_Anonymous(t *testing.T) {
	api := testutils.NewFakeAPI(t, 2)
	svc := newService(t, api)

	ids, err := svc.SavedIDs(context.Background(), "s1", "")
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Zero(t, api.CallCount("GET /recipes/saved"))
}

func TestToggle_Failure(t *testing.T) {
	api := testutils.NewFakeAPI(t, 2)
	api.Fail("POST /recipes/save", http.StatusInternalServerError, "write failed")
	svc := newService(t, api)

	_, err := svc.Toggle(context.Background(), "s1", testutils.FakeToken, api.Recipes()[0].ID, false)
	require.Error(t, err)
	n := FailureNotice(err)
	assert.Equal(t, "Action failed", n.Title)
	assert.Equal(t, "write failed", n.Description)
}

// slowSavedAPI holds the first saved-list read until release is closed
type slowSavedAPI struct {
	*apiclient.Client
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (a *slowSavedAPI) GetSavedRecipes(ctx context.Context, token string) ([]recipe.Recipe, error) {
	saved, err := a.Client.GetSavedRecipes(ctx, token)
	first := false
	a.once.Do(func() { first = true })
	if first {
		close(a.started)
		<-a.release
	}
	return saved, err
}

func TestToggle_DuringSlowListRead(t *testing.T) {
	api := testutils.NewFakeAPI(t, 3)
	client := apiclient.New(&config.Config{API: config.APIConfig{BaseURL: api.URL()}}, zap.NewNop(), nil)
	slow := &slowSavedAPI{Client: client, started: make(chan struct{}), release: make(chan struct{})}
	queries := cache.NewQueryClient(cache.NewLocalCache(100), time.Minute, zap.NewNop(), nil)
	svc := NewService(slow, queries, nil, zap.NewNop())
	ctx := context.Background()
	id := api.Recipes()[1].ID

	done := make(chan map[string]bool)
	go func() {
		ids, err := svc.SavedIDs(ctx, "s1", testutils.FakeToken)
		assert.NoError(t, err)
		done <- ids
	}()

	<-slow.started
	res, err := svc.Toggle(ctx, "s1", testutils.FakeToken, id, false)
	require.NoError(t, err)
	assert.True(t, res.Saved)
	close(slow.release)
	assert.False(t, (<-done)[id], "the read that started first sees the old list")

	ids, err := svc.SavedIDs(ctx, "s1", testutils.FakeToken)
	require.NoError(t, err)
	assert.True(t, ids[id], "stale list was not written back")
	assert.Equal(t, 2, api.CallCount("GET /recipes/saved"))
}
