package search

import (
	"context"
	"net/url"
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
	return NewService(client, queries, config.SearchConfig{}, zap.NewNop())
}

func TestPage_InfiniteScrollProgression(t *testing.T) {
	api := testutils.NewFakeAPI(t, 25)
	svc := newService(t, api)
	ctx := context.Background()

	p := Standard.Params()
	var offsets []int
	seen := map[string]bool{}
	for {
		page, err := svc.Page(ctx, "", p)
		require.NoError(t, err)
		offsets = append(offsets, page.Results.Offset)
		for _, r := range page.Results.Data {
			assert.False(t, seen[r.ID], "recipe %s repeated", r.ID)
			seen[r.ID] = true
		}
		if !page.HasNext {
			break
		}
		p.Offset = page.Next
	}

	assert.Equal(t, []int{0, 12, 24}, offsets)
	assert.Len(t, seen, 25)
}

func TestPage_NeverSendsAnySentinel(t *testing.T) {
	api := testutils.NewFakeAPI(t, 3)
	svc := newService(t, api)

	_, err := svc.Page(context.Background(), "", Standard.Params())
	require.NoError(t, err)

	call, ok := api.LastCall("GET /recipes/search")
	require.True(t, ok)
	for key, values := range call.Query {
		for _, v := range values {
			assert.NotEqual(t, recipe.Any, v, key)
		}
	}
}

func TestPage_CachedByFiltersAndOffset(t *testing.T) {
	api := testutils.NewFakeAPI(t, 25)
	svc := newService(t, api)
	ctx := context.Background()

	p := Standard.Params()
	_, err := svc.Page(ctx, "", p)
	require.NoError(t, err)
	_, err = svc.Page(ctx, "", p)
	require.NoError(t, err)
	assert.Equal(t, 1, api.CallCount("GET /recipes/search"))

	p.Offset = 12
	_, err = svc.Page(ctx, "", p)
	require.NoError(t, err)
	assert.Equal(t, 2, api.CallCount("GET /recipes/search"))

	p.Offset = 0
	p.Difficulty = "easy"
	_, err = svc.Page(ctx, "", p)
	require.NoError(t, err)
	assert.Equal(t, 3, api.CallCount("GET /recipes/search"))
}

func TestPage_Empty(t *testing.T) {
	api := testutils.NewFakeAPI(t, 5)
	svc := newService(t, api)

	p := Standard.Params()
	p.Q = "no such dish anywhere"
	page, err := svc.Page(context.Background(), "", p)
	require.NoError(t, err)
	assert.True(t, page.Empty())
	assert.False(t, page.HasNext)
}

func TestDefaults_Parse(t *testing.T) {
	p := Standard.Parse(url.Values{})
	assert.Equal(t, Standard.Params(), p)

	p = Standard.Parse(url.Values{
		"q":          {" curry "},
		"difficulty": {"HARD"},
		"cuisine":    {"INDIAN"},
		"maxTime":    {"45"},
		"tags":       {"spicy, ,vegan"},
		"sortBy":     {"rating"},
		"order":      {"asc"},
		"offset":     {"24"},
	})
	assert.Equal(t, "curry", p.Q)
	assert.Equal(t, "hard", p.Difficulty)
	assert.Equal(t, "INDIAN", p.Cuisine)
	assert.Equal(t, 45, p.MaxTime)
	assert.Equal(t, "spicy,vegan", p.Tags)
	assert.Equal(t, recipe.SortRating, p.SortBy)
	assert.Equal(t, recipe.OrderAsc, p.Order)
	assert.Equal(t, 24, p.Offset)

	p = Standard.Parse(url.Values{"difficulty": {"extreme"}, "sortBy": {"title"}, "maxTime": {"-3"}})
	assert.Equal(t, recipe.Any, p.Difficulty)
	assert.Equal(t, recipe.SortCreatedAt, p.SortBy)
	assert.Equal(t, Standard.MaxTime, p.MaxTime)
}

func TestDefaults_Clear(t *testing.T) {
	p := Standard.Params()
	p.Q = "soup"
	p.Difficulty = "easy"
	p.Cuisine = "JAPANESE"
	p.MaxTime = 30
	p.Tags = "quick"
	p.SortBy = recipe.SortRating

	cleared := Standard.Clear(p)
	assert.Equal(t, "soup", cleared.Q)
	assert.Equal(t, recipe.SortRating, cleared.SortBy)
	assert.Equal(t, recipe.Any, cleared.Difficulty)
	assert.Equal(t, recipe.Any, cleared.Cuisine)
	assert.Equal(t, Standard.MaxTime, cleared.MaxTime)
	assert.Empty(t, cleared.Tags)
}

func TestToggleQuickCuisine(t *testing.T) {
	assert.Equal(t, "ITALIAN", ToggleQuickCuisine(recipe.Any, "ITALIAN"))
	assert.Equal(t, recipe.Any, ToggleQuickCuisine("ITALIAN", "ITALIAN"))
	assert.Equal(t, "MEXICAN", ToggleQuickCuisine("ITALIAN", "MEXICAN"))
}

func TestPageKey(t *testing.T) {
	p := Standard.Params()
	a := PageKey(p, 0)
	assert.Contains(t, a, "recipes/search/")
	assert.NotEqual(t, a, PageKey(p, 12))
	p.Limit = 50
	assert.Equal(t, a, PageKey(p, 0), "paging size is not part of the filters")
}

func TestPage_ConfiguredPageSize(t *testing.T) {
	api := testutils.NewFakeAPI(t, 12)
	client := apiclient.New(&config.Config{API: config.APIConfig{BaseURL: api.URL()}}, zap.NewNop(), nil)
	queries := cache.NewQueryClient(cache.NewLocalCache(100), time.Minute, zap.NewNop(), nil)
	svc := NewService(client, queries, config.SearchConfig{PageSize: 5, DefaultMaxTime: 240}, zap.NewNop())
	ctx := context.Background()

	p := svc.Defaults().Parse(url.Values{})
	assert.Equal(t, 5, p.Limit)
	assert.Equal(t, 240, p.MaxTime)
	assert.Equal(t, 240, svc.Defaults().Clear(recipe.SearchParams{MaxTime: 15}).MaxTime)

	page, err := svc.Page(ctx, "", p)
	require.NoError(t, err)
	assert.Len(t, page.Results.Data, 5)
	assert.Equal(t, 5, page.Next)

	p.Limit = 0
	p.Offset = 10
	page, err = svc.Page(ctx, "", p)
	require.NoError(t, err)
	assert.Len(t, page.Results.Data, 2)
	assert.False(t, page.HasNext)
}

func TestNewDefaults_KeepsStandardForUnsetKeys(t *testing.T) {
	assert.Equal(t, Standard, NewDefaults(config.SearchConfig{}))
	assert.Equal(t, Defaults{PageSize: 24, MaxTime: 180}, NewDefaults(config.SearchConfig{PageSize: 24}))
}

func TestLatest_NewestFirstAndCached(t *testing.T) {
	api := testutils.NewFakeAPI(t, 10)
	svc := newService(t, api)
	ctx := context.Background()

	latest, err := svc.Latest(ctx, "", 4)
	require.NoError(t, err)
	require.Len(t, latest, 4)
	for i := 1; i < len(latest); i++ {
		assert.False(t, latest[i].CreatedAt.After(latest[i-1].CreatedAt))
	}

	_, err = svc.Latest(ctx, "", 4)
	require.NoError(t, err)
	assert.Equal(t, 1, api.CallCount("GET /recipes"))
}
