// Package search runs the paginated catalog search behind infinite scroll
package search

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pantrypilot/web/internal/domain/recipe"
	"github.com/pantrypilot/web/internal/infrastructure/cache"
	"github.com/pantrypilot/web/internal/infrastructure/config"
	"github.com/pantrypilot/web/internal/ports/outbound"
)

// TimeOptions are the selectable maximum cooking times in minutes
var TimeOptions = []int{15, 30, 45, 60, 90, 120, 180}

// QuickCuisines are offered as one-click chips
var QuickCuisines = []string{"ITALIAN", "JAPANESE", "MEXICAN", "INDIAN"}

// SortOption is one entry of the sort select
type SortOption struct {
	Key   recipe.SortKey
	Label string
}

// SortOptions lists the sort select entries
var SortOptions = []SortOption{
	{Key: recipe.SortCreatedAt, Label: "Newest"},
	{Key: recipe.SortRating, Label: "Top Rated"},
	{Key: recipe.SortEstimatedTime, Label: "Fastest"},
}

// Defaults are the page size and time filter a fresh search starts with
type Defaults struct {
	PageSize int
	MaxTime  int
}

// Standard is used for any value the configuration leaves unset
var Standard = Defaults{PageSize: 12, MaxTime: 180}

// NewDefaults reads the search section of the configuration
func NewDefaults(cfg config.SearchConfig) Defaults {
	d := Standard
	if cfg.PageSize > 0 {
		d.PageSize = cfg.PageSize
	}
	if cfg.DefaultMaxTime > 0 {
		d.MaxTime = cfg.DefaultMaxTime
	}
	return d
}

// Params returns the initial filters
func (d Defaults) Params() recipe.SearchParams {
	return recipe.SearchParams{
		Difficulty: recipe.Any,
		Cuisine:    recipe.Any,
		MaxTime:    d.MaxTime,
		SortBy:     recipe.SortCreatedAt,
		Order:      recipe.OrderDesc,
		Limit:      d.PageSize,
	}
}

// Clear resets difficulty, cuisine, time and tags. The query text and sort
// are kept.
func (d Defaults) Clear(p recipe.SearchParams) recipe.SearchParams {
	p.Difficulty = recipe.Any
	p.Cuisine = recipe.Any
	p.MaxTime = d.MaxTime
	p.Tags = ""
	return p
}

// ToggleQuickCuisine switches between c and Any
func ToggleQuickCuisine(current, c string) string {
	if current == c {
		return recipe.Any
	}
	return c
}

// Parse reads filters from a query string, falling back to d for missing
// or invalid values
func (d Defaults) Parse(q url.Values) recipe.SearchParams {
	p := d.Params()
	p.Q = strings.TrimSpace(q.Get("q"))
	if d, err := recipe.ParseDifficulty(q.Get("difficulty")); err == nil && d != "" {
		p.Difficulty = string(d)
	}
	if c := strings.TrimSpace(q.Get("cuisine")); c != "" {
		p.Cuisine = c
	}
	if n, err := strconv.Atoi(q.Get("maxTime")); err == nil && n > 0 {
		p.MaxTime = n
	}
	p.Tags = strings.Join(splitTags(q.Get("tags")), ",")
	switch k := recipe.SortKey(q.Get("sortBy")); k {
	case recipe.SortCreatedAt, recipe.SortRating, recipe.SortEstimatedTime:
		p.SortBy = k
	}
	switch o := recipe.SortOrder(q.Get("order")); o {
	case recipe.OrderAsc, recipe.OrderDesc:
		p.Order = o
	}
	if n, err := strconv.Atoi(q.Get("offset")); err == nil && n > 0 {
		p.Offset = n
	}
	return p
}

func splitTags(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// FilterValues returns the filters as a query string without paging, for
// links that keep the current filters
func FilterValues(p recipe.SearchParams) url.Values {
	v := url.Values{}
	v.Set("q", p.Q)
	v.Set("difficulty", p.Difficulty)
	v.Set("cuisine", p.Cuisine)
	v.Set("maxTime", strconv.Itoa(p.MaxTime))
	v.Set("tags", p.Tags)
	v.Set("sortBy", string(p.SortBy))
	v.Set("order", string(p.Order))
	return v
}

// PageKey returns the cache key of one page:
// recipes/search/<canonical filters>/<offset>
func PageKey(p recipe.SearchParams, offset int) string {
	return cache.Key("recipes", "search", FilterValues(p).Encode(), strconv.Itoa(offset))
}

// Page is one loaded page of results
type Page struct {
	Params  recipe.SearchParams
	Results recipe.SearchResponse
	Next    int
	HasNext bool
}

// Empty reports whether the first page found nothing
func (p Page) Empty() bool {
	return p.Results.Offset == 0 && len(p.Results.Data) == 0
}

// Service loads search pages through the query cache
type Service struct {
	api      outbound.RecipeAPI
	queries  *cache.QueryClient
	defaults Defaults
	logger   *zap.Logger
}

// NewService creates a search service
func NewService(api outbound.RecipeAPI, queries *cache.QueryClient, cfg config.SearchConfig, logger *zap.Logger) *Service {
	return &Service{
		api:      api,
		queries:  queries,
		defaults: NewDefaults(cfg),
		logger:   logger.Named("search"),
	}
}

// Defaults returns the configured search defaults
func (s *Service) Defaults() Defaults {
	return s.defaults
}

// Page loads the page of p starting at p.Offset
func (s *Service) Page(ctx context.Context, token string, p recipe.SearchParams) (*Page, error) {
	if p.Limit <= 0 {
		p.Limit = s.defaults.PageSize
	}
	resp, err := cache.Query(ctx, s.queries, PageKey(p, p.Offset), func(ctx context.Context) (recipe.SearchResponse, error) {
		s.logger.Debug("Fetching search page",
			zap.String("q", p.Q),
			zap.Int("offset", p.Offset),
		)
		r, err := s.api.SearchRecipes(ctx, token, p)
		if err != nil {
			return recipe.SearchResponse{}, err
		}
		return *r, nil
	})
	if err != nil {
		return nil, err
	}

	page := &Page{Params: p, Results: resp}
	page.Next, page.HasNext = recipe.NextOffset(resp)
	return page, nil
}

// Cuisines lists the cuisine values through the query cache
func (s *Service) Cuisines(ctx context.Context, token string) ([]string, error) {
	return cache.Query(ctx, s.queries, "cuisines", func(ctx context.Context) ([]string, error) {
		return s.api.GetCuisines(ctx, token)
	})
}

// Latest returns up to n catalog recipes, newest first. The full list is
// cached under "recipes".
func (s *Service) Latest(ctx context.Context, token string, n int) ([]recipe.Recipe, error) {
	all, err := cache.Query(ctx, s.queries, "recipes", func(ctx context.Context) ([]recipe.Recipe, error) {
		return s.api.ListRecipes(ctx, token)
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if len(all) > n {
		all = all[:n]
	}
	return all, nil
}
