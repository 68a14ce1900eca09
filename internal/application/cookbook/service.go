// Package cookbook manages a user's saved recipes
package cookbook

import (
	"context"

	"go.uber.org/zap"

	"github.com/pantrypilot/web/internal/domain/notice"
	"github.com/pantrypilot/web/internal/domain/recipe"
	"github.com/pantrypilot/web/internal/infrastructure/cache"
	"github.com/pantrypilot/web/internal/infrastructure/monitoring"
	"github.com/pantrypilot/web/internal/ports/outbound"
	apperrors "github.com/pantrypilot/web/pkg/errors"
)

// SavedRecipesKey is the query key of the saved recipe list
const SavedRecipesKey = "saved-recipes"

// Key returns the saved list key of one session
func Key(scope string) string {
	return cache.Key("session", scope, SavedRecipesKey)
}

// ToggleResult is the outcome of a save or unsave
type ToggleResult struct {
	Saved  bool
	Notice notice.Notice
}

// Service saves and unsaves recipes
type Service struct {
	api     outbound.CookbookAPI
	queries *cache.QueryClient
	metrics *monitoring.MetricsCollector
	logger  *zap.Logger
}

// NewService creates a cookbook service. metrics may be nil.
func NewService(api outbound.CookbookAPI, queries *cache.QueryClient, metrics *monitoring.MetricsCollector, logger *zap.Logger) *Service {
	return &Service{
		api:     api,
		queries: queries,
		metrics: metrics,
		logger:  logger.Named("cookbook"),
	}
}

// Toggle saves the recipe when isSaved is false and removes it otherwise.
// The saved list of scope is invalidated after every successful toggle.
func (s *Service) Toggle(ctx context.Context, scope, token, recipeID string, isSaved bool) (*ToggleResult, error) {
	action := "save"
	var err error
	if isSaved {
		action = "unsave"
		err = s.api.UnsaveRecipe(ctx, token, recipeID)
	} else {
		err = s.api.SaveRecipe(ctx, token, recipeID)
	}
	if err != nil {
		s.logger.Warn("Cookbook toggle failed",
			zap.String("recipe_id", recipeID),
			zap.String("action", action),
			zap.Error(err),
		)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.CookbookToggle(action)
	}
	if err := s.queries.Invalidate(ctx, Key(scope)); err != nil {
		s.logger.Warn("Failed to invalidate saved recipes", zap.Error(err))
	}

	if isSaved {
		return &ToggleResult{Saved: false, Notice: notice.New(notice.Success, "Removed from Cookbook", "")}, nil
	}
	return &ToggleResult{Saved: true, Notice: notice.New(notice.Success, "Added to Cookbook", "")}, nil
}

// FailureNotice returns the notice shown when Toggle fails
func FailureNotice(err error) notice.Notice {
	return notice.New(notice.Error, "Action failed", apperrors.UserMessage(err, "Something went wrong"))
}

// List returns the saved recipes of scope through the query cache
func (s *Service) List(ctx context.Context, scope, token string) ([]recipe.Recipe, error) {
	return cache.Query(ctx, s.queries, Key(scope), func(ctx context.Context) ([]recipe.Recipe, error) {
		return s.api.GetSavedRecipes(ctx, token)
	})
}

// SavedIDs returns the ids of the saved recipes. Anonymous visitors have none.
func (s *Service) SavedIDs(ctx context.Context, scope, token string) (map[string]bool, error) {
	ids := make(map[string]bool)
	if token == "" {
		return ids, nil
	}
	saved, err := s.List(ctx, scope, token)
	if err != nil {
		return ids, err
	}
	for _, r := range saved {
		ids[r.ID] = true
	}
	return ids, nil
}
