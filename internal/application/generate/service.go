package generate

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/pantrypilot/web/internal/domain/notice"
	"github.com/pantrypilot/web/internal/domain/recipe"
	"github.com/pantrypilot/web/internal/infrastructure/monitoring"
	"github.com/pantrypilot/web/internal/infrastructure/security"
	"github.com/pantrypilot/web/internal/ports/outbound"
	apperrors "github.com/pantrypilot/web/pkg/errors"
)

// Result is a successful generation
type Result struct {
	Recipes []recipe.Recipe
	Cached  bool
	Notice  *notice.Notice
}

// Service submits generation forms
type Service struct {
	api       outbound.RecipeAPI
	validator *security.Validator
	metrics   *monitoring.MetricsCollector
	logger    *zap.Logger
}

// NewService creates a generation service. metrics may be nil.
func NewService(api outbound.RecipeAPI, validator *security.Validator, metrics *monitoring.MetricsCollector, logger *zap.Logger) *Service {
	return &Service{
		api:       api,
		validator: validator,
		metrics:   metrics,
		logger:    logger.Named("generate"),
	}
}

// Generate submits the form once. A form without ingredients is rejected
// before any API call.
func (s *Service) Generate(ctx context.Context, token string, form Form) (*Result, error) {
	if !form.CanSubmit() {
		return nil, apperrors.NewValidationError(recipe.ErrNoIngredients.Error())
	}

	req := form.Request()
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	s.logger.Info("Generating recipes",
		zap.Int("ingredients", len(req.Ingredients)),
		zap.Int("max_time", req.MaxTime),
		zap.String("difficulty", string(req.Difficulty)),
		zap.String("cuisine", req.Cuisine),
	)

	resp, err := s.api.GenerateRecipes(ctx, token, req)
	if err != nil {
		s.record("error", false)
		s.logger.Warn("Recipe generation failed", zap.Error(err))
		return nil, err
	}
	s.record("ok", resp.Cached)

	result := &Result{Recipes: resp.Recipes, Cached: resp.Cached}
	if resp.Cached {
		n := notice.New(notice.Info, "Loaded from cache", "Found similar recipe request in our database.")
		result.Notice = &n
	}
	return result, nil
}

// ValidateTag checks a tag before it is added to the form
func (s *Service) ValidateTag(tag string) error {
	if err := s.validator.Var(strings.TrimSpace(tag), "tag"); err != nil {
		return apperrors.NewValidationError("Entries must be 1 to 100 characters without markup")
	}
	return nil
}

// FailureNotice returns the notice shown when Generate fails
func FailureNotice(err error) notice.Notice {
	return notice.New(notice.Error, "Generation Failed",
		apperrors.UserMessage(err, "Failed to generate recipes. Please try again."))
}

func (s *Service) record(status string, cached bool) {
	if s.metrics != nil {
		s.metrics.RecipesGenerated(status, cached)
	}
}
