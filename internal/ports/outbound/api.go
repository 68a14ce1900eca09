// Package outbound defines the interfaces the application uses to reach the
// recipe API. apiclient.Client implements all of them.
package outbound

import (
	"context"

	"github.com/pantrypilot/web/internal/domain/feedback"
	"github.com/pantrypilot/web/internal/domain/recipe"
	"github.com/pantrypilot/web/internal/domain/user"
)

// AuthAPI covers account endpoints
type AuthAPI interface {
	Login(ctx context.Context, req user.LoginRequest) (*user.LoginResponse, error)
	Register(ctx context.Context, req user.RegisterRequest) (*user.User, error)
	GetProfile(ctx context.Context, token string) (*user.User, error)
	UpdateProfile(ctx context.Context, token string, req user.UpdateProfileRequest) (*user.User, error)
}

// HealthAPI is the liveness probe
type HealthAPI interface {
	Health(ctx context.Context) error
}

// RecipeAPI covers generation, lookup and discovery
type RecipeAPI interface {
	GenerateRecipes(ctx context.Context, token string, req recipe.GenerateRequest) (*recipe.GenerateResponse, error)
	GetCuisines(ctx context.Context, token string) ([]string, error)
	GetRecipe(ctx context.Context, token, id string) (*recipe.Recipe, error)
	ListRecipes(ctx context.Context, token string) ([]recipe.Recipe, error)
	GetSimilarRecipes(ctx context.Context, token, id string) ([]recipe.Recipe, error)
	SearchRecipes(ctx context.Context, token string, params recipe.SearchParams) (*recipe.SearchResponse, error)
	GetAlternatives(ctx context.Context, token string, q recipe.AlternativesQuery) ([]recipe.AlternativesGroup, error)
}

// CookbookAPI covers bookmarks
type CookbookAPI interface {
	SaveRecipe(ctx context.Context, token, recipeID string) error
	UnsaveRecipe(ctx context.Context, token, recipeID string) error
	GetSavedRecipes(ctx context.Context, token string) ([]recipe.Recipe, error)
}

// FeedbackAPI covers ratings and comments
type FeedbackAPI interface {
	GetFeedback(ctx context.Context, token, recipeID string) (*feedback.Aggregate, error)
	SubmitFeedback(ctx context.Context, token, recipeID string, req feedback.CreateRequest) (*feedback.Feedback, error)
}

// ShareAPI covers public share links
type ShareAPI interface {
	GenerateShareLink(ctx context.Context, token, recipeID string) (*recipe.ShareLink, error)
	GetSharedRecipe(ctx context.Context, shareID string) (*recipe.Recipe, error)
}

// RecipeAPIClient is the full API surface
type RecipeAPIClient interface {
	AuthAPI
	HealthAPI
	RecipeAPI
	CookbookAPI
	FeedbackAPI
	ShareAPI
}
