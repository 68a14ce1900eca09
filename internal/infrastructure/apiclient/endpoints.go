package apiclient

import (
	"context"
	"net/url"
	"strconv"

	"github.com/pantrypilot/web/internal/domain/feedback"
	"github.com/pantrypilot/web/internal/domain/recipe"
	"github.com/pantrypilot/web/internal/domain/user"
	"github.com/pantrypilot/web/internal/ports/outbound"
)

// Authentication

// Login exchanges credentials for an access token and the user
func (c *Client) Login(ctx context.Context, req user.LoginRequest) (*user.LoginResponse, error) {
	var resp user.LoginResponse
	if err := c.post(ctx, "/auth/login", "", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates a new account. It does not sign the user in.
func (c *Client) Register(ctx context.Context, req user.RegisterRequest) (*user.User, error) {
	var resp user.User
	if err := c.post(ctx, "/auth/register", "", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetProfile gets the current user's profile
func (c *Client) GetProfile(ctx context.Context, token string) (*user.User, error) {
	var resp user.User
	if err := c.get(ctx, "/auth/profile", token, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateProfile changes the display name or password
func (c *Client) UpdateProfile(ctx context.Context, token string, req user.UpdateProfileRequest) (*user.User, error) {
	var resp user.User
	if err := c.patch(ctx, "/auth/profile", token, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health probes the API liveness endpoint
func (c *Client) Health(ctx context.Context) error {
	return c.get(ctx, "/health", "", nil, nil)
}

// Recipes

// GenerateRecipes generates a recipe set for the given pantry
func (c *Client) GenerateRecipes(ctx context.Context, token string, req recipe.GenerateRequest) (*recipe.GenerateResponse, error) {
	var resp recipe.GenerateResponse
	if err := c.post(ctx, "/recipes/generate", token, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetCuisines lists the cuisine enum values
func (c *Client) GetCuisines(ctx context.Context, token string) ([]string, error) {
	var resp []string
	if err := c.get(ctx, "/recipes/cuisines", token, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetRecipe fetches a single recipe by ID
func (c *Client) GetRecipe(ctx context.Context, token, id string) (*recipe.Recipe, error) {
	var resp recipe.Recipe
	if err := c.get(ctx, "/recipes/"+url.PathEscape(id), token, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListRecipes fetches every recipe
func (c *Client) ListRecipes(ctx context.Context, token string) ([]recipe.Recipe, error) {
	var resp []recipe.Recipe
	if err := c.get(ctx, "/recipes", token, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetSimilarRecipes fetches recipes related to id
func (c *Client) GetSimilarRecipes(ctx context.Context, token, id string) ([]recipe.Recipe, error) {
	var resp []recipe.Recipe
	if err := c.get(ctx, "/recipes/"+url.PathEscape(id)+"/similar", token, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// SearchRecipes fetches one page of search results. Empty, zero and "any"
// filters are left out of the query.
func (c *Client) SearchRecipes(ctx context.Context, token string, params recipe.SearchParams) (*recipe.SearchResponse, error) {
	var resp recipe.SearchResponse
	if err := c.get(ctx, "/recipes/search", token, params.Values(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetAlternatives fetches ingredient substitution suggestions
func (c *Client) GetAlternatives(ctx context.Context, token string, q recipe.AlternativesQuery) ([]recipe.AlternativesGroup, error) {
	values := url.Values{}
	values.Set("ingredients", q.Ingredients)
	if q.Allergies != "" {
		values.Set("allergies", q.Allergies)
	}
	if q.Preferences != "" {
		values.Set("preferences", q.Preferences)
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}

	var resp []recipe.AlternativesGroup
	if err := c.get(ctx, "/recipes/alternatives", token, values, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Cookbook

// SaveRecipe bookmarks a recipe
func (c *Client) SaveRecipe(ctx context.Context, token, recipeID string) error {
	return c.post(ctx, "/recipes/save", token, recipe.SaveRequest{RecipeID: recipeID}, nil)
}

// UnsaveRecipe removes a bookmark
func (c *Client) UnsaveRecipe(ctx context.Context, token, recipeID string) error {
	return c.delete(ctx, "/recipes/saved/"+url.PathEscape(recipeID), token)
}

// GetSavedRecipes lists the user's bookmarks
func (c *Client) GetSavedRecipes(ctx context.Context, token string) ([]recipe.Recipe, error) {
	var resp []recipe.Recipe
	if err := c.get(ctx, "/recipes/saved", token, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Feedback

// GetFeedback fetches the aggregated feedback of a recipe
func (c *Client) GetFeedback(ctx context.Context, token, recipeID string) (*feedback.Aggregate, error) {
	var resp feedback.Aggregate
	if err := c.get(ctx, "/recipes/"+url.PathEscape(recipeID)+"/feedback", token, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SubmitFeedback posts a rating, comment or correction
func (c *Client) SubmitFeedback(ctx context.Context, token, recipeID string, req feedback.CreateRequest) (*feedback.Feedback, error) {
	var resp feedback.Feedback
	if err := c.post(ctx, "/recipes/"+url.PathEscape(recipeID)+"/feedback", token, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Sharing

// GenerateShareLink creates or fetches the public share link of a recipe
func (c *Client) GenerateShareLink(ctx context.Context, token, recipeID string) (*recipe.ShareLink, error) {
	var resp recipe.ShareLink
	if err := c.get(ctx, "/recipes/"+url.PathEscape(recipeID)+"/share", token, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetSharedRecipe fetches a publicly shared recipe
func (c *Client) GetSharedRecipe(ctx context.Context, shareID string) (*recipe.Recipe, error) {
	var resp recipe.Recipe
	if err := c.get(ctx, "/recipes/shared/"+url.PathEscape(shareID), "", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

var _ outbound.RecipeAPIClient = (*Client)(nil)
