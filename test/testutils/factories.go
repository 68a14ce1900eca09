// Package testutils provides test data factories and a fake recipe API for
// consistent test data generation
package testutils

import (
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"

	"github.com/pantrypilot/web/internal/domain/feedback"
	"github.com/pantrypilot/web/internal/domain/recipe"
	"github.com/pantrypilot/web/internal/domain/user"
)

// Cuisines used by generated fixtures
var Cuisines = []string{"ITALIAN", "JAPANESE", "MEXICAN", "INDIAN", "MIDDLE_EASTERN"}

// RecipeFactory provides methods to create test recipes
type RecipeFactory struct {
	faker *gofakeit.Faker
}

// NewRecipeFactory creates a new recipe factory with seeded faker
func NewRecipeFactory(seed int64) *RecipeFactory {
	return &RecipeFactory{
		faker: gofakeit.New(seed),
	}
}

// Recipe creates a single recipe with realistic values
func (f *RecipeFactory) Recipe() recipe.Recipe {
	return NewRecipeBuilder(f.faker).Build()
}

// Recipes creates n recipes with distinct creation times, newest first
func (f *RecipeFactory) Recipes(n int) []recipe.Recipe {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	out := make([]recipe.Recipe, 0, n)
	for i := 0; i < n; i++ {
		r := NewRecipeBuilder(f.faker).
			WithTitle(fmt.Sprintf("%s #%d", f.faker.Dessert(), i+1)).
			WithCreatedAt(base.Add(-time.Duration(i) * time.Hour)).
			Build()
		out = append(out, r)
	}
	return out
}

// User creates a user with a fake name and email
func (f *RecipeFactory) User() user.User {
	return user.User{
		ID:        uuid.NewString(),
		Email:     strings.ToLower(f.faker.Email()),
		Name:      f.faker.Name(),
		CreatedAt: f.faker.DateRange(time.Now().AddDate(-1, 0, 0), time.Now()),
	}
}

// Aggregate creates aggregated feedback for a recipe from n ratings
func (f *RecipeFactory) Aggregate(recipeID string, n int) feedback.Aggregate {
	agg := feedback.Aggregate{RatingDistribution: map[int]int{}}
	sum := 0
	for i := 0; i < n; i++ {
		stars := f.faker.Number(1, feedback.MaxRating)
		agg.RatingDistribution[stars]++
		sum += stars
		if i < 3 {
			rating := stars
			agg.RecentComments = append(agg.RecentComments, feedback.Feedback{
				ID:        uuid.NewString(),
				RecipeID:  recipeID,
				Type:      feedback.KindRating,
				Rating:    &rating,
				Comment:   f.faker.Sentence(6),
				CreatedAt: time.Now().Add(-time.Duration(i) * time.Hour),
			})
		}
	}
	agg.TotalRatings = n
	if n > 0 {
		agg.AverageRating = float64(sum) / float64(n)
	}
	return agg
}

// RecipeBuilder provides a fluent interface for building test recipes
type RecipeBuilder struct {
	r recipe.Recipe
}

// NewRecipeBuilder creates a new recipe builder with default values. A nil
// faker uses a time-seeded one.
func NewRecipeBuilder(faker *gofakeit.Faker) *RecipeBuilder {
	if faker == nil {
		faker = gofakeit.New(time.Now().UnixNano())
	}

	ingredients := make([]string, 0, 5)
	for i := 0; i < faker.Number(3, 6); i++ {
		ingredients = append(ingredients, fmt.Sprintf("%d %s", faker.Number(1, 4), faker.Vegetable()))
	}
	steps := make([]string, 0, 4)
	for i := 0; i < faker.Number(2, 5); i++ {
		steps = append(steps, faker.Sentence(8))
	}

	return &RecipeBuilder{r: recipe.Recipe{
		ID:            uuid.NewString(),
		Title:         faker.Dessert(),
		Description:   faker.Sentence(12),
		Ingredients:   ingredients,
		Steps:         steps,
		EstimatedTime: faker.Number(2, 36) * 5,
		Difficulty:    recipe.Difficulties[faker.Number(0, len(recipe.Difficulties)-1)],
		Tags:          []string{faker.Adjective(), faker.Adjective()},
		Cuisine:       Cuisines[faker.Number(0, len(Cuisines)-1)],
		CreatedAt:     faker.DateRange(time.Now().AddDate(0, -6, 0), time.Now()),
	}}
}

// WithID sets the recipe id
func (rb *RecipeBuilder) WithID(id string) *RecipeBuilder {
	rb.r.ID = id
	return rb
}

// WithTitle sets the recipe title
func (rb *RecipeBuilder) WithTitle(title string) *RecipeBuilder {
	rb.r.Title = title
	return rb
}

// WithDifficulty sets the recipe difficulty
func (rb *RecipeBuilder) WithDifficulty(d recipe.Difficulty) *RecipeBuilder {
	rb.r.Difficulty = d
	return rb
}

// WithCuisine sets the recipe cuisine
func (rb *RecipeBuilder) WithCuisine(cuisine string) *RecipeBuilder {
	rb.r.Cuisine = cuisine
	return rb
}

// WithTime sets the estimated time in minutes
func (rb *RecipeBuilder) WithTime(minutes int) *RecipeBuilder {
	rb.r.EstimatedTime = minutes
	return rb
}

// WithRating sets the average rating and review count
func (rb *RecipeBuilder) WithRating(avg float64, reviews int) *RecipeBuilder {
	rb.r.AverageRating = &avg
	rb.r.ReviewCount = &reviews
	return rb
}

// WithCreatedAt sets the creation time
func (rb *RecipeBuilder) WithCreatedAt(t time.Time) *RecipeBuilder {
	rb.r.CreatedAt = t
	return rb
}

// Build returns the built recipe
func (rb *RecipeBuilder) Build() recipe.Recipe {
	return rb.r
}
