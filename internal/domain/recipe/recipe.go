// Package recipe contains the recipe transport records exchanged with the
// recipe API and the small amount of client-side logic attached to them.
package recipe

import (
	"fmt"
	"strings"
	"time"
)

// Difficulty is the recipe difficulty level
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Any is the filter sentinel meaning "no constraint". It is a form value
// only and never leaves the process.
const Any = "any"

// Difficulties lists the selectable difficulty levels in display order.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// Valid reports whether d is one of the known difficulty levels
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// ParseDifficulty parses a form value. The empty string and Any yield "".
func ParseDifficulty(s string) (Difficulty, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == Any {
		return "", nil
	}
	d := Difficulty(s)
	if !d.Valid() {
		return "", fmt.Errorf("unknown difficulty %q", s)
	}
	return d, nil
}

// Recipe mirrors RecipeResponseDto
type Recipe struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	Ingredients   []string   `json:"ingredients"`
	Steps         []string   `json:"steps"`
	EstimatedTime int        `json:"estimatedTime"`
	Difficulty    Difficulty `json:"difficulty"`
	SafetyNotes   []string   `json:"safetyNotes,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
	Cuisine       string     `json:"cuisine,omitempty"`
	Rating        *float64   `json:"rating,omitempty"`
	AverageRating *float64   `json:"averageRating,omitempty"`
	ReviewCount   *int       `json:"reviewCount,omitempty"`
	UserRating    *float64   `json:"userRating,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// DisplayRating returns the rating to show on a card, preferring the
// aggregate average. ok is false when the recipe has not been rated.
func (r Recipe) DisplayRating() (rating float64, ok bool) {
	if r.AverageRating != nil {
		return *r.AverageRating, true
	}
	if r.Rating != nil {
		return *r.Rating, true
	}
	return 0, false
}

// Reviews returns the review count, zero when absent
func (r Recipe) Reviews() int {
	if r.ReviewCount == nil {
		return 0
	}
	return *r.ReviewCount
}

// GenerateRequest mirrors GenerateRecipeDto
type GenerateRequest struct {
	Ingredients []string   `json:"ingredients" validate:"required,min=1,max=10,dive,tag"`
	MaxTime     int        `json:"maxTime,omitempty" validate:"omitempty,min=0,max=180"`
	Difficulty  Difficulty `json:"difficulty,omitempty"`
	Allergies   []string   `json:"allergies,omitempty" validate:"max=10,dive,tag"`
	Preferences []string   `json:"preferences,omitempty" validate:"max=10,dive,tag"`
	Cuisine     string     `json:"cuisine,omitempty"`
}

// GenerateResponse mirrors GenerateRecipeResponseDto. Fingerprint is opaque.
type GenerateResponse struct {
	Recipes     []Recipe  `json:"recipes"`
	Cached      bool      `json:"cached"`
	GeneratedAt time.Time `json:"generatedAt"`
	Fingerprint string    `json:"fingerprint,omitempty"`
}

// SaveRequest mirrors SaveRecipeDto
type SaveRequest struct {
	RecipeID  string `json:"recipeId"`
	SessionID string `json:"sessionId,omitempty"`
}

// AlternativesQuery mirrors AlternativesQueryDto; lists are comma separated.
type AlternativesQuery struct {
	Ingredients string
	Allergies   string
	Preferences string
	Limit       int
}

// NewAlternativesQuery joins tag lists the way the API expects them.
func NewAlternativesQuery(ingredients, allergies, preferences []string) AlternativesQuery {
	return AlternativesQuery{
		Ingredients: strings.Join(ingredients, ","),
		Allergies:   strings.Join(allergies, ","),
		Preferences: strings.Join(preferences, ","),
	}
}

// AlternativesGroup mirrors AlternativesResponse
type AlternativesGroup struct {
	Recipes    []Recipe `json:"recipes"`
	MatchScore float64  `json:"matchScore"`
}

// FlattenAlternatives returns the recipes of every group in order.
func FlattenAlternatives(groups []AlternativesGroup) []Recipe {
	var out []Recipe
	for _, g := range groups {
		out = append(out, g.Recipes...)
	}
	return out
}

// ShareLink mirrors ShareRecipeResponse
type ShareLink struct {
	ShareID    string    `json:"shareId"`
	ShareURL   string    `json:"shareUrl"`
	OGImageURL string    `json:"ogImageUrl"`
	CreatedAt  time.Time `json:"createdAt"`
}

// CuisineLabel formats a cuisine enum value for display:
// "MIDDLE_EASTERN" becomes "MIDDLE EASTERN", "italian" becomes "Italian".
func CuisineLabel(c string) string {
	if c == "" {
		return ""
	}
	return strings.ToUpper(c[:1]) + strings.Replace(c[1:], "_", " ", 1)
}

// QuickCuisineLabel formats the quick-pick cuisine chips: "ITALIAN" becomes "Italian".
func QuickCuisineLabel(c string) string {
	if c == "" {
		return ""
	}
	return c[:1] + strings.ToLower(c[1:])
}
