// Package feedback holds recipe ratings, comments and their aggregate
package feedback

import (
	"strings"
	"time"

	"github.com/pantrypilot/web/internal/domain/recipe"
)

// Kind is the feedback type
type Kind string

const (
	KindRating     Kind = "rating"
	KindCorrection Kind = "correction"
	KindComment    Kind = "comment"
)

// MaxRating is the highest star rating
const MaxRating = 5

// Feedback mirrors FeedbackResponseDto
type Feedback struct {
	ID        string    `json:"id"`
	RecipeID  string    `json:"recipeId"`
	Type      Kind      `json:"type"`
	Rating    *int      `json:"rating,omitempty"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Aggregate mirrors AggregatedFeedbackDto
type Aggregate struct {
	AverageRating      float64     `json:"averageRating"`
	TotalRatings       int         `json:"totalRatings"`
	RatingDistribution map[int]int `json:"ratingDistribution"`
	RecentComments     []Feedback  `json:"recentComments"`
}

// Bar is one row of the rating distribution chart
type Bar struct {
	Stars   int
	Count   int
	Percent int
}

// Distribution returns the distribution from five stars down to one
func (a Aggregate) Distribution() []Bar {
	bars := make([]Bar, 0, MaxRating)
	for stars := MaxRating; stars >= 1; stars-- {
		count := a.RatingDistribution[stars]
		pct := 0
		if a.TotalRatings > 0 {
			pct = count * 100 / a.TotalRatings
		}
		bars = append(bars, Bar{Stars: stars, Count: count, Percent: pct})
	}
	return bars
}

// CreateRequest mirrors CreateFeedbackDto
type CreateRequest struct {
	Type        Kind              `json:"type" validate:"required,oneof=rating correction comment"`
	Rating      *int              `json:"rating,omitempty" validate:"omitempty,min=1,max=5"`
	Comment     string            `json:"comment,omitempty" validate:"max=2000"`
	Corrections map[string]string `json:"corrections,omitempty"`
}

// NewRating builds a rating submission. A zero rating means nothing was
// selected and is rejected; the comment is trimmed and omitted when blank.
func NewRating(rating int, comment string) (CreateRequest, error) {
	if rating == 0 {
		return CreateRequest{}, recipe.ErrRatingRequired
	}
	if rating < 1 || rating > MaxRating {
		return CreateRequest{}, recipe.ErrInvalidRating
	}
	return CreateRequest{
		Type:    KindRating,
		Rating:  &rating,
		Comment: strings.TrimSpace(comment),
	}, nil
}
