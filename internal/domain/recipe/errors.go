package recipe

import "errors"

// Domain errors for recipe forms and requests

var (
	// Form validation errors
	ErrNoIngredients = errors.New("at least one ingredient is required")
	ErrTooManyTags   = errors.New("a tag list holds at most 10 entries")

	// Rating errors
	ErrRatingRequired = errors.New("please select a rating")
	ErrInvalidRating  = errors.New("rating must be between 1 and 5")
)
