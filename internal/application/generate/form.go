// Package generate holds the recipe generation form and its submission
package generate

import (
	"strconv"
	"strings"

	"github.com/pantrypilot/web/internal/domain/recipe"
)

// Form limits
const (
	MaxTags        = 10
	MinTime        = 0
	MaxTime        = 180
	TimeStep       = 5
	DefaultMaxTime = 60
)

// Field names a tag list of the form
type Field string

const (
	FieldIngredients Field = "ingredients"
	FieldAllergies   Field = "allergies"
	FieldPreferences Field = "preferences"
)

// ParseField parses a form field name
func ParseField(s string) (Field, bool) {
	switch f := Field(s); f {
	case FieldIngredients, FieldAllergies, FieldPreferences:
		return f, true
	}
	return "", false
}

// Form is the generation form state kept between interactions
type Form struct {
	Ingredients []string `json:"ingredients"`
	Allergies   []string `json:"allergies"`
	Preferences []string `json:"preferences"`
	MaxTime     int      `json:"maxTime"`
	Difficulty  string   `json:"difficulty"`
	Cuisine     string   `json:"cuisine"`
}

// NewForm returns the form with its defaults
func NewForm() Form {
	return Form{
		MaxTime:    DefaultMaxTime,
		Difficulty: recipe.Any,
		Cuisine:    recipe.Any,
	}
}

func (f *Form) list(field Field) *[]string {
	switch field {
	case FieldAllergies:
		return &f.Allergies
	case FieldPreferences:
		return &f.Preferences
	}
	return &f.Ingredients
}

// Tags returns the tags of field
func (f *Form) Tags(field Field) []string {
	return *f.list(field)
}

// AddTag appends the trimmed tag to field. Empty and duplicate tags are
// ignored, as is anything past MaxTags. added reports whether the list changed.
func (f *Form) AddTag(field Field, tag string) (added bool) {
	tags, ok := AddTag(*f.list(field), tag)
	*f.list(field) = tags
	return ok
}

// RemoveTag removes every exact match of tag from field
func (f *Form) RemoveTag(field Field, tag string) {
	*f.list(field) = RemoveTag(*f.list(field), tag)
}

// AddTag returns tags with tag appended when it is non-empty after trimming,
// not already present and the list is below MaxTags
func AddTag(tags []string, tag string) ([]string, bool) {
	tag = strings.TrimSpace(tag)
	if tag == "" || len(tags) >= MaxTags {
		return tags, false
	}
	for _, t := range tags {
		if t == tag {
			return tags, false
		}
	}
	return append(tags, tag), true
}

// RemoveTag returns tags without any element equal to tag
func RemoveTag(tags []string, tag string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t != tag {
			out = append(out, t)
		}
	}
	return out
}

// SetMaxTime snaps minutes onto the slider: clamped to MinTime..MaxTime in
// TimeStep increments
func (f *Form) SetMaxTime(minutes int) {
	if minutes < MinTime {
		minutes = MinTime
	}
	if minutes > MaxTime {
		minutes = MaxTime
	}
	f.MaxTime = (minutes + TimeStep/2) / TimeStep * TimeStep
	if f.MaxTime > MaxTime {
		f.MaxTime = MaxTime
	}
}

// SetDifficulty stores a difficulty select value; unknown values reset to Any
func (f *Form) SetDifficulty(value string) {
	d, err := recipe.ParseDifficulty(value)
	if err != nil || d == "" {
		f.Difficulty = recipe.Any
		return
	}
	f.Difficulty = string(d)
}

// SetCuisine stores a cuisine select value; empty resets to Any
func (f *Form) SetCuisine(value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		value = recipe.Any
	}
	f.Cuisine = value
}

// CanSubmit reports whether the form has at least one ingredient
func (f Form) CanSubmit() bool {
	return len(f.Ingredients) > 0
}

// Request builds the API request. Any difficulty or cuisine is left out.
func (f Form) Request() recipe.GenerateRequest {
	req := recipe.GenerateRequest{
		Ingredients: append([]string(nil), f.Ingredients...),
		MaxTime:     f.MaxTime,
		Allergies:   append([]string(nil), f.Allergies...),
		Preferences: append([]string(nil), f.Preferences...),
	}
	if d, err := recipe.ParseDifficulty(f.Difficulty); err == nil {
		req.Difficulty = d
	}
	if !strings.EqualFold(f.Cuisine, recipe.Any) {
		req.Cuisine = f.Cuisine
	}
	if len(req.Allergies) == 0 {
		req.Allergies = nil
	}
	if len(req.Preferences) == 0 {
		req.Preferences = nil
	}
	return req
}

// TimeLabel formats the slider value, e.g. "1h 30m". Zero sends no time
// limit.
func TimeLabel(minutes int) string {
	h, m := minutes/60, minutes%60
	switch {
	case minutes <= 0:
		return "Any time"
	case h == 0:
		return strconv.Itoa(m) + " min"
	case m == 0:
		return strconv.Itoa(h) + "h"
	}
	return strconv.Itoa(h) + "h " + strconv.Itoa(m) + "m"
}
