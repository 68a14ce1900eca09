package webserver

import (
	"net/url"
	"strconv"

	"github.com/pantrypilot/web/internal/application/generate"
	"github.com/pantrypilot/web/internal/application/search"
	"github.com/pantrypilot/web/internal/application/share"
	"github.com/pantrypilot/web/internal/application/status"
	"github.com/pantrypilot/web/internal/domain/feedback"
	"github.com/pantrypilot/web/internal/domain/recipe"
	"github.com/pantrypilot/web/internal/domain/user"
	"github.com/pantrypilot/web/internal/infrastructure/session"
)

// pageData wraps every full page render
type pageData struct {
	Title      string
	Path       string
	User       *user.User
	SignedIn   bool
	CSRFToken  string
	Status     status.Snapshot
	Onboarding bool
	Toasts     []session.Notification
	Data       interface{}
}

// cardView is one recipe card. NextURL is set only on the last card of a
// page that has a successor and makes the card load it when revealed.
type cardView struct {
	Recipe   recipe.Recipe
	Saved    bool
	SignedIn bool
	NextURL  string
}

// saveButtonView renders the cookbook toggle of one recipe
type saveButtonView struct {
	RecipeID string
	Saved    bool
}

// generateView renders the generation form and its results
type generateView struct {
	Form          generate.Form
	CanSubmit     bool
	TimeOptions   []timeOption
	Difficulties  []recipe.Difficulty
	Cuisines      []string
	TagLists      []tagListView
	MaxTags       int
	Results       []cardView
	Cached        bool
	Alternatives  []cardView
	ShowNoResults bool
}

// tagListView is one tag input with its current tags
type tagListView struct {
	Field       generate.Field
	Label       string
	Placeholder string
	Tags        []string
	Full        bool
}

type timeOption struct {
	Value int
	Label string
}

// tagLists returns the tag inputs of form in display order
func tagLists(form generate.Form) []tagListView {
	lists := []tagListView{
		{Field: generate.FieldIngredients, Label: "Ingredients", Placeholder: "e.g. chicken, rice, garlic"},
		{Field: generate.FieldAllergies, Label: "Allergies", Placeholder: "e.g. peanuts, shellfish"},
		{Field: generate.FieldPreferences, Label: "Preferences", Placeholder: "e.g. vegetarian, spicy"},
	}
	for i := range lists {
		lists[i].Tags = form.Tags(lists[i].Field)
		lists[i].Full = len(lists[i].Tags) >= generate.MaxTags
	}
	return lists
}

// generateTimeOptions returns the max time slider stops
func generateTimeOptions() []timeOption {
	var out []timeOption
	for t := generate.MinTime; t <= generate.MaxTime; t += generate.TimeStep {
		out = append(out, timeOption{Value: t, Label: generate.TimeLabel(t)})
	}
	return out
}

// searchView renders the search page
type searchView struct {
	Params        recipe.SearchParams
	Cuisines      []string
	TimeOptions   []timeOption
	SortOptions   []search.SortOption
	QuickCuisines []chipView
	Difficulties  []recipe.Difficulty
	Results       resultsView
	ClearURL      string
	OrderURL      string
	TagChips      []chipView
}

// resultsView is one page of search results
type resultsView struct {
	Cards    []cardView
	Empty    bool
	Total    int
	ClearURL string
}

// chipView is a toggleable filter link
type chipView struct {
	Label  string
	URL    string
	Active bool
}

// searchURL returns the path of the search page for p
func searchURL(base string, p recipe.SearchParams, offset int) string {
	v := search.FilterValues(p)
	if offset > 0 {
		v.Set("offset", strconv.Itoa(offset))
	}
	if len(v) == 0 {
		return base
	}
	return base + "?" + v.Encode()
}

// pageCards builds the cards of a loaded search page
func pageCards(page *search.Page, saved map[string]bool, signedIn bool) []cardView {
	cards := recipeCards(page.Results.Data, saved, signedIn)
	if page.HasNext && len(cards) > 0 {
		cards[len(cards)-1].NextURL = searchURL("/htmx/search", page.Params, page.Next)
	}
	return cards
}

func recipeCards(recipes []recipe.Recipe, saved map[string]bool, signedIn bool) []cardView {
	cards := make([]cardView, 0, len(recipes))
	for _, r := range recipes {
		cards = append(cards, cardView{Recipe: r, Saved: saved[r.ID], SignedIn: signedIn})
	}
	return cards
}

// quickCuisineChips returns the quick-pick chips for the current filters
func quickCuisineChips(p recipe.SearchParams) []chipView {
	chips := make([]chipView, 0, len(search.QuickCuisines))
	for _, c := range search.QuickCuisines {
		next := p
		next.Cuisine = search.ToggleQuickCuisine(p.Cuisine, c)
		next.Offset = 0
		chips = append(chips, chipView{
			Label:  recipe.QuickCuisineLabel(c),
			URL:    searchURL("/search", next, 0),
			Active: p.Cuisine == c,
		})
	}
	return chips
}

// tagChips returns removable chips for the active tag filter
func tagChips(p recipe.SearchParams) []chipView {
	var chips []chipView
	for _, t := range p.TagList() {
		chips = append(chips, chipView{
			Label:  t,
			URL:    searchURL("/search", p.WithoutTag(t), 0),
			Active: true,
		})
	}
	return chips
}

// recipeView renders the recipe detail page
type recipeView struct {
	Card     cardView
	Similar  []cardView
	Feedback *feedbackView
}

// feedbackView renders the feedback summary and rating modal
type feedbackView struct {
	RecipeID  string
	Aggregate feedback.Aggregate
	Bars      []feedback.Bar
	Rating    int
	Comment   string
	Stars     []int
}

func newFeedbackView(recipeID string, agg feedback.Aggregate) *feedbackView {
	return &feedbackView{
		RecipeID:  recipeID,
		Aggregate: agg,
		Bars:      agg.Distribution(),
		Stars:     []int{1, 2, 3, 4, 5},
	}
}

// shareView renders the share dialog shell or its loaded body
type shareView struct {
	RecipeID string
	OpenID   string
	Dialog   share.Dialog
	Message  string
}

// cookbookView renders the saved recipes sheet
type cookbookView struct {
	Cards []cardView
	Err   string
}

// profileView renders the profile page forms
type profileView struct {
	User            user.User
	Name            string
	CurrentPassword string
	NewPassword     string
	ConfirmPassword string
}

// authView renders the login and register forms
type authView struct {
	Email    string
	Name     string
	Redirect string
}

// errorView renders the error page
type errorView struct {
	Message string
	Reload  string
}

// loginURL returns the login page that returns to page after signing in
func loginURL(page string) string {
	if page == "" || page == "/" {
		return "/login"
	}
	return "/login?redirect=" + url.QueryEscape(page)
}
