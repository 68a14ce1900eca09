package webserver

import (
	"net/http"
	"strconv"

	"github.com/pantrypilot/web/internal/application/search"
	"github.com/pantrypilot/web/internal/domain/notice"
	"github.com/pantrypilot/web/internal/domain/recipe"
	apperrors "github.com/pantrypilot/web/pkg/errors"
)

func searchFailure(err error) notice.Notice {
	return notice.New(notice.Error, "Search failed", apperrors.UserMessage(err, "Could not load recipes. Please try again."))
}

// loadResults loads one page and builds its cards. ok is false when the
// response has already been written.
func (s *WebServer) loadResults(w http.ResponseWriter, r *http.Request, p recipe.SearchParams) (resultsView, bool) {
	view := resultsView{ClearURL: searchURL("/search", s.services.Search.Defaults().Clear(p), 0)}

	page, err := s.services.Search.Page(r.Context(), token(r), p)
	if err != nil {
		if s.apiFailure(w, r, err, searchFailure(err)) {
			return view, false
		}
		view.Empty = p.Offset == 0
		return view, true
	}

	sess := currentSession(r)
	signedIn := sess != nil && sess.IsAuthenticated()
	view.Cards = pageCards(page, s.savedIDs(r), signedIn)
	view.Empty = page.Empty()
	view.Total = page.Results.Total
	return view, true
}

func (s *WebServer) handleSearchPage(w http.ResponseWriter, r *http.Request) {
	p := s.services.Search.Defaults().Parse(r.URL.Query())
	p.Offset = 0

	results, ok := s.loadResults(w, r, p)
	if !ok {
		return
	}

	cuisines, _ := s.services.Search.Cuisines(r.Context(), token(r))
	order := p
	order.Order = p.Order.Toggle()

	view := searchView{
		Params:        p,
		Cuisines:      cuisines,
		TimeOptions:   searchTimeOptions(),
		SortOptions:   search.SortOptions,
		QuickCuisines: quickCuisineChips(p),
		Difficulties:  recipe.Difficulties,
		Results:       results,
		ClearURL:      results.ClearURL,
		OrderURL:      searchURL("/search", order, 0),
		TagChips:      tagChips(p),
	}
	s.renderPage(w, r, http.StatusOK, "search", "Browse recipes", view)
}

// handleHTMXSearch serves the first page into the results list and later
// pages after the card that revealed them
func (s *WebServer) handleHTMXSearch(w http.ResponseWriter, r *http.Request) {
	p := s.services.Search.Defaults().Parse(r.URL.Query())

	results, ok := s.loadResults(w, r, p)
	if !ok {
		return
	}
	if p.Offset > 0 {
		s.renderFragment(w, r, http.StatusOK, "recipe-cards", results.Cards)
		return
	}
	w.Header().Set("HX-Push-Url", searchURL("/search", p, 0))
	s.renderFragment(w, r, http.StatusOK, "search-results", results)
}

func searchTimeOptions() []timeOption {
	out := make([]timeOption, 0, len(search.TimeOptions))
	for _, t := range search.TimeOptions {
		out = append(out, timeOption{Value: t, Label: timeOptionLabel(t)})
	}
	return out
}

func timeOptionLabel(minutes int) string {
	return strconv.Itoa(minutes) + " mins"
}
