package webserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pantrypilot/web/internal/application/cookbook"
	"github.com/pantrypilot/web/internal/domain/notice"
	apperrors "github.com/pantrypilot/web/pkg/errors"
)

func (s *WebServer) handleHTMXCookbook(w http.ResponseWriter, r *http.Request) {
	saved, err := s.services.Cookbook.List(r.Context(), scope(r), token(r))
	if err != nil {
		n := notice.New(notice.Error, "Could not load your Cookbook", apperrors.UserMessage(err, "Something went wrong"))
		if s.apiFailure(w, r, err, n) {
			return
		}
		s.renderFragment(w, r, http.StatusOK, "cookbook-sheet", cookbookView{Err: n.Description})
		return
	}

	ids := make(map[string]bool, len(saved))
	for _, rc := range saved {
		ids[rc.ID] = true
	}
	s.renderFragment(w, r, http.StatusOK, "cookbook-sheet", cookbookView{Cards: recipeCards(saved, ids, true)})
}

// handleHTMXCookbookToggle flips the saved state the button was rendered
// with and answers with the new button
func (s *WebServer) handleHTMXCookbookToggle(w http.ResponseWriter, r *http.Request) {
	recipeID := chi.URLParam(r, "id")
	isSaved, _ := strconv.ParseBool(r.PostFormValue("saved"))

	result, err := s.services.Cookbook.Toggle(r.Context(), scope(r), token(r), recipeID, isSaved)
	if err != nil {
		if s.apiFailure(w, r, err, cookbook.FailureNotice(err)) {
			return
		}
		s.renderFragment(w, r, http.StatusOK, "save-button", saveButtonView{RecipeID: recipeID, Saved: isSaved})
		return
	}

	s.notify(r, result.Notice)
	w.Header().Set("HX-Trigger", "cookbook-changed")
	s.renderFragment(w, r, http.StatusOK, "save-button", saveButtonView{RecipeID: recipeID, Saved: result.Saved})
}
