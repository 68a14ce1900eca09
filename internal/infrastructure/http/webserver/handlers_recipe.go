package webserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pantrypilot/web/internal/application/share"
	"github.com/pantrypilot/web/internal/domain/feedback"
	"github.com/pantrypilot/web/internal/domain/notice"
	"github.com/pantrypilot/web/internal/domain/recipe"
	"github.com/pantrypilot/web/internal/infrastructure/cache"
	apperrors "github.com/pantrypilot/web/pkg/errors"
)

func recipeKey(id string) string   { return cache.Key("recipe", id) }
func feedbackKey(id string) string { return cache.Key("feedback", id) }

// loadRecipe reads one recipe through the query cache
func (s *WebServer) loadRecipe(r *http.Request, id string) (recipe.Recipe, error) {
	tok := token(r)
	return cache.Query(r.Context(), s.services.Queries, recipeKey(id), func(ctx context.Context) (recipe.Recipe, error) {
		rc, err := s.api.GetRecipe(ctx, tok, id)
		if err != nil {
			return recipe.Recipe{}, err
		}
		return *rc, nil
	})
}

// loadFeedback reads the aggregated feedback through the query cache
func (s *WebServer) loadFeedback(r *http.Request, id string) (feedback.Aggregate, error) {
	tok := token(r)
	return cache.Query(r.Context(), s.services.Queries, feedbackKey(id), func(ctx context.Context) (feedback.Aggregate, error) {
		agg, err := s.api.GetFeedback(ctx, tok, id)
		if err != nil {
			return feedback.Aggregate{}, err
		}
		return *agg, nil
	})
}

// failPage renders the error page for a failed page load
func (s *WebServer) failPage(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	if s.loginRedirect(w, r) {
		return
	}
	if apperrors.Is(err, apperrors.CodeNotFound) {
		s.renderError(w, r, http.StatusNotFound, notFound)
		return
	}
	s.renderError(w, r, http.StatusBadGateway, apperrors.UserMessage(err, "We could not reach the recipe service."))
}

func (s *WebServer) handleRecipePage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rc, err := s.loadRecipe(r, id)
	if err != nil {
		s.failPage(w, r, err, "Recipe not found.")
		return
	}

	sess := currentSession(r)
	signedIn := sess != nil && sess.IsAuthenticated()
	saved := s.savedIDs(r)

	view := recipeView{Card: cardView{Recipe: rc, Saved: saved[rc.ID], SignedIn: signedIn}}
	if similar, err := s.api.GetSimilarRecipes(r.Context(), token(r), id); err == nil {
		view.Similar = recipeCards(similar, saved, signedIn)
	} else {
		s.logger.Debug("Similar recipes unavailable", zap.String("recipe_id", id), zap.Error(err))
	}
	if agg, err := s.loadFeedback(r, id); err == nil {
		view.Feedback = newFeedbackView(id, agg)
	}
	if s.loginRedirect(w, r) {
		return
	}

	s.renderPage(w, r, http.StatusOK, "recipe", rc.Title, view)
}

func (s *WebServer) handleSharedRecipe(w http.ResponseWriter, r *http.Request) {
	rc, err := s.api.GetSharedRecipe(r.Context(), chi.URLParam(r, "shareId"))
	if err != nil {
		s.failPage(w, r, err, "This shared recipe is no longer available.")
		return
	}
	s.renderPage(w, r, http.StatusOK, "shared", rc.Title, recipeView{Card: cardView{Recipe: *rc}})
}

// Feedback

func (s *WebServer) handleHTMXFeedbackModal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	agg, err := s.loadFeedback(r, id)
	if err != nil {
		n := notice.New(notice.Error, "Could not load feedback", apperrors.UserMessage(err, "Something went wrong"))
		if s.apiFailure(w, r, err, n) {
			return
		}
	}
	s.renderFragment(w, r, http.StatusOK, "feedback-modal", newFeedbackView(id, agg))
}

func (s *WebServer) handleHTMXSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rating, _ := strconv.Atoi(r.PostFormValue("rating"))
	comment := r.PostFormValue("comment")

	view := newFeedbackView(id, feedback.Aggregate{})
	view.Rating = rating
	view.Comment = comment

	req, err := feedback.NewRating(rating, comment)
	if err != nil {
		if errors.Is(err, recipe.ErrRatingRequired) {
			s.notify(r, notice.New(notice.Warning, "Please select a rating", "Click on the stars to rate."))
		} else {
			s.notify(r, notice.New(notice.Error, "Failed to submit feedback", "Rating must be between 1 and 5."))
		}
		s.renderFragment(w, r, http.StatusUnprocessableEntity, "feedback-modal", view)
		return
	}

	if _, err := s.api.SubmitFeedback(r.Context(), token(r), id, req); err != nil {
		n := notice.New(notice.Error, "Failed to submit feedback", apperrors.UserMessage(err, "Something went wrong"))
		if s.apiFailure(w, r, err, n) {
			return
		}
		s.renderFragment(w, r, http.StatusOK, "feedback-modal", view)
		return
	}

	for _, key := range []string{feedbackKey(id), recipeKey(id)} {
		if err := s.services.Queries.Invalidate(r.Context(), key); err != nil {
			s.logger.Warn("Failed to invalidate feedback", zap.String("key", key), zap.Error(err))
		}
	}
	s.notify(r, notice.New(notice.Success, "Feedback submitted", "Thank you for rating this recipe!"))

	agg, err := s.loadFeedback(r, id)
	if err != nil {
		s.logger.Debug("Feedback refetch failed", zap.String("recipe_id", id), zap.Error(err))
	}
	s.renderFragment(w, r, http.StatusOK, "feedback-submitted", newFeedbackView(id, agg))
}

// Share

// handleHTMXShareOpen opens the dialog with a fresh open id. The body loads
// separately so re-rendering it never issues a second share request.
func (s *WebServer) handleHTMXShareOpen(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	openID, err := s.services.Shares.Open(id)
	if err != nil {
		s.renderError(w, r, http.StatusInternalServerError, "Could not open the share dialog.")
		return
	}
	s.renderFragment(w, r, http.StatusOK, "share-dialog", shareView{RecipeID: id, OpenID: openID})
}

func (s *WebServer) handleHTMXShareLink(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	openID := chi.URLParam(r, "openID")
	tok := token(r)

	link, linkErr := s.services.Shares.Link(r.Context(), id, openID, func(ctx context.Context) (*recipe.ShareLink, error) {
		return s.api.GenerateShareLink(ctx, tok, id)
	})
	if errors.Is(linkErr, share.ErrUnknownOpen) {
		s.renderError(w, r, http.StatusNotFound, "This share dialog has expired. Please open it again.")
		return
	}
	if linkErr != nil && s.loginRedirect(w, r) {
		return
	}

	rc, err := s.loadRecipe(r, id)
	if err != nil {
		rc = recipe.Recipe{ID: id, Title: "this recipe"}
	}

	view := shareView{RecipeID: id, OpenID: openID, Dialog: share.NewDialog(openID, rc, link, linkErr)}
	if linkErr != nil {
		view.Message = apperrors.UserMessage(linkErr, "Could not create a share link.")
	}
	s.renderFragment(w, r, http.StatusOK, "share-body", view)
}

func (s *WebServer) handleHTMXShareCopied(w http.ResponseWriter, r *http.Request) {
	s.notify(r, notice.New(notice.Success, "Link copied to clipboard!", ""))
	s.renderFragment(w, r, http.StatusOK, "", nil)
}
