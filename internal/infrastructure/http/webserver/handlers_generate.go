package webserver

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/pantrypilot/web/internal/application/generate"
	"github.com/pantrypilot/web/internal/domain/notice"
	"github.com/pantrypilot/web/internal/domain/recipe"
	"github.com/pantrypilot/web/internal/infrastructure/session"
	apperrors "github.com/pantrypilot/web/pkg/errors"
)

// generateFormKey names the generation form in the session UI store
const generateFormKey = "generate"

// loadForm returns the session's generation form, or a fresh one
func (s *WebServer) loadForm(r *http.Request) generate.Form {
	form := generate.NewForm()
	sess := currentSession(r)
	if sess == nil {
		return form
	}
	if _, err := sess.LoadForm(generateFormKey, &form); err != nil {
		s.logger.Warn("Discarding unreadable form state", zap.Error(err))
		return generate.NewForm()
	}
	return form
}

// saveForm stores the generation form in the session
func (s *WebServer) saveForm(r *http.Request, form generate.Form) {
	_ = s.updateSession(r, func(sess *session.Session) error {
		return sess.SaveForm(generateFormKey, form)
	})
}

// applyOptions copies posted select values onto form
func applyOptions(r *http.Request, form *generate.Form) {
	if v := r.PostFormValue("maxTime"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			form.SetMaxTime(n)
		}
	}
	if _, ok := r.PostForm["difficulty"]; ok {
		form.SetDifficulty(r.PostFormValue("difficulty"))
	}
	if _, ok := r.PostForm["cuisine"]; ok {
		form.SetCuisine(r.PostFormValue("cuisine"))
	}
}

func (s *WebServer) newGenerateView(r *http.Request, form generate.Form) generateView {
	cuisines, err := s.services.Search.Cuisines(r.Context(), token(r))
	if err != nil {
		s.logger.Debug("Cuisines unavailable", zap.Error(err))
	}
	return generateView{
		Form:         form,
		CanSubmit:    form.CanSubmit(),
		TimeOptions:  generateTimeOptions(),
		Difficulties: recipe.Difficulties,
		Cuisines:     cuisines,
		TagLists:     tagLists(form),
		MaxTags:      generate.MaxTags,
	}
}

// savedIDs returns the saved recipe ids of the session. Failures render
// every card as unsaved.
func (s *WebServer) savedIDs(r *http.Request) map[string]bool {
	ids, err := s.services.Cookbook.SavedIDs(r.Context(), scope(r), token(r))
	if err != nil {
		s.logger.Debug("Saved recipes unavailable", zap.Error(err))
	}
	return ids
}

func (s *WebServer) handleHTMXAddTag(w http.ResponseWriter, r *http.Request) {
	form := s.loadForm(r)
	field, ok := generate.ParseField(r.PostFormValue("field"))
	if !ok {
		s.renderError(w, r, http.StatusBadRequest, "Unknown field.")
		return
	}
	if tag := r.PostFormValue("tag"); tag != "" {
		if err := s.services.Generate.ValidateTag(tag); err != nil {
			s.notify(r, notice.New(notice.Warning, "Invalid entry", apperrors.UserMessage(err, "That entry is not allowed.")))
		} else if !form.AddTag(field, tag) && len(form.Tags(field)) >= generate.MaxTags {
			s.notify(r, notice.New(notice.Warning, "Limit reached", "You can add up to 10 items."))
		}
	}
	s.saveForm(r, form)
	s.renderFragment(w, r, http.StatusOK, "generate-form", s.newGenerateView(r, form))
}

func (s *WebServer) handleHTMXRemoveTag(w http.ResponseWriter, r *http.Request) {
	form := s.loadForm(r)
	field, ok := generate.ParseField(r.FormValue("field"))
	if !ok {
		s.renderError(w, r, http.StatusBadRequest, "Unknown field.")
		return
	}
	form.RemoveTag(field, r.FormValue("tag"))
	s.saveForm(r, form)
	s.renderFragment(w, r, http.StatusOK, "generate-form", s.newGenerateView(r, form))
}

func (s *WebServer) handleHTMXGenerateOptions(w http.ResponseWriter, r *http.Request) {
	form := s.loadForm(r)
	_ = r.ParseForm()
	applyOptions(r, &form)
	s.saveForm(r, form)
	s.renderFragment(w, r, http.StatusOK, "generate-form", s.newGenerateView(r, form))
}

func (s *WebServer) handleHTMXGenerate(w http.ResponseWriter, r *http.Request) {
	form := s.loadForm(r)
	_ = r.ParseForm()
	applyOptions(r, &form)
	s.saveForm(r, form)
	view := s.newGenerateView(r, form)

	if !form.CanSubmit() {
		s.notify(r, notice.New(notice.Warning, "Add an ingredient", "Add at least one ingredient to generate recipes."))
		s.renderFragment(w, r, http.StatusUnprocessableEntity, "generate-results", view)
		return
	}

	result, err := s.services.Generate.Generate(r.Context(), token(r), form)
	if err != nil {
		if s.apiFailure(w, r, err, generate.FailureNotice(err)) {
			return
		}
		s.renderFragment(w, r, http.StatusOK, "generate-results", view)
		return
	}
	if result.Notice != nil {
		s.notify(r, *result.Notice)
	}

	view.Results = recipeCards(result.Recipes, s.savedIDs(r), true)
	view.Cached = result.Cached
	view.ShowNoResults = len(result.Recipes) == 0
	s.renderFragment(w, r, http.StatusOK, "generate-results", view)
}

func (s *WebServer) handleHTMXAlternatives(w http.ResponseWriter, r *http.Request) {
	form := s.loadForm(r)
	view := generateView{Form: form}
	if !form.CanSubmit() {
		s.renderFragment(w, r, http.StatusOK, "alternatives", view)
		return
	}

	q := recipe.NewAlternativesQuery(form.Ingredients, form.Allergies, form.Preferences)
	groups, err := s.api.GetAlternatives(r.Context(), token(r), q)
	if err != nil {
		n := notice.New(notice.Error, "Could not load alternatives", apperrors.UserMessage(err, "Something went wrong"))
		if s.apiFailure(w, r, err, n) {
			return
		}
		s.renderFragment(w, r, http.StatusOK, "alternatives", view)
		return
	}

	view.Alternatives = recipeCards(recipe.FlattenAlternatives(groups), s.savedIDs(r), true)
	view.ShowNoResults = len(view.Alternatives) == 0
	s.renderFragment(w, r, http.StatusOK, "alternatives", view)
}
