package webserver

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/pantrypilot/web/internal/application/cookbook"
	appuser "github.com/pantrypilot/web/internal/application/user"
	"github.com/pantrypilot/web/internal/domain/user"
	"github.com/pantrypilot/web/internal/infrastructure/session"
)

// latestRecipes is the number of cards on the signed-out landing page
const latestRecipes = 6

func (s *WebServer) handleHome(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	if sess == nil || !sess.IsAuthenticated() {
		latest, err := s.services.Search.Latest(r.Context(), "", latestRecipes)
		if err != nil {
			s.logger.Debug("Latest recipes unavailable", zap.Error(err))
		}
		s.renderPage(w, r, http.StatusOK, "home", "PantryPilot", recipeCards(latest, nil, false))
		return
	}
	view := s.newGenerateView(r, s.loadForm(r))
	s.renderPage(w, r, http.StatusOK, "home", "Kitchen", view)
}

func (s *WebServer) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if sess := currentSession(r); sess != nil && sess.IsAuthenticated() {
		http.Redirect(w, r, safeRedirect(r.URL.Query().Get("redirect")), http.StatusSeeOther)
		return
	}
	s.renderPage(w, r, http.StatusOK, "login", "Sign in", authView{Redirect: r.URL.Query().Get("redirect")})
}

func (s *WebServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	req := user.LoginRequest{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	redirect := r.PostFormValue("redirect")

	resp, err := s.services.Users.Login(r.Context(), req)
	s.notify(r, appuser.LoginNotice(err))
	if err != nil {
		s.renderPage(w, r, http.StatusOK, "login", "Sign in", authView{Email: req.Email, Redirect: redirect})
		return
	}

	if err := s.updateSession(r, func(sess *session.Session) error {
		sess.SetAuth(resp.AccessToken, resp.User)
		return nil
	}); err != nil {
		s.renderError(w, r, http.StatusInternalServerError, "We could not sign you in. Please try again.")
		return
	}
	s.redirect(w, r, safeRedirect(redirect))
}

func (s *WebServer) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	if sess := currentSession(r); sess != nil && sess.IsAuthenticated() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.renderPage(w, r, http.StatusOK, "register", "Create account", authView{})
}

func (s *WebServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	req := user.RegisterRequest{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
		Name:     strings.TrimSpace(r.PostFormValue("name")),
	}

	resp, err := s.services.Users.Register(r.Context(), req)
	s.notify(r, appuser.RegisterNotice(err))
	if err != nil {
		s.renderPage(w, r, http.StatusOK, "register", "Create account", authView{Email: req.Email, Name: req.Name})
		return
	}

	if err := s.updateSession(r, func(sess *session.Session) error {
		sess.SetAuth(resp.AccessToken, resp.User)
		sess.UI.OnboardingOpen = !sess.OnboardingSeen()
		return nil
	}); err != nil {
		s.renderError(w, r, http.StatusInternalServerError, "We could not sign you in. Please try again.")
		return
	}
	s.redirect(w, r, "/")
}

func (s *WebServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	sc := scope(r)
	_ = s.updateSession(r, func(sess *session.Session) error {
		sess.Logout()
		sess.ClearForm(generateFormKey)
		return nil
	})
	if err := s.services.Queries.Invalidate(r.Context(), cookbook.Key(sc)); err != nil {
		s.logger.Warn("Failed to drop cookbook cache", zap.Error(err))
	}
	s.redirect(w, r, "/")
}
