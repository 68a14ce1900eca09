package webserver

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	appuser "github.com/pantrypilot/web/internal/application/user"
	"github.com/pantrypilot/web/internal/domain/user"
	"github.com/pantrypilot/web/internal/infrastructure/session"
)

// sessionUser returns the signed-in user stored in the session
func sessionUser(r *http.Request) user.User {
	if sess := currentSession(r); sess != nil {
		u, _ := sess.User()
		return u
	}
	return user.User{}
}

// handleProfile refreshes the stored user from the API before rendering
func (s *WebServer) handleProfile(w http.ResponseWriter, r *http.Request) {
	u := sessionUser(r)
	fresh, err := s.services.Users.Profile(r.Context(), token(r))
	switch {
	case err == nil:
		u = *fresh
		_ = s.updateSession(r, func(sess *session.Session) error {
			sess.SetUser(u)
			return nil
		})
	case s.loginRedirect(w, r):
		return
	default:
		s.logger.Debug("Profile refresh failed", zap.Error(err))
	}

	s.renderPage(w, r, http.StatusOK, "profile", "Profile", profileView{User: u, Name: u.Name})
}

func (s *WebServer) handleUpdateName(w http.ResponseWriter, r *http.Request) {
	current := sessionUser(r)
	name := r.PostFormValue("name")

	updated, err := s.services.Users.UpdateName(r.Context(), token(r), current, name)
	switch {
	case errors.Is(err, user.ErrNameUnchanged):
		s.renderFragment(w, r, http.StatusOK, "profile-name", profileView{User: current, Name: current.Name})
		return
	case err != nil:
		if s.apiFailure(w, r, err, appuser.NameNotice(err)) {
			return
		}
		s.renderFragment(w, r, http.StatusOK, "profile-name", profileView{User: current, Name: name})
		return
	}

	_ = s.updateSession(r, func(sess *session.Session) error {
		sess.SetUser(*updated)
		return nil
	})
	s.notify(r, appuser.NameNotice(nil))
	s.renderFragment(w, r, http.StatusOK, "profile-name", profileView{User: *updated, Name: updated.Name})
}

func (s *WebServer) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	view := profileView{
		User:            sessionUser(r),
		CurrentPassword: r.PostFormValue("currentPassword"),
		NewPassword:     r.PostFormValue("newPassword"),
		ConfirmPassword: r.PostFormValue("confirmPassword"),
	}

	err := s.services.Users.ChangePassword(r.Context(), token(r), view.CurrentPassword, view.NewPassword, view.ConfirmPassword)
	if err != nil {
		if s.apiFailure(w, r, err, appuser.PasswordNotice(err)) {
			return
		}
		s.renderFragment(w, r, http.StatusOK, "profile-password", view)
		return
	}

	s.notify(r, appuser.PasswordNotice(nil))
	s.renderFragment(w, r, http.StatusOK, "profile-password", profileView{User: view.User})
}
