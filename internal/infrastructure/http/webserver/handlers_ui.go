package webserver

import (
	"net/http"

	"github.com/pantrypilot/web/internal/infrastructure/session"
)

// handleHTMXStatus renders the backend status badge from the last probe
func (s *WebServer) handleHTMXStatus(w http.ResponseWriter, r *http.Request) {
	s.renderFragment(w, r, http.StatusOK, "status-badge", s.services.Status.Snapshot())
}

// handleHTMXNotifications drains pending toasts
func (s *WebServer) handleHTMXNotifications(w http.ResponseWriter, r *http.Request) {
	s.renderFragment(w, r, http.StatusOK, "toasts", s.drainToasts(r))
}

// handleHTMXDismissOnboarding persists the onboarding-seen flag and removes
// the dialog
func (s *WebServer) handleHTMXDismissOnboarding(w http.ResponseWriter, r *http.Request) {
	if err := s.updateSession(r, func(sess *session.Session) error {
		sess.DismissOnboarding()
		return nil
	}); err != nil {
		s.renderError(w, r, http.StatusInternalServerError, "Could not save your preference.")
		return
	}
	s.renderFragment(w, r, http.StatusOK, "", nil)
}
