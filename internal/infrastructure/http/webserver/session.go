package webserver

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/pantrypilot/web/internal/domain/notice"
	"github.com/pantrypilot/web/internal/infrastructure/security"
	"github.com/pantrypilot/web/internal/infrastructure/session"
	apperrors "github.com/pantrypilot/web/pkg/errors"
)

// sessionMiddleware loads or creates the visitor's session
func (s *WebServer) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, created, err := s.sessions.GetOrCreate(r)
		if err != nil {
			s.logger.Error("Failed to load session", zap.Error(err))
			s.renderError(w, r, http.StatusInternalServerError, "We could not start your session.")
			return
		}
		if created {
			s.sessions.SetCookie(w, sess)
		}
		next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), sess)))
	})
}

// currentSession returns the request's session, nil outside the session
// middleware
func currentSession(r *http.Request) *session.Session {
	sess, _ := session.FromContext(r.Context())
	return sess
}

// updateSession applies fn to the stored session and refreshes the copy
// held by the request
func (s *WebServer) updateSession(r *http.Request, fn func(*session.Session) error) error {
	cur := currentSession(r)
	if cur == nil {
		return session.ErrNotFound
	}
	updated, err := s.sessions.Update(r.Context(), cur.ID, fn)
	if err != nil {
		s.logger.Warn("Failed to update session", zap.String("session_id", cur.ID), zap.Error(err))
		return err
	}
	*cur = *updated
	return nil
}

// notify queues a toast for the next render
func (s *WebServer) notify(r *http.Request, n notice.Notice) {
	_ = s.updateSession(r, func(sess *session.Session) error {
		sess.Notify(n)
		return nil
	})
}

// drainToasts takes the pending toasts out of the session
func (s *WebServer) drainToasts(r *http.Request) []session.Notification {
	cur := currentSession(r)
	if cur == nil || len(cur.UI.Notifications) == 0 {
		return nil
	}
	var toasts []session.Notification
	_ = s.updateSession(r, func(sess *session.Session) error {
		toasts = sess.DrainNotifications()
		return nil
	})
	return toasts
}

// token returns the stored API token of the request's session
func token(r *http.Request) string {
	if sess := currentSession(r); sess != nil {
		return sess.Token()
	}
	return ""
}

// scope returns the cache scope of the request's session
func scope(r *http.Request) string {
	if sess := currentSession(r); sess != nil {
		return sess.ID
	}
	return ""
}

// requireAuth sends signed-out visitors to the login page
func (s *WebServer) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := currentSession(r)
		if sess != nil && sess.IsAuthenticated() {
			next.ServeHTTP(w, r)
			return
		}
		page := currentPage(r)
		if isAuthPage(page) {
			page = "/"
		}
		s.redirect(w, r, loginURL(page))
	})
}

// csrfMiddleware rejects state-changing requests without a valid token
func (s *WebServer) csrfMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if security.SafeMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		sess := currentSession(r)
		if sess != nil && s.csrf.Valid(sess.ID, security.RequestToken(r)) {
			next.ServeHTTP(w, r)
			return
		}

		s.logger.Warn("CSRF token validation failed",
			zap.String("path", r.URL.Path),
			zap.String("method", r.Method),
		)
		if isHTMX(r) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`<div class="error">Security validation failed. Please refresh the page and try again.</div>`))
			return
		}
		s.renderError(w, r, http.StatusForbidden, "Security validation failed. Please refresh the page and try again.")
	})
}

// authGate records whether an API call made while serving a request was
// answered with 401 somewhere a login redirect is wanted
type authGate struct {
	page string

	mu       sync.Mutex
	redirect bool
}

type gateKey struct{}

// unauthorizedGate attaches an authGate to each request
func (s *WebServer) unauthorizedGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gate := &authGate{page: currentPage(r)}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), gateKey{}, gate)))
	})
}

// onUnauthorized is the API client's 401 hook. On the login and register
// pages a 401 is an ordinary failed attempt and never redirects. Auth state
// is left untouched.
func (s *WebServer) onUnauthorized(ctx context.Context, err *apperrors.AppError) {
	gate, ok := ctx.Value(gateKey{}).(*authGate)
	if !ok {
		return
	}
	if isAuthPage(gate.page) {
		s.logger.Debug("Unauthorized on auth page", zap.String("page", gate.page), zap.Error(err))
		return
	}
	gate.mu.Lock()
	gate.redirect = true
	gate.mu.Unlock()
}

// loginRedirect sends the visitor to the login page when the request's API
// calls hit a 401 and reports whether it did
func (s *WebServer) loginRedirect(w http.ResponseWriter, r *http.Request) bool {
	gate, ok := r.Context().Value(gateKey{}).(*authGate)
	if !ok {
		return false
	}
	gate.mu.Lock()
	redirect := gate.redirect
	gate.mu.Unlock()
	if !redirect {
		return false
	}
	s.redirect(w, r, loginURL(gate.page))
	return true
}

// redirect navigates the browser, using HX-Redirect for HTMX requests
func (s *WebServer) redirect(w http.ResponseWriter, r *http.Request, target string) {
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// isHTMX reports whether the request was issued by htmx
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// currentPage returns the path and query of the page the visitor is on.
// HTMX requests report it in HX-Current-URL.
func currentPage(r *http.Request) string {
	if isHTMX(r) {
		for _, h := range []string{"HX-Current-URL", "Referer"} {
			if u, err := url.Parse(r.Header.Get(h)); err == nil && u.Path != "" {
				return u.RequestURI()
			}
		}
	}
	return r.URL.RequestURI()
}

// isAuthPage reports whether page is the login or register page
func isAuthPage(page string) bool {
	path := page
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	return path == "/login" || path == "/register"
}

// safeRedirect returns target when it is a local path, else "/"
func safeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/"
	}
	if isAuthPage(target) {
		return "/"
	}
	return target
}
