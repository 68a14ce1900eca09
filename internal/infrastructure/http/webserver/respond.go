package webserver

import (
	"bytes"
	"net/http"

	"go.uber.org/zap"

	"github.com/pantrypilot/web/internal/domain/notice"
	"github.com/pantrypilot/web/internal/infrastructure/http/middleware"
)

// newPageData fills the layout fields from the request's session
func (s *WebServer) newPageData(r *http.Request, title string, data interface{}) pageData {
	pd := pageData{
		Title: title,
		Path:  r.URL.Path,
		Data:  data,
	}
	if s.services.Status != nil {
		pd.Status = s.services.Status.Snapshot()
	}

	sess := currentSession(r)
	if sess == nil {
		return pd
	}
	pd.CSRFToken = s.csrf.Token(sess.ID)
	pd.SignedIn = sess.IsAuthenticated()
	if u, ok := sess.User(); ok && pd.SignedIn {
		pd.User = &u
	}
	pd.Onboarding = sess.ShouldShowOnboarding()
	pd.Toasts = s.drainToasts(r)
	return pd
}

// renderPage renders a full page. A template failure falls back to the
// error page.
func (s *WebServer) renderPage(w http.ResponseWriter, r *http.Request, status int, name, title string, data interface{}) {
	pd := s.newPageData(r, title, data)

	var buf bytes.Buffer
	if err := s.renderer.Page(&buf, name, pd); err != nil {
		s.logger.Error("Failed to execute template", zap.String("template", name), zap.Error(err))
		if s.metrics != nil {
			s.metrics.RenderError("template")
		}
		s.renderFatal(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderFragment renders an HTMX partial followed by any pending toasts,
// which htmx swaps into the toast region out of band
func (s *WebServer) renderFragment(w http.ResponseWriter, r *http.Request, status int, name string, data interface{}) {
	var buf bytes.Buffer
	if name != "" {
		if err := s.renderer.Fragment(&buf, name, data); err != nil {
			s.logger.Error("Failed to execute fragment", zap.String("template", name), zap.Error(err))
			if s.metrics != nil {
				s.metrics.RenderError("template")
			}
			s.renderFatal(w, r, err)
			return
		}
	}

	if toasts := s.drainToasts(r); len(toasts) > 0 {
		if err := s.renderer.Fragment(&buf, "toasts-oob", toasts); err != nil {
			s.logger.Error("Failed to execute toasts", zap.Error(err))
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderError renders the error page, or an error fragment for HTMX
func (s *WebServer) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	view := errorView{Message: message, Reload: currentPage(r)}
	if isHTMX(r) {
		s.renderFragment(w, r, status, "error-fragment", view)
		return
	}
	s.renderPage(w, r, status, "error", "Something went wrong", view)
}

// renderPanic is the recovery middleware's fallback
func (s *WebServer) renderPanic(w http.ResponseWriter, r *http.Request, err error) {
	if s.metrics != nil {
		s.metrics.RenderError("panic")
	}
	s.renderFatal(w, r, err)
}

// renderFatal shows the apology with the error message and a full reload
// action. It must not depend on the page templates that may have failed.
func (s *WebServer) renderFatal(w http.ResponseWriter, r *http.Request, err error) {
	view := errorView{Message: err.Error(), Reload: currentPage(r)}
	if isHTMX(r) {
		w.Header().Set("HX-Retarget", "body")
		w.Header().Set("HX-Reswap", "innerHTML")
	}

	var buf bytes.Buffer
	if ferr := s.renderer.Fragment(&buf, "fatal", view); ferr != nil {
		s.logger.Error("Failed to render error page",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.Error(ferr),
		)
		http.Error(w, "Something went wrong. Reload Application.", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = buf.WriteTo(w)
}

// apiFailure handles a failed API call: a 401 outside the auth pages
// redirects to login, anything else queues n and reports false so the
// caller renders its own response
func (s *WebServer) apiFailure(w http.ResponseWriter, r *http.Request, err error, n notice.Notice) bool {
	if s.loginRedirect(w, r) {
		return true
	}
	s.logger.Debug("API call failed", zap.String("path", r.URL.Path), zap.Error(err))
	s.notify(r, n)
	return false
}
