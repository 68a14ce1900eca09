package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pantrypilot/web/internal/infrastructure/config"
)

// Store issues session cookies and persists sessions through a Backend
type Store struct {
	backend Backend
	cfg     config.SessionConfig
	logger  *zap.Logger
}

// NewStore creates a session store
func NewStore(backend Backend, cfg *config.Config, logger *zap.Logger) *Store {
	sc := cfg.Session
	if sc.CookieName == "" {
		sc.CookieName = "pantrypilot_sid"
	}
	if sc.TTL <= 0 {
		sc.TTL = 7 * 24 * time.Hour
	}
	return &Store{backend: backend, cfg: sc, logger: logger}
}

// CookieName returns the session cookie name
func (s *Store) CookieName() string {
	return s.cfg.CookieName
}

// Get retrieves the session referenced by the request cookie
func (s *Store) Get(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(s.cfg.CookieName)
	if err != nil || cookie.Value == "" {
		return nil, ErrNotFound
	}
	return s.backend.Load(r.Context(), cookie.Value)
}

// New creates and persists a fresh session
func (s *Store) New(ctx context.Context) (*Session, error) {
	sess, err := newSession(s.cfg.TTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}
	if err := s.backend.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// GetOrCreate returns the request's session, creating one when the cookie
// is missing or stale. created reports whether a cookie must be issued.
func (s *Store) GetOrCreate(r *http.Request) (sess *Session, created bool, err error) {
	sess, err = s.Get(r)
	if err == nil {
		return sess, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		s.logger.Warn("Session backend read failed", zap.Error(err))
	}
	sess, err = s.New(r.Context())
	if err != nil {
		return nil, false, err
	}
	return sess, true, nil
}

// Update applies fn to the stored session atomically and returns the result
func (s *Store) Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	return s.backend.Update(ctx, id, fn)
}

// Delete removes a session
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.backend.Delete(ctx, id)
}

// SetCookie writes the session cookie
func (s *Store) SetCookie(w http.ResponseWriter, sess *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  sess.ExpiresAt,
		MaxAge:   int(time.Until(sess.ExpiresAt).Seconds()),
	})
}

// ClearCookie expires the session cookie
func (s *Store) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

type contextKey struct{}

// WithSession stores the request's session in ctx
func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, sess)
}

// FromContext returns the request's session
func FromContext(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(contextKey{}).(*Session)
	return sess, ok
}
