// Package session provides server-side browser sessions holding the auth
// store and UI store of each visitor
package session

import (
	"encoding/json"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/pantrypilot/web/internal/domain/notice"
	"github.com/pantrypilot/web/internal/domain/user"
)

// Fixed storage keys
const (
	AuthStorageKey    = "auth-storage"
	LegacySessionKey  = "pantrypilot_session"
	OnboardingSeenKey = "pantrypilot-onboarding-seen"
)

// maxNotifications bounds the pending toast queue
const maxNotifications = 10

// Session represents a browser session. Storage holds the persisted
// key/value entries; UI holds transient interface state.
type Session struct {
	ID        string            `json:"id"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at"`
	Storage   map[string]string `json:"storage"`
	UI        UIState           `json:"ui"`
}

// UIState is the UI store: onboarding visibility, pending toasts and the
// serialized state of multi-step forms.
type UIState struct {
	OnboardingOpen bool                       `json:"onboarding_open"`
	Notifications  []Notification             `json:"notifications,omitempty"`
	Forms          map[string]json.RawMessage `json:"forms,omitempty"`
}

// Notification is a queued toast
type Notification struct {
	ID string `json:"id"`
	notice.Notice
}

// AuthState is the auth store
type AuthState struct {
	Token           string     `json:"token,omitempty"`
	User            *user.User `json:"user,omitempty"`
	IsAuthenticated bool       `json:"isAuthenticated"`
}

// persistedAuth is the envelope stored under AuthStorageKey
type persistedAuth struct {
	State   AuthState `json:"state"`
	Version int       `json:"version"`
}

// newSession creates an empty session expiring after ttl
func newSession(ttl time.Duration) (*Session, error) {
	id, err := gonanoid.New(32)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &Session{
		ID:        id,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		Storage:   make(map[string]string),
	}, nil
}

// Expired reports whether the session has passed its expiry
func (s *Session) Expired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Auth returns the auth store. Corrupt entries read as signed out.
func (s *Session) Auth() AuthState {
	raw, ok := s.Storage[AuthStorageKey]
	if !ok {
		return AuthState{}
	}
	var p persistedAuth
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return AuthState{}
	}
	return p.State
}

func (s *Session) setAuthState(state AuthState) {
	if s.Storage == nil {
		s.Storage = make(map[string]string)
	}
	data, _ := json.Marshal(persistedAuth{State: state})
	s.Storage[AuthStorageKey] = string(data)
}

// Token returns the stored access token, falling back to the legacy session
// key when the auth store holds none
func (s *Session) Token() string {
	if token := s.Auth().Token; token != "" {
		return token
	}
	return strings.TrimSpace(s.Storage[LegacySessionKey])
}

// IsAuthenticated reports whether the auth store is signed in
func (s *Session) IsAuthenticated() bool {
	a := s.Auth()
	return a.IsAuthenticated && a.Token != ""
}

// User returns the signed-in user
func (s *Session) User() (user.User, bool) {
	a := s.Auth()
	if a.User == nil {
		return user.User{}, false
	}
	return *a.User, true
}

// SetAuth signs the session in
func (s *Session) SetAuth(token string, u user.User) {
	s.setAuthState(AuthState{Token: token, User: &u, IsAuthenticated: true})
}

// SetUser replaces the stored user and keeps the token
func (s *Session) SetUser(u user.User) {
	a := s.Auth()
	a.User = &u
	s.setAuthState(a)
}

// ClearAuth empties the auth store
func (s *Session) ClearAuth() {
	s.setAuthState(AuthState{})
}

// Logout empties the auth store and removes the legacy token key
func (s *Session) Logout() {
	s.ClearAuth()
	delete(s.Storage, LegacySessionKey)
}

// OnboardingSeen reports whether onboarding was dismissed
func (s *Session) OnboardingSeen() bool {
	return s.Storage[OnboardingSeenKey] == "true"
}

// DismissOnboarding hides onboarding and remembers the dismissal
func (s *Session) DismissOnboarding() {
	if s.Storage == nil {
		s.Storage = make(map[string]string)
	}
	s.Storage[OnboardingSeenKey] = "true"
	s.UI.OnboardingOpen = false
}

// ShouldShowOnboarding reports whether a signed-in visitor still needs the
// onboarding dialog
func (s *Session) ShouldShowOnboarding() bool {
	return s.IsAuthenticated() && !s.OnboardingSeen()
}

// Notify queues a toast. The oldest toasts are dropped past the limit.
func (s *Session) Notify(n notice.Notice) {
	id, err := gonanoid.New(10)
	if err != nil {
		id = n.Title
	}
	s.UI.Notifications = append(s.UI.Notifications, Notification{ID: id, Notice: n})
	if n := len(s.UI.Notifications); n > maxNotifications {
		s.UI.Notifications = s.UI.Notifications[n-maxNotifications:]
	}
}

// DrainNotifications returns and clears pending toasts
func (s *Session) DrainNotifications() []Notification {
	out := s.UI.Notifications
	s.UI.Notifications = nil
	return out
}

// LoadForm decodes saved form state into v. ok is false when nothing is saved.
func (s *Session) LoadForm(name string, v interface{}) (bool, error) {
	raw, ok := s.UI.Forms[name]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, err
	}
	return true, nil
}

// SaveForm stores form state under name
func (s *Session) SaveForm(name string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if s.UI.Forms == nil {
		s.UI.Forms = make(map[string]json.RawMessage)
	}
	s.UI.Forms[name] = data
	return nil
}

// ClearForm removes saved form state
func (s *Session) ClearForm(name string) {
	delete(s.UI.Forms, name)
}

// clone returns a deep copy so callers can mutate without racing readers
func (s *Session) clone() *Session {
	data, _ := json.Marshal(s)
	var out Session
	_ = json.Unmarshal(data, &out)
	if out.Storage == nil {
		out.Storage = make(map[string]string)
	}
	return &out
}
