package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pantrypilot/web/internal/domain/notice"
	"github.com/pantrypilot/web/internal/domain/user"
	"github.com/pantrypilot/web/internal/infrastructure/config"
	"github.com/pantrypilot/web/test/testutils"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	s, err := newSession(time.Hour)
	require.NoError(t, err)
	return s
}

func TestSession_AuthStore(t *testing.T) {
	s := newTestSession(t)
	assert.False(t, s.IsAuthenticated())
	assert.Empty(t, s.Token())

	u := user.User{ID: "u1", Email: "cook@example.com", Name: "Cook"}
	s.SetAuth("tok", u)

	assert.True(t, s.IsAuthenticated())
	assert.Equal(t, "tok", s.Token())
	got, ok := s.User()
	require.True(t, ok)
	assert.Equal(t, "Cook", got.Name)

	assert.JSONEq(t,
		`{"state":{"token":"tok","user":{"id":"u1","email":"cook@example.com","name":"Cook","createdAt":"0001-01-01T00:00:00Z"},"isAuthenticated":true},"version":0}`,
		s.Storage[AuthStorageKey])

	s.SetUser(user.User{ID: "u1", Email: "cook@example.com", Name: "Chef"})
	assert.Equal(t, "tok", s.Token())
	got, _ = s.User()
	assert.Equal(t, "Chef", got.Name)
}

func TestSession_LegacyTokenFallback(t *testing.T) {
	s := newTestSession(t)
	s.Storage[LegacySessionKey] = "legacy-token"

	assert.Equal(t, "legacy-token", s.Token())
	assert.False(t, s.IsAuthenticated())

	s.SetAuth("fresh", user.User{ID: "u1"})
	assert.Equal(t, "fresh", s.Token())

	s.Logout()
	assert.Empty(t, s.Token())
	assert.NotContains(t, s.Storage, LegacySessionKey)
	assert.False(t, s.Auth().IsAuthenticated)
}

func TestSession_CorruptAuthReadsSignedOut(t *testing.T) {
	s := newTestSession(t)
	s.Storage[AuthStorageKey] = "{not json"
	assert.False(t, s.IsAuthenticated())
	assert.Empty(t, s.Token())
}

func TestSession_Onboarding(t *testing.T) {
	s := newTestSession(t)
	assert.False(t, s.ShouldShowOnboarding(), "anonymous visitors never see onboarding")

	s.SetAuth("tok", user.User{ID: "u1"})
	assert.True(t, s.ShouldShowOnboarding())

	s.UI.OnboardingOpen = true
	s.DismissOnboarding()
	assert.False(t, s.UI.OnboardingOpen)
	assert.True(t, s.OnboardingSeen())
	assert.False(t, s.ShouldShowOnboarding())
}

func TestSession_NotificationsAreBounded(t *testing.T) {
	s := newTestSession(t)
	for i := 0; i < maxNotifications+3; i++ {
		s.Notify(notice.New(notice.Info, "toast", ""))
	}
	s.Notify(notice.New(notice.Success, "last", "done"))

	drained := s.DrainNotifications()
	require.Len(t, drained, maxNotifications)
	assert.Equal(t, "last", drained[len(drained)-1].Title)
	assert.Empty(t, s.DrainNotifications())
}

func TestSession_Forms(t *testing.T) {
	s := newTestSession(t)

	type step struct {
		Step  int      `json:"step"`
		Items []string `json:"items"`
	}
	var got step
	ok, err := s.LoadForm("generate", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SaveForm("generate", step{Step: 2, Items: []string{"rice"}}))
	ok, err = s.LoadForm("generate", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, got.Step)

	s.ClearForm("generate")
	ok, _ = s.LoadForm("generate", &got)
	assert.False(t, ok)
}

func TestMemoryBackend(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend(zap.NewNop())

	s := newTestSession(t)
	require.NoError(t, b.Save(ctx, s))

	loaded, err := b.Load(ctx, s.ID)
	require.NoError(t, err)
	loaded.Storage["x"] = "mutated"

	again, err := b.Load(ctx, s.ID)
	require.NoError(t, err)
	assert.NotContains(t, again.Storage, "x", "loaded sessions are copies")

	updated, err := b.Update(ctx, s.ID, func(s *Session) error {
		s.SetAuth("tok", user.User{ID: "u1"})
		return nil
	})
	require.NoError(t, err)
	assert.True(t, updated.IsAuthenticated())

	failing := errors.New("boom")
	_, err = b.Update(ctx, s.ID, func(s *Session) error {
		s.Logout()
		return failing
	})
	assert.ErrorIs(t, err, failing)
	again, _ = b.Load(ctx, s.ID)
	assert.True(t, again.IsAuthenticated(), "failed updates are discarded")

	require.NoError(t, b.Delete(ctx, s.ID))
	_, err = b.Load(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryBackend_Sweep(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend(zap.NewNop())

	live := newTestSession(t)
	dead := newTestSession(t)
	dead.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, b.Save(ctx, live))
	require.NoError(t, b.Save(ctx, dead))

	assert.Equal(t, 1, b.Sweep())
	assert.Equal(t, 1, b.Count())

	_, err := b.Update(ctx, dead.ID, func(*Session) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisBackend(t *testing.T) {
	client := testutils.StartRedis(t)
	ctx := context.Background()
	b := NewRedisBackend(client, "test")

	s := newTestSession(t)
	s.Storage[OnboardingSeenKey] = "true"
	require.NoError(t, b.Save(ctx, s))

	loaded, err := b.Load(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, loaded.OnboardingSeen())

	ttl, err := client.TTL(ctx, "test:session:"+s.ID).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)

	_, err = b.Update(ctx, s.ID, func(s *Session) error {
		s.SetAuth("tok", user.User{ID: "u1"})
		return nil
	})
	require.NoError(t, err)
	loaded, err = b.Load(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "tok", loaded.Token())

	require.NoError(t, b.Delete(ctx, s.ID))
	_, err = b.Load(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = b.Update(ctx, "missing", func(*Session) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Cookies(t *testing.T) {
	cfg := &config.Config{Session: config.SessionConfig{CookieName: "sid", TTL: time.Hour, Secure: true}}
	store := NewStore(NewMemoryBackend(zap.NewNop()), cfg, zap.NewNop())

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, created, err := store.GetOrCreate(r)
	require.NoError(t, err)
	assert.True(t, created)

	w := httptest.NewRecorder()
	store.SetCookie(w, sess)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, "sid", c.Name)
	assert.Equal(t, sess.ID, c.Value)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(c)
	again, created, err := store.GetOrCreate(r)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, sess.ID, again.ID)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "sid", Value: "stale"})
	fresh, created, err := store.GetOrCreate(r)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, "stale", fresh.ID)

	w = httptest.NewRecorder()
	store.ClearCookie(w)
	assert.Equal(t, -1, w.Result().Cookies()[0].MaxAge)
}

func TestContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	s := newTestSession(t)
	got, ok := FromContext(WithSession(context.Background(), s))
	require.True(t, ok)
	assert.Same(t, s, got)
}
