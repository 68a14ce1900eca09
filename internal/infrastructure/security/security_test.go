package security

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pantrypilot/web/internal/infrastructure/config"
	"github.com/pantrypilot/web/internal/infrastructure/monitoring"
	apperrors "github.com/pantrypilot/web/pkg/errors"
	"github.com/pantrypilot/web/test/testutils"
)

type profileForm struct {
	Name     string   `json:"name" validate:"required,no_xss"`
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required,min=6"`
	Tags     []string `json:"tags" validate:"max=2,dive,tag"`
}

func TestValidator_Struct(t *testing.T) {
	v := NewValidator(zap.NewNop())

	require.NoError(t, v.Struct(profileForm{Name: "Cook", Email: "cook@example.com", Password: "secret1", Tags: []string{"rice"}}))

	tests := []struct {
		name    string
		form    profileForm
		message string
	}{
		{"missing name", profileForm{Email: "a@b.co", Password: "secret1"}, "name is required"},
		{"bad email", profileForm{Name: "a", Email: "nope", Password: "secret1"}, "Please enter a valid email address"},
		{"short password", profileForm{Name: "a", Email: "a@b.co", Password: "abc"}, "password must be at least 6 characters"},
		{"markup", profileForm{Name: "<b>", Email: "a@b.co", Password: "secret1"}, "name contains unsupported characters"},
		{"too many tags", profileForm{Name: "a", Email: "a@b.co", Password: "secret1", Tags: []string{"a", "b", "c"}}, "tags allows at most 2 items"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.form)
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.CodeValidationFailed))
			assert.Equal(t, tt.message, apperrors.UserMessage(err, ""))
		})
	}
}

func TestCSRF(t *testing.T) {
	c := NewCSRF("secret")
	token := c.Token("session-1")

	assert.True(t, c.Valid("session-1", token))
	assert.False(t, c.Valid("session-2", token))
	assert.False(t, c.Valid("session-1", ""))
	assert.False(t, NewCSRF("other").Valid("session-1", token))

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(CSRFField+"="+token))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	assert.Equal(t, token, RequestToken(r))

	r = httptest.NewRequest(http.MethodPost, "/", nil)
	r.Header.Set(CSRFHeader, "from-header")
	assert.Equal(t, "from-header", RequestToken(r))

	assert.True(t, SafeMethod(http.MethodGet))
	assert.False(t, SafeMethod(http.MethodDelete))
}

func TestRateLimiter(t *testing.T) {
	metrics := monitoring.NewMetricsCollector(zap.NewNop())
	rl := NewRateLimiter(config.RateLimitConfig{RequestsPerMin: 60, BurstSize: 2}, zap.NewNop(), metrics)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(ip string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w
	}

	assert.Equal(t, http.StatusNoContent, do("10.0.0.1").Code)
	assert.Equal(t, http.StatusNoContent, do("10.0.0.1").Code)
	limited := do("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusNoContent, do("10.0.0.2").Code, "buckets are per client")

	assert.Equal(t, 0, rl.Cleanup(time.Hour))
	assert.Equal(t, 2, rl.Cleanup(-time.Second))
}

func TestHeaders(t *testing.T) {
	handler := Headers(true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	resp := w.Result()

	testutils.NewHTTPAssertions(t).SecurityHeaders(resp)
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.NotEmpty(t, resp.Header.Get("Strict-Transport-Security"))
	assert.Contains(t, resp.Header.Get("Cache-Control"), "no-store")

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/static/app.css", nil))
	assert.Contains(t, w.Result().Header.Get("Cache-Control"), "max-age")
}
