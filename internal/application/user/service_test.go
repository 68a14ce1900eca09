package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pantrypilot/web/internal/domain/notice"
	"github.com/pantrypilot/web/internal/domain/user"
	"github.com/pantrypilot/web/internal/infrastructure/apiclient"
	"github.com/pantrypilot/web/internal/infrastructure/config"
	"github.com/pantrypilot/web/internal/infrastructure/security"
	"github.com/pantrypilot/web/test/testutils"
)

func newService(t *testing.T, api *testutils.FakeAPI) *UserService {
	t.Helper()
	client := apiclient.New(&config.Config{API: config.APIConfig{BaseURL: api.URL()}}, zap.NewNop(), nil)
	return NewUserService(client, security.NewValidator(zap.NewNop()), zap.NewNop())
}

func TestLogin(t *testing.T) {
	api := testutils.NewFakeAPI(t, 0)
	svc := newService(t, api)

	resp, err := svc.Login(context.Background(), user.LoginRequest{Email: testutils.FakeEmail, Password: testutils.FakePassword})
	require.NoError(t, err)
	assert.Equal(t, testutils.FakeToken, resp.AccessToken)
	assert.Equal(t, "Welcome back!", LoginNotice(nil).Title)

	_, err = svc.Login(context.Background(), user.LoginRequest{Email: testutils.FakeEmail, Password: "nope"})
	require.Error(t, err)
	n := LoginNotice(err)
	assert.Equal(t, notice.Error, n.Kind)
	assert.Equal(t, "Invalid credentials", n.Description)

	_, err = svc.Login(context.Background(), user.LoginRequest{Email: "not-an-email", Password: "x"})
	require.Error(t, err)
	assert.Equal(t, 2, api.CallCount("POST /auth/login"), "invalid forms never reach the API")
}

func TestRegister_SignsIn(t *testing.T) {
	api := testutils.NewFakeAPI(t, 0)
	svc := newService(t, api)

	resp, err := svc.Register(context.Background(), user.RegisterRequest{Email: "new@example.com", Password: "secret1", Name: "New"})
	require.NoError(t, err)
	assert.Equal(t, testutils.FakeToken, resp.AccessToken)
	assert.Equal(t, "New", resp.User.Name)
	assert.Equal(t, 1, api.CallCount("POST /auth/register"))
	assert.Equal(t, 1, api.CallCount("POST /auth/login"))

	_, err = svc.Register(context.Background(), user.RegisterRequest{Email: "new@example.com", Password: "secret1"})
	require.Error(t, err)
	assert.Equal(t, "Email already registered", RegisterNotice(err).Description)
}

func TestUpdateName(t *testing.T) {
	api := testutils.NewFakeAPI(t, 0)
	svc := newService(t, api)
	current := api.User()

	_, err := svc.UpdateName(context.Background(), testutils.FakeToken, current, "   ")
	assert.ErrorIs(t, err, user.ErrNameRequired)
	assert.Equal(t, "Name cannot be empty", NameNotice(err).Title)

	updated, err := svc.UpdateName(context.Background(), testutils.FakeToken, current, " Chef ")
	require.NoError(t, err)
	assert.Equal(t, "Chef", updated.Name)
	assert.Equal(t, "Profile updated successfully", NameNotice(nil).Title)
}

func TestChangePassword(t *testing.T) {
	api := testutils.NewFakeAPI(t, 0)
	svc := newService(t, api)
	ctx := context.Background()

	tests := []struct {
		name                   string
		current, next, confirm string
		title                  string
	}{
		{"missing current", "", "secret12", "secret12", "Current password is required"},
		{"too short", testutils.FakePassword, "abc", "abc", "New password must be at least 6 characters"},
		{"mismatch", testutils.FakePassword, "secret12", "secret13", "Passwords do not match"},
		{"wrong current", "wrong", "secret12", "secret12", "Failed to change password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.ChangePassword(ctx, testutils.FakeToken, tt.current, tt.next, tt.confirm)
			require.Error(t, err)
			assert.Equal(t, tt.title, PasswordNotice(err).Title)
		})
	}
	assert.Equal(t, 1, api.CallCount("PATCH /auth/profile"))

	require.NoError(t, svc.ChangePassword(ctx, testutils.FakeToken, testutils.FakePassword, "secret12", "secret12"))
	assert.Equal(t, "Password changed successfully", PasswordNotice(nil).Title)
}
