// Package user provides the account use cases: sign in, sign up and
// profile changes
package user

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/pantrypilot/web/internal/domain/notice"
	"github.com/pantrypilot/web/internal/domain/user"
	"github.com/pantrypilot/web/internal/infrastructure/security"
	"github.com/pantrypilot/web/internal/ports/outbound"
	apperrors "github.com/pantrypilot/web/pkg/errors"
)

// UserService implements the account use cases
type UserService struct {
	api       outbound.AuthAPI
	validator *security.Validator
	logger    *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(api outbound.AuthAPI, validator *security.Validator, logger *zap.Logger) *UserService {
	return &UserService{
		api:       api,
		validator: validator,
		logger:    logger.Named("user-service"),
	}
}

// Login exchanges credentials for a token
func (s *UserService) Login(ctx context.Context, req user.LoginRequest) (*user.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	resp, err := s.api.Login(ctx, req)
	if err != nil {
		s.logger.Info("Login failed", zap.String("email", req.Email), zap.Error(err))
		return nil, err
	}

	s.logger.Info("User logged in", zap.String("user_id", resp.User.ID))
	return resp, nil
}

// Register creates the account and signs in with the same credentials
func (s *UserService) Register(ctx context.Context, req user.RegisterRequest) (*user.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	created, err := s.api.Register(ctx, req)
	if err != nil {
		s.logger.Info("Registration failed", zap.String("email", req.Email), zap.Error(err))
		return nil, err
	}
	s.logger.Info("User registered", zap.String("user_id", created.ID))

	return s.api.Login(ctx, user.LoginRequest{Email: req.Email, Password: req.Password})
}

// Profile fetches the current user
func (s *UserService) Profile(ctx context.Context, token string) (*user.User, error) {
	return s.api.GetProfile(ctx, token)
}

// UpdateName changes the display name of current
func (s *UserService) UpdateName(ctx context.Context, token string, current user.User, name string) (*user.User, error) {
	req, err := user.NameChange(current, name)
	if err != nil {
		return nil, err
	}
	updated, err := s.api.UpdateProfile(ctx, token, req)
	if err != nil {
		s.logger.Warn("Profile update failed", zap.String("user_id", current.ID), zap.Error(err))
		return nil, err
	}
	return updated, nil
}

// ChangePassword checks the form locally and submits the change
func (s *UserService) ChangePassword(ctx context.Context, token, currentPassword, newPassword, confirm string) error {
	req, err := user.PasswordChange(currentPassword, newPassword, confirm)
	if err != nil {
		return err
	}
	if _, err := s.api.UpdateProfile(ctx, token, req); err != nil {
		s.logger.Warn("Password change failed", zap.Error(err))
		return err
	}
	return nil
}

// Notices

var formMessages = map[error]string{
	user.ErrNameRequired:      "Name cannot be empty",
	user.ErrCurrentPassword:   "Current password is required",
	user.ErrPasswordTooShort:  "New password must be at least 6 characters",
	user.ErrPasswordsMismatch: "Passwords do not match",
}

// formNotice returns the notice for a locally rejected form, if err is one
func formNotice(err error) (notice.Notice, bool) {
	for target, msg := range formMessages {
		if errors.Is(err, target) {
			return notice.New(notice.Error, msg, ""), true
		}
	}
	return notice.Notice{}, false
}

// LoginNotice returns the notice for a login outcome
func LoginNotice(err error) notice.Notice {
	if err == nil {
		return notice.New(notice.Success, "Welcome back!", "")
	}
	return notice.New(notice.Error, "Login failed", apperrors.UserMessage(err, "Invalid credentials"))
}

// RegisterNotice returns the notice for a registration outcome
func RegisterNotice(err error) notice.Notice {
	if err == nil {
		return notice.New(notice.Success, "Account created successfully!", "")
	}
	return notice.New(notice.Error, "Registration failed", apperrors.UserMessage(err, "Something went wrong"))
}

// NameNotice returns the notice for a name update outcome
func NameNotice(err error) notice.Notice {
	if err == nil {
		return notice.New(notice.Success, "Profile updated successfully", "")
	}
	if n, ok := formNotice(err); ok {
		return n
	}
	return notice.New(notice.Error, "Failed to update profile", apperrors.UserMessage(err, "Something went wrong"))
}

// PasswordNotice returns the notice for a password change outcome
func PasswordNotice(err error) notice.Notice {
	if err == nil {
		return notice.New(notice.Success, "Password changed successfully", "")
	}
	if n, ok := formNotice(err); ok {
		return n
	}
	return notice.New(notice.Error, "Failed to change password", apperrors.UserMessage(err, "Something went wrong"))
}
