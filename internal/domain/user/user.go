// Package user defines the account records exchanged with the auth API
package user

import (
	"errors"
	"strings"
	"time"
)

// Profile form errors
var (
	ErrNameRequired      = errors.New("name cannot be empty")
	ErrNameUnchanged     = errors.New("name is unchanged")
	ErrCurrentPassword   = errors.New("current password is required")
	ErrPasswordTooShort  = errors.New("new password must be at least 6 characters")
	ErrPasswordsMismatch = errors.New("new passwords do not match")
)

// MinPasswordLength is the shortest accepted new password
const MinPasswordLength = 6

// User represents a signed-in account
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// DisplayName returns the name, falling back to the email address
func (u User) DisplayName() string {
	if strings.TrimSpace(u.Name) != "" {
		return u.Name
	}
	return u.Email
}

// Initial returns the upper-cased first letter of the display name
func (u User) Initial() string {
	name := u.DisplayName()
	if name == "" {
		return "?"
	}
	return strings.ToUpper(name[:1])
}

// LoginRequest mirrors LoginDto
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest mirrors RegisterDto
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name,omitempty"`
}

// LoginResponse is returned by login. Register returns the bare User.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}

// UpdateProfileRequest mirrors UpdateProfileDto
type UpdateProfileRequest struct {
	Name            string `json:"name,omitempty"`
	CurrentPassword string `json:"currentPassword,omitempty"`
	NewPassword     string `json:"newPassword,omitempty"`
}

// NameChange builds the request for a display name update.
func NameChange(current User, name string) (UpdateProfileRequest, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return UpdateProfileRequest{}, ErrNameRequired
	}
	if name == current.Name {
		return UpdateProfileRequest{}, ErrNameUnchanged
	}
	return UpdateProfileRequest{Name: name}, nil
}

// PasswordChange builds the request for a password change
func PasswordChange(current, next, confirm string) (UpdateProfileRequest, error) {
	if current == "" {
		return UpdateProfileRequest{}, ErrCurrentPassword
	}
	if len(next) < MinPasswordLength {
		return UpdateProfileRequest{}, ErrPasswordTooShort
	}
	if next != confirm {
		return UpdateProfileRequest{}, ErrPasswordsMismatch
	}
	return UpdateProfileRequest{CurrentPassword: current, NewPassword: next}, nil
}
