package auth

import (
	"github.com/go-playground/validator/v10"

	"codeberg.org/gatekeep/server/gatekeep/users"
	authsvc "codeberg.org/gatekeep/server/internal/auth"
)

var emailFormat = validator.New()

// RegisterRequest is the payload for password registration. The email has
// no format tag: binding would validate the raw value, and " A@B.com "
// must be accepted and stored as a@b.com, so the format check runs on the
// normalized value in validate instead
type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Name     string `json:"name" binding:"required,max=100"`
}

// canonicalizes the email, then checks the format of what will actually
// be stored
func (r *RegisterRequest) validate() error {
	r.Email = authsvc.NormalizeEmail(r.Email)
	return emailFormat.Var(r.Email, "email")
}

// LoginRequest is the payload for password login; the email is normalized
// by the service before lookup, and a malformed one simply finds no account
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest carries the refresh token to exchange; absence is handled
// by the service, not by binding
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RegisterResponse returned after successful registration
type RegisterResponse struct {
	Message string      `json:"message"`
	User    *users.User `json:"user"`
}

// TokenResponse returned by login and refresh
type TokenResponse struct {
	Message      string `json:"message"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthResponse returned after a successful OAuth callback
type AuthResponse struct {
	Message      string      `json:"message"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         *users.User `json:"user"`
}

// UserResponse wraps user data
type UserResponse struct {
	User *users.User `json:"user"`
}

// MessageResponse for simple success messages
type MessageResponse struct {
	Message string `json:"message"`
}
