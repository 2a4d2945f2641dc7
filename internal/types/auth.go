// Package types holds the data ForgeCV passes between its pipeline, storage and HTTP layers.
package types

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Accounts exist only on the hosted proxy, where they meter AI generation per user. Passwords
// are capped at bcrypt's 72 byte input.

// CreateUserRequest is the body of POST /api/auth/register.
type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,min=1"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Phone    string `json:"phone,omitempty"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// User is the account as the proxy returns it. The password hash never leaves the db package.
type User struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone,omitempty"`
	PasswordSet bool      `json:"password_set"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// LoginResponse answers register and login with the account and a fresh token pair.
type LoginResponse struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// RefreshRequest exchanges a refresh token for a new token pair.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenPair is returned by the refresh endpoint.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// UpdatePasswordRequest is the body of POST /api/auth/password.
type UpdatePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

// validate is shared by every request type in this package; it caches struct metadata.
var validate = validator.New()

// normalizeEmail makes sign-in case-insensitive, since the extension and the web app autofill
// addresses differently.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Normalize trims the submitted fields and lowercases the email before validation.
func (r *CreateUserRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = normalizeEmail(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
}

// Normalize lowercases the email so it matches the stored account.
func (r *LoginRequest) Normalize() {
	r.Email = normalizeEmail(r.Email)
}

func (r *CreateUserRequest) Validate() error { return validate.Struct(r) }

func (r *LoginRequest) Validate() error { return validate.Struct(r) }

func (r *UpdatePasswordRequest) Validate() error { return validate.Struct(r) }

func (r *RefreshRequest) Validate() error { return validate.Struct(r) }
