package handler

import (
	"time"

	"github.com/google/uuid"
)

// =====================
// Auth Request DTOs
// =====================

// TokenObtainRequest represents the request body for obtaining a token pair
type TokenObtainRequest struct {
	Username string `json:"username" binding:"required,max=150"`
	Password string `json:"password" binding:"required,max=128"`
}

// TokenRefreshRequest represents the request body for token refresh
type TokenRefreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

// RegisterRequest represents the customer self-registration body.
// Required fields are checked by the service so the error message is fixed.
type RegisterRequest struct {
	Username  string `json:"username" binding:"max=150"`
	Email     string `json:"email" binding:"omitempty,email,max=254"`
	Password  string `json:"password" binding:"max=128"`
	FirstName string `json:"first_name" binding:"max=100"`
	LastName  string `json:"last_name" binding:"max=100"`
}

// LogoutRequest optionally names a refresh token to revoke alongside the access token
type LogoutRequest struct {
	Refresh string `json:"refresh"`
}

// =====================
// Auth Response DTOs
// =====================

// TokenObtainResponse is returned by a successful login
type TokenObtainResponse struct {
	Access           string    `json:"access"`
	Refresh          string    `json:"refresh"`
	Role             string    `json:"role" example:"customer"`
	Username         string    `json:"username"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
	TokenType        string    `json:"token_type" example:"Bearer"`
}

// TokenRefreshResponse is returned by a successful refresh
type TokenRefreshResponse struct {
	Access           string    `json:"access"`
	Refresh          string    `json:"refresh"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
	TokenType        string    `json:"token_type" example:"Bearer"`
}

// RegisterResponse is returned after a customer registers
type RegisterResponse struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Role     string    `json:"role" example:"customer"`
	Message  string    `json:"message" example:"Customer registered successfully"`
}

// CurrentUserResponse represents the authenticated user
type CurrentUserResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      string    `json:"role"`
}

// ChangeRoleRequest sets a user's role
type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=admin customer" example:"admin"`
}

// AccountResponse is the admin view of a user account
type AccountResponse struct {
	ID          uuid.UUID  `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Role        string     `json:"role"`
	Status      string     `json:"status" example:"active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}
