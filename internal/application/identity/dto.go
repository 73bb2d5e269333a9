package identity

import (
	"time"

	"github.com/google/uuid"
)

// LoginInput contains the input for user login
type LoginInput struct {
	Username string
	Password string
}

// LoginResult contains the result of a successful login
type LoginResult struct {
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
	TokenType             string
	Role                  string
	Username              string
	UserID                uuid.UUID
}

// RefreshTokenInput contains the input for token refresh
type RefreshTokenInput struct {
	RefreshToken string
}

// RefreshTokenResult contains the result of a token refresh
type RefreshTokenResult struct {
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
	TokenType             string
}

// RegisterInput contains the input for customer self-registration
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// RegisterResult is returned after a successful registration
type RegisterResult struct {
	ID       uuid.UUID
	Username string
	Email    string
	Role     string
	Message  string
}

// LogoutInput contains the input for user logout
type LogoutInput struct {
	UserID uuid.UUID
	// TokenJTI and TokenTTL identify the presented access token
	TokenJTI string
	TokenTTL time.Duration
	// RefreshToken is revoked too when provided
	RefreshToken string
}

// UserInfo contains the current user's public fields
type UserInfo struct {
	ID        uuid.UUID
	Username  string
	Email     string
	FirstName string
	LastName  string
	Role      string
}

// AccountInfo is the admin view of a user account
type AccountInfo struct {
	ID          uuid.UUID
	Username    string
	Email       string
	FirstName   string
	LastName    string
	Role        string
	Status      string
	LastLoginAt *time.Time
}
