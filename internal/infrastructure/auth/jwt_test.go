package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/grocery/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-chars",
		RefreshSecret:          "test-refresh-secret-key-32-chars",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "test-issuer",
		MaxRefreshCount:        3,
	})
}

func newTestInput() GenerateTokenInput {
	return GenerateTokenInput{
		UserID:   uuid.New(),
		Username: "john_doe",
		Role:     "customer",
	}
}

func TestNewJWTService_UsesSecretForRefreshIfNotProvided(t *testing.T) {
	svc := NewJWTService(config.JWTConfig{Secret: "test-secret"})
	assert.Equal(t, []byte("test-secret"), svc.refreshSecret)
}

func TestGenerateTokenPair(t *testing.T) {
	svc := newTestJWTService()

	pair, err := svc.GenerateTokenPair(newTestInput())

	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.True(t, pair.RefreshTokenExpiresAt.After(pair.AccessTokenExpiresAt))
}

func TestValidateAccessToken(t *testing.T) {
	svc := newTestJWTService()
	input := newTestInput()
	pair, err := svc.GenerateTokenPair(input)
	require.NoError(t, err)

	t.Run("carries role and username claims", func(t *testing.T) {
		claims, err := svc.ValidateAccessToken(pair.AccessToken)

		require.NoError(t, err)
		assert.Equal(t, input.UserID.String(), claims.UserID)
		assert.Equal(t, "john_doe", claims.Username)
		assert.Equal(t, "customer", claims.Role)
		assert.Equal(t, TokenTypeAccess, claims.TokenType)
		assert.False(t, claims.IsAdmin())
		assert.NotEmpty(t, claims.ID)

		userID, err := claims.GetUserUUID()
		require.NoError(t, err)
		assert.Equal(t, input.UserID, userID)
	})

	t.Run("rejects refresh token", func(t *testing.T) {
		_, err := svc.ValidateAccessToken(pair.RefreshToken)
		assert.Error(t, err)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := svc.ValidateAccessToken("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects token signed with another secret", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{Secret: "another-secret-key-at-least-32-chars", Issuer: "test-issuer", AccessTokenExpiration: time.Minute})
		otherPair, err := other.GenerateTokenPair(input)
		require.NoError(t, err)

		_, err = svc.ValidateAccessToken(otherPair.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects other issuer", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{Secret: "test-secret-key-at-least-32-chars", Issuer: "elsewhere", AccessTokenExpiration: time.Minute})
		otherPair, err := other.GenerateTokenPair(input)
		require.NoError(t, err)

		_, err = svc.ValidateAccessToken(otherPair.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestValidateAccessToken_ExpiredToken(t *testing.T) {
	svc := newTestJWTService()
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    svc.issuer,
			Audience:  jwt.ClaimStrings{svc.issuer},
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now.Add(-2 * time.Hour)),
		},
		UserID:    uuid.New().String(),
		TokenType: TokenTypeAccess,
	}
	token, err := svc.generateToken(claims, svc.accessSecret)
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateAccessToken_MissingUserID(t *testing.T) {
	svc := newTestJWTService()
	claims := svc.newClaims(GenerateTokenInput{Username: "x"}, TokenTypeAccess, time.Now(), time.Minute)
	claims.UserID = ""
	token, err := svc.generateToken(claims, svc.accessSecret)
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrMissingUserID)
}

func TestValidateRefreshToken(t *testing.T) {
	svc := newTestJWTService()
	pair, err := svc.GenerateTokenPair(newTestInput())
	require.NoError(t, err)

	claims, err := svc.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, claims.TokenType)
	assert.Equal(t, "customer", claims.Role)
	assert.Equal(t, 0, claims.RefreshCount)

	_, err = svc.ValidateRefreshToken(pair.AccessToken)
	assert.Error(t, err)
}

func TestCheckRefreshAllowed(t *testing.T) {
	svc := newTestJWTService()
	input := newTestInput()

	for count := 0; count <= 3; count++ {
		input.RefreshCount = count
		pair, err := svc.GenerateTokenPair(input)
		require.NoError(t, err)
		claims, err := svc.ValidateRefreshToken(pair.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, count, claims.RefreshCount)

		if count < 3 {
			assert.NoError(t, svc.CheckRefreshAllowed(claims), "refresh %d", count)
		} else {
			assert.ErrorIs(t, svc.CheckRefreshAllowed(claims), ErrMaxRefreshExceeded)
		}
	}

	t.Run("zero means unlimited", func(t *testing.T) {
		unlimited := NewJWTService(config.JWTConfig{Secret: "unlimited-refresh-secret-32-chars!"})
		assert.NoError(t, unlimited.CheckRefreshAllowed(&Claims{RefreshCount: 1000}))
	})
}

func TestClaims_GetRemainingTTL(t *testing.T) {
	assert.Equal(t, time.Duration(0), (&Claims{}).GetRemainingTTL())

	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}}
	assert.Greater(t, claims.GetRemainingTTL(), 59*time.Minute)
	assert.True(t, claims.GetIssuedAtTime().IsZero())
}
