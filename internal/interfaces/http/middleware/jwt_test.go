package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/grocery/backend/internal/infrastructure/auth"
	"github.com/grocery/backend/internal/infrastructure/config"
	"github.com/grocery/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-chars",
		RefreshSecret:          "test-refresh-secret-key-32-chars",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		Issuer:                 "grocery-test",
		MaxRefreshCount:        10,
	})
}

func newTestTokenPair(t *testing.T, jwtService *auth.JWTService, role string) (*auth.TokenPair, auth.GenerateTokenInput) {
	t.Helper()
	input := auth.GenerateTokenInput{
		UserID:   uuid.New(),
		Username: "john_doe",
		Role:     role,
	}
	pair, err := jwtService.GenerateTokenPair(input)
	require.NoError(t, err)
	return pair, input
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) dto.ErrorInfo {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.False(t, resp.Success)
	return *resp.Error
}

func protectedRouter(cfg JWTMiddlewareConfig, handlers ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(JWTAuthMiddlewareWithConfig(cfg))
	chain := append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetJWTUserID(c), "role": GetJWTRole(c), "username": GetJWTUsername(c)})
	})
	router.GET("/api/products", chain...)
	router.POST("/api/token", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/swagger/index.html", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func doGet(router http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set(AuthHeaderKey, BearerPrefix+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthMiddleware_ValidToken(t *testing.T) {
	jwtService := newTestJWTService()
	pair, input := newTestTokenPair(t, jwtService, RoleCustomer)

	rec := doGet(protectedRouter(DefaultJWTConfig(jwtService)), "/api/products", pair.AccessToken)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, input.UserID.String(), body["user_id"])
	assert.Equal(t, "customer", body["role"])
	assert.Equal(t, "john_doe", body["username"])
}

func TestJWTAuthMiddleware_Rejections(t *testing.T) {
	jwtService := newTestJWTService()
	pair, _ := newTestTokenPair(t, jwtService, RoleCustomer)
	router := protectedRouter(DefaultJWTConfig(jwtService))

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"missing header", "", "UNAUTHORIZED"},
		{"wrong scheme", "Basic abc", "UNAUTHORIZED"},
		{"empty bearer", "Bearer ", "UNAUTHORIZED"},
		{"garbage token", "Bearer not-a-jwt", "TOKEN_INVALID"},
		{"refresh token", "Bearer " + pair.RefreshToken, "TOKEN_INVALID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
			if tt.header != "" {
				req.Header.Set(AuthHeaderKey, tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestJWTAuthMiddleware_ExpiredToken(t *testing.T) {
	expired := auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-chars",
		AccessTokenExpiration:  -time.Minute,
		RefreshTokenExpiration: time.Hour,
		Issuer:                 "grocery-test",
	})
	pair, _ := newTestTokenPair(t, expired, RoleCustomer)

	rec := doGet(protectedRouter(DefaultJWTConfig(expired)), "/api/products", pair.AccessToken)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "TOKEN_EXPIRED", decodeError(t, rec).Code)
}

func TestJWTAuthMiddleware_SkipsPublicPaths(t *testing.T) {
	router := protectedRouter(DefaultJWTConfig(newTestJWTService()))

	req := httptest.NewRequest(http.MethodPost, "/api/token", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusOK, doGet(router, "/swagger/index.html", "").Code)
}

func TestJWTAuthMiddleware_Blacklist(t *testing.T) {
	jwtService := newTestJWTService()
	blacklist := auth.NewInMemoryTokenBlacklist()
	cfg := DefaultJWTConfig(jwtService)
	cfg.TokenBlacklist = blacklist
	router := protectedRouter(cfg)

	pair, _ := newTestTokenPair(t, jwtService, RoleCustomer)
	require.Equal(t, http.StatusOK, doGet(router, "/api/products", pair.AccessToken).Code)

	claims, err := jwtService.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	require.NoError(t, blacklist.RevokeToken(context.Background(), claims.ID, time.Minute))

	rec := doGet(router, "/api/products", pair.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "TOKEN_REVOKED", decodeError(t, rec).Code)
}

type failingBlacklist struct {
	auth.TokenBlacklist
}

func (failingBlacklist) IsTokenRevoked(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func (failingBlacklist) IsUserTokenRevoked(context.Context, string, time.Time) (bool, error) {
	return false, errors.New("redis down")
}

func TestJWTAuthMiddleware_BlacklistFailsOpen(t *testing.T) {
	jwtService := newTestJWTService()
	cfg := DefaultJWTConfig(jwtService)
	cfg.TokenBlacklist = failingBlacklist{}
	pair, _ := newTestTokenPair(t, jwtService, RoleAdmin)

	assert.Equal(t, http.StatusOK, doGet(protectedRouter(cfg), "/api/products", pair.AccessToken).Code)
}

func TestRequireRole(t *testing.T) {
	jwtService := newTestJWTService()
	router := protectedRouter(DefaultJWTConfig(jwtService), RequireAdmin())

	admin, _ := newTestTokenPair(t, jwtService, RoleAdmin)
	assert.Equal(t, http.StatusOK, doGet(router, "/api/products", admin.AccessToken).Code)

	customer, _ := newTestTokenPair(t, jwtService, RoleCustomer)
	rec := doGet(router, "/api/products", customer.AccessToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, dto.ErrCodeForbidden, decodeError(t, rec).Code)

	roleless, _ := newTestTokenPair(t, jwtService, "")
	assert.Equal(t, http.StatusForbidden, doGet(router, "/api/products", roleless.AccessToken).Code)
}

func TestRequireRole_WithoutClaims(t *testing.T) {
	router := gin.New()
	router.GET("/admin", RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := doGet(router, "/admin", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEffectiveRole(t *testing.T) {
	assert.Equal(t, RoleCustomer, EffectiveRole(""))
	assert.Equal(t, RoleAdmin, EffectiveRole(RoleAdmin))
}
