package middleware

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/grocery/backend/internal/infrastructure/logger"
	"github.com/grocery/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Roles carried in the access token
const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

// RoleConfig holds configuration for role middleware
type RoleConfig struct {
	Logger *zap.Logger
}

// RequireRole allows the request only when the token carries one of roles
func RequireRole(roles ...string) gin.HandlerFunc {
	return RequireRoleWithConfig(RoleConfig{}, roles...)
}

// RequireAdmin is RequireRole(RoleAdmin)
func RequireAdmin() gin.HandlerFunc {
	return RequireRole(RoleAdmin)
}

// RequireRoleWithConfig creates role middleware with custom config
func RequireRoleWithConfig(cfg RoleConfig, roles ...string) gin.HandlerFunc {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeUnauthorized, "Authentication credentials were not provided", c.GetString(logger.GinRequestIDKey)))
			return
		}

		if !slices.Contains(roles, EffectiveRole(claims.Role)) {
			cfg.Logger.Warn("Role check denied",
				zap.String("user_id", claims.UserID),
				zap.String("role", claims.Role),
				zap.Strings("required_any", roles),
				zap.String("path", c.Request.URL.Path),
			)
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeForbidden, "You do not have permission to perform this action", c.GetString(logger.GinRequestIDKey)))
			return
		}

		c.Next()
	}
}

// EffectiveRole treats a token without a role as a customer
func EffectiveRole(role string) string {
	if role == "" {
		return RoleCustomer
	}
	return role
}

// IsAdmin reports whether the authenticated caller is an admin
func IsAdmin(c *gin.Context) bool {
	return EffectiveRole(GetJWTRole(c)) == RoleAdmin
}
