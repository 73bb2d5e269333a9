package middleware

import (
	"fmt"
	"net/http"
	"net/netip"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/grocery/backend/internal/infrastructure/logger"
	"github.com/grocery/backend/internal/interfaces/http/dto"
)

// SwaggerConfig controls who may read the API documentation
type SwaggerConfig struct {
	Enabled bool
	// RequireAuth demands a valid access token; any role will do
	RequireAuth bool
	// AllowedIPs are addresses or CIDR ranges; empty allows everyone
	AllowedIPs []string
}

// SwaggerProtection guards /swagger. authenticate must not skip the swagger
// paths itself, or RequireAuth lets everyone through. Malformed AllowedIPs
// entries are an error.
func SwaggerProtection(cfg SwaggerConfig, authenticate gin.HandlerFunc) (gin.HandlerFunc, error) {
	allowed, err := parsePrefixes(cfg.AllowedIPs)
	if err != nil {
		return nil, err
	}
	if cfg.RequireAuth && authenticate == nil {
		return nil, fmt.Errorf("swagger: require_auth needs an authenticator")
	}

	return func(c *gin.Context) {
		requestID := c.GetString(logger.GinRequestIDKey)
		if !cfg.Enabled {
			c.AbortWithStatusJSON(http.StatusNotFound, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeNotFound, "API documentation is not available", requestID))
			return
		}

		if len(allowed) > 0 && !addrAllowed(c.ClientIP(), allowed) {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeForbidden, "Access to API documentation is restricted", requestID))
			return
		}

		if cfg.RequireAuth {
			authenticate(c)
			if c.IsAborted() {
				return
			}
		}

		c.Next()
	}, nil
}

// parsePrefixes accepts "10.0.0.0/8" and bare addresses, which become /32 or /128
func parsePrefixes(entries []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			p, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("swagger: invalid allowed_ips entry %q: %w", entry, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("swagger: invalid allowed_ips entry %q: %w", entry, err)
		}
		prefixes = append(prefixes, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
	}
	return prefixes, nil
}

func addrAllowed(clientIP string, allowed []netip.Prefix) bool {
	addr, err := netip.ParseAddr(clientIP)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range allowed {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
