package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/grocery/backend/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/api/products", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(logger.GinRequestIDKey))
	})

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"caller id is kept", "checkout-7f3a", true},
		{"longest accepted id", strings.Repeat("a", maxRequestIDLength), true},
		{"missing id", "", false},
		{"too long", strings.Repeat("a", maxRequestIDLength+1), false},
		{"embedded space", "till 4", false},
		{"control character", "till\x7f4", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			echoed := w.Header().Get(RequestIDHeader)
			assert.Equal(t, echoed, w.Body.String(), "context and header disagree")
			if tt.keep {
				assert.Equal(t, tt.incoming, echoed)
				return
			}
			_, err := uuid.Parse(echoed)
			require.NoError(t, err, "replacement id should be a UUID")
		})
	}
}

func TestRequestID_FreshPerRequest(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	seen := make(map[string]bool)
	for range 5 {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		id := w.Header().Get(RequestIDHeader)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}
