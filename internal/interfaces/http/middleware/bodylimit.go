package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/grocery/backend/internal/infrastructure/logger"
	"github.com/grocery/backend/internal/interfaces/http/dto"
)

// BodyLimit rejects declared bodies over maxBytes with 413 and caps the
// reader for chunked ones, so binding fails with *http.MaxBytesError.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			RequestTooLarge(c)
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// RequestTooLarge aborts with the 413 envelope
func RequestTooLarge(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size", c.GetString(logger.GinRequestIDKey)))
}
