package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"message-service/internal/auth"
	"message-service/internal/observability"
)

// AuthMiddleware validates the bearer token and stores the caller on the context.
func AuthMiddleware(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.TokenFromRequest(c.Request)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		id, err := verifier.ParseToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("userID", id.UserID)
		c.Set("username", id.Username)
		c.Next()
	}
}

// RequestID propagates X-Request-ID, generating one when absent.
func RequestID(generate func() string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = generate()
			c.Request.Header.Set("X-Request-ID", id)
		}
		c.Request = c.Request.WithContext(observability.WithRequestID(c.Request.Context(), id))
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}
