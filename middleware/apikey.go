package middleware

import (
	"crypto/subtle"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
)

// APIKeyRequired protects the broadcast routes with the X-API-Key
// header. When BROADCAST_API_KEY is not set the routes are closed, not
// open: every request is rejected.
func APIKeyRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		expected := os.Getenv("BROADCAST_API_KEY")
		if expected == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "broadcast API key not configured"})
			return
		}

		provided := c.GetHeader("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
			return
		}
		c.Next()
	}
}
