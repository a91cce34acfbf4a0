package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/feral-file/entitlement-registry/internal/logger"
)

// AuthConfig holds API authentication configuration
type AuthConfig struct {
	APIKeys []string
}

// APIKeyAuth returns a gin middleware enforcing API key authentication via
// "Authorization: APIKey <key>". With no keys configured the middleware is a
// pass-through, which keeps dev deployments open.
func APIKeyAuth(cfg AuthConfig) gin.HandlerFunc {
	keys := make([]string, 0, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		if k != "" {
			keys = append(keys, k)
		}
	}

	return func(c *gin.Context) {
		if len(keys) == 0 {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "apikey") || !validKey(parts[1], keys) {
			logger.Warn("Authentication failed",
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "Authentication failed",
				},
			})
			return
		}

		c.Next()
	}
}

func validKey(candidate string, keys []string) bool {
	for _, k := range keys {
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(k)) == 1 {
			return true
		}
	}
	return false
}
