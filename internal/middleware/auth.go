package middleware

import (
	"crypto/subtle"
	"strings"

	"qbank_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// APIKeyMiddleware guards write endpoints with static keys taken from the
// Authorization bearer header, the X-API-Key header or the token query parameter.
// With no keys configured every request passes.
func APIKeyMiddleware(keys []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(keys) == 0 {
			c.Next()
			return
		}

		token := ""
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
		if token == "" {
			token = c.GetHeader("X-API-Key")
		}
		if token == "" {
			token = c.Query("token")
		}

		if token == "" || !validKey(keys, token) {
			util.Unauthorized(c)
			c.Abort()
			return
		}
		c.Next()
	}
}

func validKey(keys []string, token string) bool {
	for _, k := range keys {
		if k != "" && subtle.ConstantTimeCompare([]byte(k), []byte(token)) == 1 {
			return true
		}
	}
	return false
}
