package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const headerInternalKey = "X-Internal-Key"

// RequireInternalKey guards service-to-service routes. An empty key rejects
// every request.
func RequireInternalKey(key string) gin.HandlerFunc {
	want := []byte(strings.TrimSpace(key))
	return func(c *gin.Context) {
		got := []byte(strings.TrimSpace(c.GetHeader(headerInternalKey)))
		if len(want) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": "invalid internal key", "code": "unauthorized"},
			})
			return
		}
		c.Next()
	}
}
