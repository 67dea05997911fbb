package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireScope lets the request through only if AuthMiddleware granted scope.
// ScopeWrite satisfies ScopeRead.
func RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetString("scope")
		if got == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no scope in context"})
			return
		}
		if got != scope && got != ScopeWrite {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// ReadOnlyGuard rejects unsafe methods for read-scoped callers.
func ReadOnlyGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("scope") == ScopeWrite {
			c.Next()
			return
		}
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
		default:
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "read-only token"})
		}
	}
}
