// Package middleware provides the collector's gin middleware.
package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/application/services"
)

// PageViewIDKey is the context key holding the authorized page view id.
const PageViewIDKey = "pageViewId"

// PageViewAuthorizer validates a beacon token for a page view.
type PageViewAuthorizer interface {
	Authorize(id, token string) error
}

// BearerToken extracts the token from the Authorization header. Stream
// transports that cannot set headers may pass it as ?token=.
func BearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return c.Query("token")
}

// PageViewAuthMiddleware rejects requests whose token does not belong to the :id page view.
func PageViewAuthMiddleware(auth PageViewAuthorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		token := BearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing page view token"})
			return
		}
		if err := auth.Authorize(id, token); err != nil {
			switch {
			case errors.Is(err, services.ErrPageViewNotFound):
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
			default:
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": services.ErrInvalidToken.Error()})
			}
			return
		}
		c.Set(PageViewIDKey, id)
		c.Next()
	}
}

// AdminAuthMiddleware guards operator endpoints with a static bearer token.
// With no token configured the endpoints are disabled.
func AdminAuthMiddleware(adminToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminToken == "" {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "admin endpoints disabled"})
			return
		}
		token := BearerToken(c)
		if subtle.ConstantTimeCompare([]byte(token), []byte(adminToken)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid admin token"})
			return
		}
		c.Next()
	}
}
