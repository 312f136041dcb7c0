// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file guards chair-only routes with bearer-token authentication.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// chairUsernameKey is the Gin context key holding the authenticated chair.
const chairUsernameKey = "chairUsername"

// TokenVerifier validates a bearer token and returns the chair username it
// was issued to.
type TokenVerifier func(token string) (username string, err error)

// ChairAuth returns a middleware that requires a valid Authorization: Bearer
// token on the request. On success the chair's username is stored in the
// context; on failure the request is aborted with 401 and the standard error
// envelope.
func ChairAuth(verify TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(raw, prefix) {
			unauthorized(c)
			return
		}
		username, err := verify(strings.TrimSpace(raw[len(prefix):]))
		if err != nil {
			unauthorized(c)
			return
		}
		c.Set(chairUsernameKey, username)
		c.Next()
	}
}

// ChairFrom returns the authenticated chair username set by ChairAuth, or ""
// when the request was not authenticated.
func ChairFrom(c *gin.Context) string {
	if v, ok := c.Get(chairUsernameKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       "unauthorized",
		"message":    "valid bearer token required",
	})
}
