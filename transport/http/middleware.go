package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodykit/keystone/core"
	"github.com/custodykit/keystone/ports"
)

const sessionContextKey = "sessionCredential"

// SessionMiddleware validates the bearer session credential on protected
// routes and stores it in the request context.
func SessionMiddleware(tokenizer ports.Tokenizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		cred, err := tokenizer.TokenToCredential(strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session credential"})
			return
		}
		if cred.Expired(time.Now()) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			return
		}

		c.Set(sessionContextKey, cred)
		c.Next()
	}
}

func sessionFromContext(c *gin.Context) (*core.SessionCredential, bool) {
	v, exists := c.Get(sessionContextKey)
	if !exists {
		return nil, false
	}
	cred, ok := v.(*core.SessionCredential)
	return cred, ok
}
