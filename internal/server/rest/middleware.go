package rest

import (
	"net/http"
	"strings"

	"github.com/demomiru/minicrm/internal/server/auth"
	"github.com/gin-gonic/gin"
)

// authMiddleware verifies the bearer token and requires that the token's
// user id matches the :uid path segment, so one user can never touch
// another user's tree.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			return
		}

		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "bearer token required"})
			return
		}

		userID, err := auth.GetUserIDFromToken(tokenString, s.secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		if c.Param("uid") != userID {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token does not match user"})
			return
		}

		c.Set("userId", userID)
		c.Next()
	}
}
