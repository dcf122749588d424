package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/shelfmark/shelfmark/internal/entities"
)

// UserResolver looks up a user by their API token.
type UserResolver interface {
	GetUserByToken(token string) (*entities.User, error)
}

// TokenAuthMiddleware authenticates requests by bearer token. When no
// resolver is configured the server runs in single-user mode and every
// request acts as DefaultUserID.
func TokenAuthMiddleware(users UserResolver) gin.HandlerFunc {
	if users == nil {
		return func(c *gin.Context) {
			c.Set(ContextKeyUserID, DefaultUserID)
			c.Next()
		}
	}

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "missing bearer token"})
			return
		}

		user, err := users.GetUserByToken(token)
		if errors.Is(err, gorm.ErrRecordNotFound) || user == nil && err == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid token"})
			return
		}
		if err != nil {
			respondInternalError(c, err, "token lookup")
			c.Abort()
			return
		}

		c.Set(ContextKeyUserID, user.ID)
		c.Next()
	}
}
