package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/hemline/internal/model"
	appErr "github.com/xxxsen/hemline/internal/pkg/errors"
)

const (
	ContextUserIDKey = "user_id"
	ContextUserKey   = "user"
)

type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*model.User, error)
}

// ErrorWriter renders a rejected request. The handler package supplies the
// shared error mapping.
type ErrorWriter func(c *gin.Context, err error)

// Auth requires a bearer access token and stores the resolved user on the
// context.
func Auth(auth Authenticator, fail ErrorWriter) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			fail(c, appErr.ErrUnauthorized)
			c.Abort()
			return
		}
		user, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			fail(c, err)
			c.Abort()
			return
		}
		c.Set(ContextUserIDKey, user.ID)
		c.Set(ContextUserKey, user)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// CurrentUser returns the user set by Auth.
func CurrentUser(c *gin.Context) *model.User {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*model.User)
	return user
}
