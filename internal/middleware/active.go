package middleware

import (
	"github.com/gin-gonic/gin"

	appErr "github.com/xxxsen/hemline/internal/pkg/errors"
)

// ActiveAccount rejects users whose account is waiting for deletion. It must
// run after Auth.
func ActiveAccount(fail ErrorWriter) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			fail(c, appErr.ErrUnauthorized)
			c.Abort()
			return
		}
		if user.ToBeDeleted {
			fail(c, appErr.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
