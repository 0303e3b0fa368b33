package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/hemline/internal/pkg/adminkey"
	appErr "github.com/xxxsen/hemline/internal/pkg/errors"
)

const AdminKeyHeader = "X-Admin-Key"

// AdminKey admits requests whose X-Admin-Key matches the configured bcrypt
// hash. An empty hash disables the admin surface.
func AdminKey(hash string, fail ErrorWriter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !adminkey.Verify(hash, c.GetHeader(AdminKeyHeader)) {
			logutil.GetLogger(c.Request.Context()).Warn("admin key rejected",
				zap.String("ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path),
			)
			fail(c, appErr.ErrUnauthorized)
			c.Abort()
			return
		}
		c.Next()
	}
}
