package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/haierkeys/holarchy-browser-service/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RecoveryWithLogger converts a handler panic into a 500 response.
func RecoveryWithLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		defer func() {
			if err := recover(); err != nil {
				var cause error
				if e, ok := err.(error); ok {
					cause = e
				} else {
					cause = fmt.Errorf("%v", err)
				}
				logger.Error("recovered from panic",
					zap.Int("status", c.Writer.Status()),
					zap.String("router", path),
					zap.String("method", c.Request.Method),
					zap.String("query", query),
					zap.String("ip", c.ClientIP()),
					zap.Error(cause),
					zap.String("stack", string(debug.Stack())),
				)
				errors.ErrorResponse(c, errors.StorageFailure("internal error", cause))
				c.Abort()
			}
		}()

		c.Next()
	}
}
