package middleware

import (
	"github.com/haierkeys/holarchy-browser-service/pkg/errors"

	"github.com/gin-gonic/gin"
)

// NoFound answers unmatched routes with the standard error shape.
func NoFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		errors.ErrorResponse(c, errors.NotFound("Not found"))
		c.Abort()
	}
}
