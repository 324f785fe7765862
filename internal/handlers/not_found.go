package handlers

import (
	"recircle-service/pkg/errors"

	"github.com/gin-gonic/gin"
)

// NotFound renders unknown routes as a JSON 404
func NotFound(c *gin.Context) {
	c.Error(errors.NewStandardError(errors.CodeResourceNotFound, "route not found", c.Request.Method+" "+c.Request.URL.Path))
	c.Abort()
}
