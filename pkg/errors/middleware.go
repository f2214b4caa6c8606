package errors

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Body is the flat JSON error document returned to clients
func Body(appErr *AppError) gin.H {
	return gin.H{
		"error": appErr.Message,
		"code":  appErr.Code,
	}
}

// ErrorHandler returns a middleware that renders the last error attached to
// the context. Causes are logged, never sent to the client.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		appErr := FromError(c.Errors.Last().Err)

		log := logger.FromContext(c)
		args := []any{
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
			"status_code", appErr.StatusCode,
			"error_code", appErr.Code,
		}
		if appErr.Err != nil {
			args = append(args, "cause", appErr.Err.Error())
		}
		if appErr.StatusCode >= http.StatusInternalServerError {
			log.Error("Request failed", args...)
		} else {
			log.Warn("Request rejected", args...)
		}

		if c.Writer.Written() {
			return
		}
		c.AbortWithStatusJSON(appErr.StatusCode, Body(appErr))
	}
}

// Recovery returns a middleware that turns panics into the generic 500 response
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.FromContext(c).Error("Panic recovered",
					"error", fmt.Sprintf("%v", r),
					"stack", string(debug.Stack()),
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
				)

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": InternalMessage,
					"code":  "SERVER_PANIC",
				})
			}
		}()

		c.Next()
	}
}
