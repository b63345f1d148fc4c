// File: internal/middleware/error.go
package middleware

import (
	"net/http"

	"cafe_client/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var errMethodNotAllowed = common.NewAPIError(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed.")

// ErrorHandler renders errors handlers attached with c.Error, and gives
// unmatched routes the same JSON error body as everything else.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if last := c.Errors.Last(); last != nil {
			apiErr, ok := common.IsAPIError(last.Err)
			if !ok {
				logger.Error("Unhandled application error",
					zap.Error(last.Err),
					zap.String("route", c.FullPath()),
					zap.String("request_id", c.GetString(RequestIDContextKey)),
				)
				apiErr = common.ErrInternalServer
				if gin.Mode() == gin.DebugMode {
					apiErr = apiErr.WithDetails(last.Err.Error())
				}
			}
			c.AbortWithStatusJSON(apiErr.StatusCode, apiErr)
			return
		}

		if c.Writer.Written() {
			return
		}
		switch c.Writer.Status() {
		case http.StatusNotFound:
			c.AbortWithStatusJSON(http.StatusNotFound, common.ErrNotFound.WithMessage("No such route."))
		case http.StatusMethodNotAllowed:
			c.AbortWithStatusJSON(http.StatusMethodNotAllowed, errMethodNotAllowed)
		}
	}
}
