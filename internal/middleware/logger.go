// File: internal/middleware/logger.go
package middleware

import (
	"time"

	"cafe_client/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	RequestIDHeader     = "X-Request-ID"
	RequestIDContextKey = "requestID"
)

// quietRoutes are polled constantly and only logged at debug level.
var quietRoutes = map[string]bool{"/health": true, "/metrics": true}

// ZapLogger logs one line per request and leaves a request-scoped logger in
// the context. The query string is never logged; it may carry credentials.
func ZapLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)
		c.Set(RequestIDContextKey, requestID)
		reqLogger := logger.With(zap.String("request_id", requestID))
		c.Set(common.LoggerKey, reqLogger)

		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if email := c.GetString(common.UserEmailKey); email != "" {
			fields = append(fields, zap.String("email", email))
		}
		for _, e := range c.Errors.ByType(gin.ErrorTypePrivate) {
			fields = append(fields, zap.NamedError("error", e.Err))
		}

		switch {
		case status >= 500:
			reqLogger.Error("Server error", fields...)
		case status >= 400:
			reqLogger.Warn("Client error", fields...)
		case quietRoutes[route]:
			reqLogger.Debug("Request handled", fields...)
		default:
			reqLogger.Info("Request handled", fields...)
		}
	}
}
