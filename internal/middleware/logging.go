package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type contextKey string

const loggerKey contextKey = "logger"

// RequestIDHeader echoes the request id back to the client.
const RequestIDHeader = "X-Request-ID"

// RequestLogger adds a request id and a request-scoped logger to the context
// and logs every request with a level chosen by status code.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header(RequestIDHeader, requestID)

		logger := logging.With(
			"request_id", requestID,
			"client_ip", c.ClientIP(),
		)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), loggerKey, logger))

		c.Next()

		status := c.Writer.Status()
		logAttrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if userID, ok := c.Get("userID"); ok {
			logAttrs = append(logAttrs, "user_id", userID)
		}

		switch {
		case status >= 500:
			logger.Error("Request completed with server error", logAttrs...)
		case status >= 400:
			logger.Warn("Request completed with client error", logAttrs...)
		default:
			logger.Info("Request completed", logAttrs...)
		}
	}
}

// LoggerFrom returns the request-scoped logger, or the default one.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
