package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hilthontt/kindred/infrastructure/logger"
	"go.uber.org/zap"
)

func GinLogger(logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		// no query string: it may carry a handshake token
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}

		if len(c.Errors) > 0 {
			logger.Error("Request error", append(fields, zap.String("errors", c.Errors.String()))...)
			return
		}
		logger.Info("Request", fields...)
	}
}
