package middlewares

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hilthontt/kindred/infrastructure/logger"
	"go.uber.org/zap"
)

const InternalKeyHeader = "X-Internal-Key"

// InternalKeyMiddleware guards routes meant for other backend services.
// An empty configured key closes the routes entirely.
func InternalKeyMiddleware(apiKey string, logger *logger.Logger) gin.HandlerFunc {
	expected := []byte(apiKey)

	return func(c *gin.Context) {
		provided := []byte(c.GetHeader(InternalKeyHeader))
		if len(expected) == 0 || subtle.ConstantTimeCompare(provided, expected) != 1 {
			logger.Warn("rejected internal request",
				zap.String("path", c.Request.URL.Path),
				zap.String("ip", c.ClientIP()),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "invalid internal key",
			})
			return
		}
		c.Next()
	}
}
