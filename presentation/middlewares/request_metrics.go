package middlewares

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hilthontt/kindred/infrastructure/metrics"
)

func RequestMetrics(m metrics.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		labels := []string{
			"method", c.Request.Method,
			"route", route,
			"status", strconv.Itoa(c.Writer.Status()),
		}
		m.IncrementCounter(c.Request.Context(), metrics.HTTPRequests, labels...)
		m.RecordHistogram(c.Request.Context(), metrics.HTTPRequestDuration, time.Since(start).Seconds(), labels...)
	}
}
