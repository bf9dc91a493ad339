package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jstittsworth/bet-analytics/internal/metrics"
)

// Metrics records request duration by route template
func Metrics(monitor *metrics.PerformanceMonitor) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		monitor.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
