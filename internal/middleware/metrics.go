package middleware

import (
	"strconv"
	"time"

	"scale_backend/internal/metrics"

	"github.com/gin-gonic/gin"
)

// MetricsMiddleware пишет счетчик запросов и время ответа.
// path - шаблон маршрута, чтобы id не раздували кардинальность.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		metrics.HttpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		metrics.ResponseTimeHistogram.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
