package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"edu-platform/pkg/metrics"
)

// Metrics Prometheus 请求计数与耗时
// 按路由模板统计，未匹配的路由归为 unmatched，避免标签爆炸
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
