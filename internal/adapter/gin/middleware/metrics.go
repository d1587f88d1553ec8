package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"user-directory-service/pkg/metrics"
)

// Metrics records request count and latency per matched route.
func Metrics(m *metrics.HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.Start()

		c.Next()

		// Unmatched paths share one label to keep cardinality bounded
		m.Observe(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
