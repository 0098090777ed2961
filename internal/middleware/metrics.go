package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fieldset/cmms-api/internal/service"
)

// Metrics records method, route and status for every request. The route
// template is used rather than the raw path so signed download tokens do
// not explode label cardinality.
func Metrics(metrics *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
