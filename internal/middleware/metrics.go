package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/scportal/search-api/internal/service"
)

const unmatchedRoute = "unmatched"

// probeRoutes are scraped or polled constantly and stay out of the request histograms.
var probeRoutes = map[string]struct{}{
	"/metrics": {},
	"/health":  {},
	"/ready":   {},
}

// Metrics records request counts and latency per route template. Requests
// that matched no route share one label.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		route := c.FullPath()
		if _, probe := probeRoutes[route]; probe {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		if route == "" {
			route = unmatchedRoute
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
