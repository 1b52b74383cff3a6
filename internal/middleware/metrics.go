package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exam-scheduler-api/internal/service"
)

// Route groups used as the "group" label on request metrics.
const (
	RouteGroupScheduling = "scheduling"
	RouteGroupConflicts  = "conflicts"
	RouteGroupTimeSlots  = "timeslots"
	RouteGroupCatalog    = "catalog"
	RouteGroupStats      = "stats"
	RouteGroupSystem     = "system"
	RouteGroupOther      = "other"
	routeUnmatched       = "unmatched"
)

var routeGroups = map[string]string{
	"schedule":        RouteGroupScheduling,
	"manual-schedule": RouteGroupScheduling,
	"conflicts":       RouteGroupConflicts,
	"timeslots":       RouteGroupTimeSlots,
	"rooms":           RouteGroupCatalog,
	"proctors":        RouteGroupCatalog,
	"exams":           RouteGroupCatalog,
	"stats":           RouteGroupStats,
	"health":          RouteGroupSystem,
	"ready":           RouteGroupSystem,
	"metrics":         RouteGroupSystem,
	"docs":            RouteGroupSystem,
}

// Metrics records request count and latency per route template and route group. Requests that match
// no route share the "unmatched" path and group labels.
func Metrics(metricsSvc *service.MetricsService, apiPrefix string) gin.HandlerFunc {
	prefix := strings.TrimRight(apiPrefix, "/")
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		path := c.FullPath()
		group := routeUnmatched
		if path == "" {
			path = routeUnmatched
		} else {
			group = RouteGroup(path, prefix)
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, group, path, c.Writer.Status(), time.Since(start))
	}
}

// RouteGroup maps a route template such as /api/v1/exams/:id onto its scheduler area.
func RouteGroup(route, apiPrefix string) string {
	rest := route
	if apiPrefix != "" && strings.HasPrefix(route, apiPrefix+"/") {
		rest = strings.TrimPrefix(route, apiPrefix)
	}
	segment := strings.SplitN(strings.TrimPrefix(rest, "/"), "/", 2)[0]
	if group, ok := routeGroups[segment]; ok {
		return group
	}
	return RouteGroupOther
}
