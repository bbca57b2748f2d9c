package middleware

import (
	"context"
	"strings"

	"github.com/digimall/admin-gateway/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
)

// ProfilingConfig holds configuration for the profiling middleware.
type ProfilingConfig struct {
	// Enabled controls whether profiling labels are added to requests.
	Enabled bool
	// SkipPaths are paths that don't need profiling labels (e.g., health checks).
	SkipPaths []string
}

// DefaultProfilingConfig returns default profiling middleware configuration.
func DefaultProfilingConfig() ProfilingConfig {
	return ProfilingConfig{
		Enabled:   true,
		SkipPaths: []string{"/health", "/api/system/ping"},
	}
}

// Profiling returns profiling middleware with default configuration.
func Profiling() gin.HandlerFunc {
	return ProfilingWithConfig(DefaultProfilingConfig())
}

// ProfilingWithConfig returns middleware that runs the rest of the chain
// under Pyroscope labels:
//   - route: matched route pattern (e.g. "/api/proxy/*path")
//   - method: HTTP method
//   - resource: first proxied path segment (e.g. "staff", "orders")
//   - auth_source: session, bearer or none
//
// Place it after SessionAuth so that auth_source is known.
func ProfilingWithConfig(cfg ProfilingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return passThrough
	}

	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, skipped := skip[c.Request.URL.Path]; skipped {
			c.Next()
			return
		}

		telemetry.WithProfilingLabels(c.Request.Context(), extractProfilingLabels(c), func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

// extractProfilingLabels extracts profiling labels from the gin context.
func extractProfilingLabels(c *gin.Context) map[string]string {
	labels := make(map[string]string, 4)

	labels[telemetry.ProfilingLabelMethod] = c.Request.Method

	route := c.FullPath()
	labels[telemetry.ProfilingLabelRoute] = route
	labels[telemetry.ProfilingLabelResource] = proxyResource(c.Param("path"))
	labels[telemetry.ProfilingLabelAuthSource] = string(GetIdentity(c).Source)

	return labels
}

// proxyResource returns the first segment of a proxied path.
// Example: "/orders/42/items" -> "orders"
func proxyResource(path string) string {
	path = strings.TrimLeft(path, "/")
	if path == "" {
		return ""
	}
	resource, _, _ := strings.Cut(path, "/")
	return resource
}
