package endpoint

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/edgecam/component"
)

// HealthChecker returns the health of every registered component.
type HealthChecker func(ctx context.Context) []component.Health

// rollup folds component health into one status. Unhealthy dominates
// degraded; the names of components that are not healthy are returned
// in registration order.
func rollup(components []component.Health) (component.HealthStatus, []string) {
	overall := component.StatusHealthy
	var failing []string
	for _, h := range components {
		switch h.Status {
		case component.StatusUnhealthy:
			overall = component.StatusUnhealthy
		case component.StatusDegraded:
			if overall != component.StatusUnhealthy {
				overall = component.StatusDegraded
			}
		default:
			continue
		}
		failing = append(failing, h.Name)
	}
	return overall, failing
}

func probe(c *gin.Context, code int, serviceName, status string, extra gin.H) {
	body := gin.H{
		"status":    status,
		"service":   serviceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(code, body)
}

// Health reports the rolled-up status along with each component. A
// terminated stage makes the service unhealthy and answers 503.
func Health(serviceName string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		var components []component.Health
		if checker != nil {
			components = checker(c.Request.Context())
		}
		status, failing := rollup(components)

		code := http.StatusOK
		if status == component.StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		probe(c, code, serviceName, string(status), gin.H{
			"components": components,
			"failing":    failing,
		})
	}
}

// Readiness answers 503 while any component is unhealthy. Degraded stages
// still accept traffic.
func Readiness(serviceName string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if checker != nil {
			if status, _ := rollup(checker(c.Request.Context())); status == component.StatusUnhealthy {
				probe(c, http.StatusServiceUnavailable, serviceName, "not_ready", nil)
				return
			}
		}
		probe(c, http.StatusOK, serviceName, "ready", nil)
	}
}

// Liveness only proves the process can still answer HTTP.
func Liveness(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		probe(c, http.StatusOK, serviceName, "alive", nil)
	}
}
