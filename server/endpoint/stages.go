package endpoint

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// Snapshotter returns a JSON-serializable view of pipeline state.
type Snapshotter func(ctx context.Context) any

// Stages returns a handler reporting pipeline stage and buffer statistics
// alongside process runtime figures.
func Stages(snapshot Snapshotter) gin.HandlerFunc {
	return func(c *gin.Context) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		var pipeline any
		if snapshot != nil {
			pipeline = snapshot(c.Request.Context())
		}
		c.JSON(http.StatusOK, gin.H{
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"pipeline":   pipeline,
			"goroutines": runtime.NumGoroutine(),
			"memory": gin.H{
				"alloc_mb": m.Alloc / 1024 / 1024,
				"sys_mb":   m.Sys / 1024 / 1024,
				"gc_runs":  m.NumGC,
			},
		})
	}
}
