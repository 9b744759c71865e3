package endpoint

import (
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Liveness answers 200 as long as the process can serve HTTP. It never
// consults the upstream: a tripped breaker is a /health concern.
func Liveness(serviceName string, started time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":         "alive",
			"service":        serviceName,
			"uptime_seconds": math.Round(time.Since(started).Seconds()),
		})
	}
}
