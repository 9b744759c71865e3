package endpoint

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/steamlens/resilience"
)

// Stats returns a handler that serves the snapshot produced by fn as JSON.
func Stats[T any](fn func() T) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, fn())
	}
}

// BreakerReset returns a handler that forces cb closed and answers with its
// stats after the reset.
func BreakerReset(cb *resilience.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		cb.Reset()
		c.JSON(http.StatusOK, gin.H{"reset": true, "circuit_breaker": cb.Stats()})
	}
}

// CacheClear returns a handler that calls clear.
func CacheClear(clear func()) gin.HandlerFunc {
	return func(c *gin.Context) {
		clear()
		c.JSON(http.StatusOK, gin.H{"cleared": true})
	}
}
