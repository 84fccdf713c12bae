package mw

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// OpenCORS allows any origin. Applied to the heartbeat endpoint only:
// reporting devices are not browsers carrying credentials.
func OpenCORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
