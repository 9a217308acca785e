package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthCheck func(ctx context.Context) (map[string]string, error)

// Health reports 200 while the database answers pings and 503 otherwise.
func Health(check HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := check(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "database": stats})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "database": stats})
	}
}
