package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/productsense/research/fetch"
	"github.com/productsense/research/models"
)

// Health returns a handler for GET /api/v1/health.
//
// Reports page pool utilisation and degrades status when > 80% of pages are
// active. With no browser configured the pool reads as empty and the service
// is healthy as long as it responds.
func Health(browser *fetch.Browser, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		var stats models.PoolStats
		if browser != nil {
			stats = browser.Stats()
		}

		status := "healthy"
		if stats.MaxPages > 0 && stats.ActivePages > int(float64(stats.MaxPages)*0.8) {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:    status,
			Uptime:    time.Since(startTime).Round(time.Second).String(),
			PoolStats: stats,
			Version:   "0.1.0",
		})
	}
}
