package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"armbian-monitor-backend/internal/logs"
	"armbian-monitor-backend/internal/status"
)

// GetStats handles GET /api/stats. The whole fleet is evaluated against one
// "now", so the aggregate can never disagree with a per-device read taken
// from the same response cycle.
func (h *Handler) GetStats(c *gin.Context) {
	beats, err := h.store.LastHeartbeats(c.Request.Context())
	if err != nil {
		logs.Logger.Errorf("fetching last heartbeats: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute stats"})
		return
	}

	c.JSON(http.StatusOK, status.Aggregate(beats, h.now(), h.offlineTimeout))
}
