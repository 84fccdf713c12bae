package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"armbian-monitor-backend/internal/ingest"
	"armbian-monitor-backend/internal/logs"
)

// heartbeatResponse is the terse body returned to reporting devices.
type heartbeatResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	Timestamp   string `json:"timestamp"`
	DeviceID    string `json:"device_id"`
	IsNewDevice bool   `json:"is_new_device,omitempty"`
}

// PostHeartbeat handles POST /api/heartbeat.
func (h *Handler) PostHeartbeat(c *gin.Context) {
	var req ingest.HeartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	sourceIP := ingest.DeriveClientIP(c.Request.Header, h.trustedHeaders, c.Request.RemoteAddr)

	result, err := h.ingest.Ingest(c.Request.Context(), &req, sourceIP)
	if err != nil {
		var verr *ingest.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
			return
		}
		// Storage failure: log detail internally, keep the body generic.
		logs.Logger.WithField("device_id", req.DeviceID).Errorf("heartbeat ingestion failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record heartbeat"})
		return
	}

	c.JSON(http.StatusOK, heartbeatResponse{
		Success:     true,
		Message:     result.Message,
		Timestamp:   result.Timestamp.Format(time.RFC3339),
		DeviceID:    result.DeviceID,
		IsNewDevice: result.IsNewDevice,
	})
}
