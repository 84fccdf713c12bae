package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"armbian-monitor-backend/internal/logs"
	"armbian-monitor-backend/internal/model"
	"armbian-monitor-backend/internal/store"
)

// ListDeviceHeartbeats handles
// GET /api/devices/:device_id/heartbeats?page=&page_size=&from=&to=
func (h *Handler) ListDeviceHeartbeats(c *gin.Context) {
	deviceID := c.Param("device_id")

	var dev model.Device
	if err := h.store.DB().WithContext(c.Request.Context()).
		Select("device_id").
		Where("device_id = ?", deviceID).
		First(&dev).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "device not found", "message": "device not found"})
		} else {
			logs.Logger.Errorf("fetching device %s: %v", deviceID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve device"})
		}
		return
	}

	filter := store.HistoryFilter{}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "50"))

	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'from' timestamp format, use RFC3339"})
			return
		}
		filter.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'to' timestamp format, use RFC3339"})
			return
		}
		filter.To = &to
	}

	entries, total, err := h.store.ListHeartbeats(c.Request.Context(), deviceID, filter)
	if err != nil {
		logs.Logger.Errorf("listing heartbeats for %s: %v", deviceID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve heartbeats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":     total,
		"page":      filter.Page,
		"page_size": filter.PageSize,
		"items":     entries,
	})
}
