package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"armbian-monitor-backend/internal/logs"
	"armbian-monitor-backend/internal/model"
	"armbian-monitor-backend/internal/status"
	"armbian-monitor-backend/internal/store"
)

const (
	maxRemarksLen = 200
	maxNameLen    = 100
)

// createdAtFloor is the earliest registration time an operator may set.
var createdAtFloor = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

// stripHTML removes markup from operator-supplied text fields.
func stripHTML(s string) string {
	return strings.TrimSpace(htmlTagRe.ReplaceAllString(s, ""))
}

// deviceResponse is the device row plus its derived status.
type deviceResponse struct {
	model.Device
	Status     status.DeviceStatus `json:"status"`
	SystemInfo json.RawMessage     `json:"system_info,omitempty"`
}

func (h *Handler) deviceToResponse(dev model.Device, now time.Time) deviceResponse {
	resp := deviceResponse{
		Device: dev,
		Status: status.Classify(dev.LastHeartbeat, now, h.offlineTimeout),
	}
	if dev.SystemInfo != "" {
		resp.SystemInfo = json.RawMessage(dev.SystemInfo)
	}
	return resp
}

// ListDevices handles GET /api/devices. Every device in the response is
// classified against the same instant.
func (h *Handler) ListDevices(c *gin.Context) {
	var devices []model.Device
	if err := h.store.DB().WithContext(c.Request.Context()).
		Preload("Group").
		Order("order_number ASC, device_id ASC").
		Find(&devices).Error; err != nil {
		logs.Logger.Errorf("listing devices: %v", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve devices"})
		return
	}

	now := h.now()
	responses := make([]deviceResponse, 0, len(devices))
	for _, dev := range devices {
		responses = append(responses, h.deviceToResponse(dev, now))
	}
	c.JSON(http.StatusOK, responses)
}

// GetDevice handles GET /api/devices/:device_id.
func (h *Handler) GetDevice(c *gin.Context) {
	deviceID := c.Param("device_id")

	var dev model.Device
	err := h.store.DB().WithContext(c.Request.Context()).
		Preload("Group").
		Where("device_id = ?", deviceID).
		First(&dev).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "device not found", "message": "device not found"})
		} else {
			logs.Logger.Errorf("fetching device %s: %v", deviceID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve device"})
		}
		return
	}

	c.JSON(http.StatusOK, h.deviceToResponse(dev, h.now()))
}

type updateDeviceRequest struct {
	RequestID   string  `json:"request_id"`
	DeviceName  *string `json:"device_name"`
	Remarks     *string `json:"remarks"`
	OrderNumber *int    `json:"order_number"`
	GroupID     *int64  `json:"group_id"`
	CreatedAt   *string `json:"created_at"`
}

// UpdateDevice handles PUT /api/devices/:device_id. Field edits never touch
// last_heartbeat or the heartbeat log.
func (h *Handler) UpdateDevice(c *gin.Context) {
	deviceID := c.Param("device_id")

	var req updateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	now := h.now()

	// Clients that retry send their own request id; assign one otherwise so
	// the edit still lands in the audit trail.
	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	edit := store.DeviceEdit{RequestID: requestID}

	if req.DeviceName != nil {
		name := strings.TrimSpace(*req.DeviceName)
		if name == "" || len(name) > maxNameLen {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid device_name"})
			return
		}
		edit.DeviceName = &name
	}
	if req.Remarks != nil {
		remarks := stripHTML(*req.Remarks)
		if len(remarks) > maxRemarksLen {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid remarks"})
			return
		}
		edit.Remarks = &remarks
	}
	if req.OrderNumber != nil {
		if *req.OrderNumber < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order_number"})
			return
		}
		edit.OrderNumber = req.OrderNumber
	}
	if req.CreatedAt != nil {
		created, err := time.Parse(time.RFC3339, *req.CreatedAt)
		if err != nil || created.Before(createdAtFloor) || created.After(now) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid created_at"})
			return
		}
		edit.CreatedAt = &created
	}
	edit.GroupID = req.GroupID

	if err := h.store.UpdateDeviceFields(c.Request.Context(), deviceID, edit, now); err != nil {
		switch {
		case errors.Is(err, store.ErrDeviceNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "device not found", "message": "device not found"})
		case errors.Is(err, store.ErrGroupNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "group not found", "message": "group not found"})
		case errors.Is(err, store.ErrDuplicateRequest):
			c.JSON(http.StatusConflict, gin.H{"error": "duplicate request", "message": "this edit was already applied"})
		default:
			logs.Logger.Errorf("updating device %s: %v", deviceID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update device"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "device updated"})
}

// DeleteDevice handles DELETE /api/devices/:device_id.
func (h *Handler) DeleteDevice(c *gin.Context) {
	deviceID := c.Param("device_id")

	if err := h.store.DeleteDevice(c.Request.Context(), deviceID, h.now()); err != nil {
		if errors.Is(err, store.ErrDeviceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "device not found", "message": "device not found"})
		} else {
			logs.Logger.Errorf("deleting device %s: %v", deviceID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete device"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "device deleted"})
}
