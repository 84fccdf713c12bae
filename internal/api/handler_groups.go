package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"armbian-monitor-backend/internal/logs"
	"armbian-monitor-backend/internal/model"
)

// groupResponse adds the member count to a group row.
type groupResponse struct {
	model.DeviceGroup
	DeviceCount int64 `json:"device_count"`
}

// ListGroups handles GET /api/groups.
func (h *Handler) ListGroups(c *gin.Context) {
	db := h.store.DB().WithContext(c.Request.Context())

	var groups []model.DeviceGroup
	if err := db.Order("sort_order ASC, id ASC").Find(&groups).Error; err != nil {
		logs.Logger.Errorf("listing groups: %v", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve groups"})
		return
	}

	type aggRow struct {
		GroupID     int64
		DeviceCount int64
	}
	var aggs []aggRow
	if err := db.Model(&model.Device{}).
		Select("group_id as group_id, COUNT(*) as device_count").
		Where("group_id IS NOT NULL").
		Group("group_id").
		Scan(&aggs).Error; err != nil {
		logs.Logger.Errorf("aggregating group members: %v", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to aggregate devices"})
		return
	}

	aggMap := make(map[int64]int64, len(aggs))
	for _, a := range aggs {
		aggMap[a.GroupID] = a.DeviceCount
	}

	responses := make([]groupResponse, 0, len(groups))
	for _, g := range groups {
		responses = append(responses, groupResponse{DeviceGroup: g, DeviceCount: aggMap[g.ID]})
	}
	c.JSON(http.StatusOK, responses)
}

type groupRequest struct {
	GroupName        string `json:"group_name" binding:"required"`
	GroupDescription string `json:"group_description"`
	GroupColor       string `json:"group_color"`
	GroupIcon        string `json:"group_icon"`
	SortOrder        int    `json:"sort_order"`
	IsDefault        bool   `json:"is_default"`
}

// CreateGroup handles POST /api/groups. Making the new group the default
// clears the previous default in the same transaction.
func (h *Handler) CreateGroup(c *gin.Context) {
	var req groupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "group_name is required"})
		return
	}
	if len(req.GroupName) > maxNameLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group_name"})
		return
	}

	now := h.now()
	group := model.DeviceGroup{
		GroupName:        req.GroupName,
		GroupDescription: req.GroupDescription,
		GroupColor:       req.GroupColor,
		GroupIcon:        req.GroupIcon,
		SortOrder:        req.SortOrder,
		IsDefault:        req.IsDefault,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err := h.store.DB().WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if req.IsDefault {
			if err := tx.Model(&model.DeviceGroup{}).
				Where("is_default = ?", true).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(&group).Error
	})
	if err != nil {
		logs.Logger.Errorf("creating group %s: %v", req.GroupName, err)
		c.JSON(http.StatusConflict, gin.H{"error": "group already exists or could not be created"})
		return
	}

	c.JSON(http.StatusCreated, group)
}

// UpdateGroup handles PUT /api/groups/:id.
func (h *Handler) UpdateGroup(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group id"})
		return
	}

	var req groupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "group_name is required"})
		return
	}

	err = h.store.DB().WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var group model.DeviceGroup
		if err := tx.First(&group, id).Error; err != nil {
			return err
		}
		if req.IsDefault && !group.IsDefault {
			if err := tx.Model(&model.DeviceGroup{}).
				Where("is_default = ?", true).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Model(&group).Updates(map[string]any{
			"group_name":        req.GroupName,
			"group_description": req.GroupDescription,
			"group_color":       req.GroupColor,
			"group_icon":        req.GroupIcon,
			"sort_order":        req.SortOrder,
			"is_default":        req.IsDefault,
			"updated_at":        h.now(),
		}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "group not found", "message": "group not found"})
		} else {
			logs.Logger.Errorf("updating group %d: %v", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update group"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "group updated"})
}

// DeleteGroup handles DELETE /api/groups/:id. Deleting a group that still
// has member devices is rejected.
func (h *Handler) DeleteGroup(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group id"})
		return
	}

	err = h.store.DB().WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var group model.DeviceGroup
		if err := tx.First(&group, id).Error; err != nil {
			return err
		}

		var members int64
		if err := tx.Model(&model.Device{}).Where("group_id = ?", id).Count(&members).Error; err != nil {
			return err
		}
		if members > 0 {
			return errGroupNotEmpty
		}

		return tx.Delete(&group).Error
	})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "group not found", "message": "group not found"})
		case errors.Is(err, errGroupNotEmpty):
			c.JSON(http.StatusConflict, gin.H{"error": "group not empty", "message": "move or delete member devices first"})
		default:
			logs.Logger.Errorf("deleting group %d: %v", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete group"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "group deleted"})
}

var errGroupNotEmpty = errors.New("group has member devices")
