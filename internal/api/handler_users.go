package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"armbian-monitor-backend/internal/logs"
	"armbian-monitor-backend/internal/model"
)

// ListUsers handles GET /api/users.
func (h *Handler) ListUsers(c *gin.Context) {
	var users []model.User
	if err := h.store.DB().WithContext(c.Request.Context()).
		Order("id ASC").
		Find(&users).Error; err != nil {
		logs.Logger.Errorf("listing users: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve users"})
		return
	}
	c.JSON(http.StatusOK, users)
}

type createUserRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

// CreateUser handles POST /api/users.
func (h *Handler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password required"})
		return
	}
	if len(req.Username) > 50 || len(req.Password) < 6 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid username or password"})
		return
	}
	role := req.Role
	if role == "" {
		role = model.RoleViewer
	}
	if role != model.RoleAdmin && role != model.RoleViewer {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
		return
	}

	var existing model.User
	err := h.store.DB().WithContext(c.Request.Context()).
		Where("username = ?", req.Username).
		First(&existing).Error
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "username taken", "message": "a user with this name already exists"})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		logs.Logger.Errorf("looking up user %s: %v", req.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logs.Logger.Errorf("hashing password for %s: %v", req.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	user := model.User{
		Username:     req.Username,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    h.now(),
	}
	if err := h.store.DB().WithContext(c.Request.Context()).Create(&user).Error; err != nil {
		logs.Logger.Errorf("creating user %s: %v", req.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	c.JSON(http.StatusCreated, user)
}

type updateUserRequest struct {
	Password *string `json:"password"`
	Role     *string `json:"role"`
}

// UpdateUser handles PUT /api/users/:id.
func (h *Handler) UpdateUser(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	updates := map[string]any{}
	if req.Password != nil {
		if len(*req.Password) < 6 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid password"})
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			logs.Logger.Errorf("hashing password for user %d: %v", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update user"})
			return
		}
		updates["password_hash"] = string(hash)
	}
	if req.Role != nil {
		if *req.Role != model.RoleAdmin && *req.Role != model.RoleViewer {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
			return
		}
		updates["role"] = *req.Role
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	res := h.store.DB().WithContext(c.Request.Context()).
		Model(&model.User{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		logs.Logger.Errorf("updating user %d: %v", id, res.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update user"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found", "message": "user not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "user updated"})
}

// DeleteUser handles DELETE /api/users/:id. The caller cannot delete their
// own account.
func (h *Handler) DeleteUser(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var user model.User
	if err := h.store.DB().WithContext(c.Request.Context()).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found", "message": "user not found"})
		} else {
			logs.Logger.Errorf("fetching user %d: %v", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete user"})
		}
		return
	}

	if user.Username == c.GetString("username") {
		c.JSON(http.StatusConflict, gin.H{"error": "cannot delete own account", "message": "cannot delete the account you are logged in with"})
		return
	}

	if err := h.store.DB().WithContext(c.Request.Context()).Delete(&user).Error; err != nil {
		logs.Logger.Errorf("deleting user %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "user deleted"})
}
