package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"armbian-monitor-backend/internal/logs"
	"armbian-monitor-backend/internal/model"
)

// Login handles POST /api/login and returns a signed JWT.
func (h *Handler) Login(c *gin.Context) {
	var body struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password required"})
		return
	}

	var user model.User
	err := h.store.DB().WithContext(c.Request.Context()).
		Where("username = ?", body.Username).
		First(&user).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logs.Logger.Errorf("looking up user %s: %v", body.Username, err)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := h.auth.GenerateToken(user.Username, user.Role)
	if err != nil {
		logs.Logger.Errorf("generating token for %s: %v", user.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	now := h.now()
	if err := h.store.DB().WithContext(c.Request.Context()).
		Model(&user).
		Update("last_login", now).Error; err != nil {
		logs.Logger.Warnf("updating last_login for %s: %v", user.Username, err)
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_in": int(h.auth.TokenTTL().Seconds()),
		"type":       "Bearer",
	})
}
