package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"armbian-monitor-backend/internal/model"
	"armbian-monitor-backend/internal/mw"
)

// RouterConfig carries the tunables the router needs.
type RouterConfig struct {
	RateLimitPerSec float64
	RateLimitBurst  int
	CacheTTL        time.Duration
}

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	})

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	cacheStore := cache.New(cfg.CacheTTL, 10*time.Minute)
	caching := mw.Cache(cacheStore, cfg.CacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		// Device plane: unauthenticated, open CORS. The reporters are
		// headless boxes, not browsers.
		api.POST("/heartbeat", mw.OpenCORS(), h.PostHeartbeat)
		api.OPTIONS("/heartbeat", mw.OpenCORS())

		api.POST("/login", h.Login)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)

		// Admin plane: everything below requires a valid token.
		auth := api.Group("/", h.auth.Middleware())
		{
			auth.GET("/devices", caching, h.ListDevices)
			auth.GET("/devices/:device_id", h.GetDevice)
			auth.PUT("/devices/:device_id", h.UpdateDevice)
			auth.DELETE("/devices/:device_id", h.DeleteDevice)
			auth.GET("/devices/:device_id/heartbeats", h.ListDeviceHeartbeats)

			auth.GET("/stats", caching, h.GetStats)

			auth.GET("/groups", h.ListGroups)
			auth.POST("/groups", h.CreateGroup)
			auth.PUT("/groups/:id", h.UpdateGroup)
			auth.DELETE("/groups/:id", h.DeleteGroup)

			auth.GET("/subscriptions", h.GetSubscription)
			auth.PUT("/subscriptions", h.PutSubscription)
			auth.DELETE("/subscriptions", h.DeleteSubscription)

			admin := auth.Group("/users", mw.RequireRole(model.RoleAdmin))
			{
				admin.GET("", h.ListUsers)
				admin.POST("", h.CreateUser)
				admin.PUT("/:id", h.UpdateUser)
				admin.DELETE("/:id", h.DeleteUser)
			}
		}
	}

	return r
}
