package internal

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"armbian-monitor-backend/internal/api"
	"armbian-monitor-backend/internal/db"
	"armbian-monitor-backend/internal/ingest"
	"armbian-monitor-backend/internal/model"
	"armbian-monitor-backend/internal/mw"
	"armbian-monitor-backend/internal/store"
)

// TestDeviceLifecycle walks a reporting box through registration, steady
// heartbeats, going silent past the timeout, and coming back, verifying the
// API and the database at each step.
func TestDeviceLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// 1. In-memory SQLite database.
	testDB, err := gorm.Open(sqlite.Open("file:lifecycle?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, _ := testDB.DB()
	defer sqlDB.Close()
	require.NoError(t, db.Migrate(testDB))

	// 2. A controllable clock shared by ingestion and the API.
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	// 3. The full request path: store, ingestion, auth, router.
	appStore := store.NewGormStore(testDB)
	ingestSvc := ingest.NewService(appStore, 300*time.Second, nil)
	ingestSvc.Now = clock

	auth := mw.NewAuth("integration-secret", time.Hour)
	handler := api.NewHandler(api.Options{
		Store:          appStore,
		Ingest:         ingestSvc,
		Auth:           auth,
		OfflineTimeout: 300 * time.Second,
		Clock:          clock,
	})
	router := api.NewRouter(handler, api.RouterConfig{
		RateLimitPerSec: 1000,
		RateLimitBurst:  1000,
		CacheTTL:        time.Nanosecond,
	})

	// 4. An operator account, logged in through the real endpoint.
	hash, err := bcrypt.GenerateFromPassword([]byte("changeme1"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, testDB.Create(&model.User{
		Username: "admin", PasswordHash: string(hash), Role: model.RoleAdmin,
	}).Error)

	login := do(router, http.MethodPost, "/api/login",
		`{"username":"admin","password":"changeme1"}`, "")
	require.Equal(t, http.StatusOK, login.Code)
	var loginResp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(login.Body.Bytes(), &loginResp))
	token := loginResp.Token

	// First heartbeat registers the device.
	w := do(router, http.MethodPost, "/api/heartbeat",
		`{"device_id":"box-01","device_name":"Bench box","cpu_usage":12.5,"memory_usage":40,"disk_usage":55,"uptime":86400,"temperature":46.2}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	var hb map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hb))
	assert.Equal(t, true, hb["is_new_device"])

	stats := getStats(t, router, token)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Online)
	assert.Equal(t, 100, stats.OnlineRate)

	// Steady reporting: a second heartbeat a minute later is a new sample,
	// not a new device.
	now = now.Add(time.Minute)
	w = do(router, http.MethodPost, "/api/heartbeat", `{"device_id":"box-01","cpu_usage":13.0}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	hb = map[string]any{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hb))
	_, hasFlag := hb["is_new_device"]
	assert.False(t, hasFlag)

	var logCount int64
	testDB.Model(&model.HeartbeatLog{}).Count(&logCount)
	assert.Equal(t, int64(2), logCount)

	// Exactly at the timeout boundary the device is still online.
	now = now.Add(300 * time.Second)
	stats = getStats(t, router, token)
	assert.Equal(t, 1, stats.Online)

	// One second past the boundary it is offline.
	now = now.Add(time.Second)
	stats = getStats(t, router, token)
	assert.Equal(t, 0, stats.Online)
	assert.Equal(t, 1, stats.Offline)
	assert.Equal(t, 0, stats.OnlineRate)

	dev := do(router, http.MethodGet, "/api/devices/box-01", "", token)
	require.Equal(t, http.StatusOK, dev.Code)
	var devResp map[string]any
	require.NoError(t, json.Unmarshal(dev.Body.Bytes(), &devResp))
	assert.Equal(t, "offline", devResp["status"])
	assert.Equal(t, "Bench box", devResp["device_name"])

	// The box comes back.
	w = do(router, http.MethodPost, "/api/heartbeat", `{"device_id":"box-01"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	stats = getStats(t, router, token)
	assert.Equal(t, 1, stats.Online)

	// A malformed device id is rejected without touching storage.
	w = do(router, http.MethodPost, "/api/heartbeat", `{"device_id":"bad id!"}`, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	var deviceCount int64
	testDB.Model(&model.Device{}).Count(&deviceCount)
	testDB.Model(&model.HeartbeatLog{}).Count(&logCount)
	assert.Equal(t, int64(1), deviceCount)
	assert.Equal(t, int64(3), logCount)

	// Wrong verb on the ingestion endpoint.
	w = do(router, http.MethodGet, "/api/heartbeat", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	// Admin reads require a token.
	w = do(router, http.MethodGet, "/api/stats", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

type statsResponse struct {
	Total      int `json:"total"`
	Online     int `json:"online"`
	Offline    int `json:"offline"`
	OnlineRate int `json:"onlineRate"`
}

func getStats(t *testing.T, router *gin.Engine, token string) statsResponse {
	t.Helper()
	w := do(router, http.MethodGet, "/api/stats", "", token)
	require.Equal(t, http.StatusOK, w.Code)
	var stats statsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	return stats
}

func do(router *gin.Engine, method, path, body, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	router.ServeHTTP(w, req)
	return w
}
