package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"armbian-monitor-backend/internal/model"
)

func TestListDevices_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodGet, "/api/devices", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListDevices_StatusDerivation(t *testing.T) {
	env := newTestEnv(t)

	// box-stale last reported 301 seconds before the listing instant.
	env.postHeartbeat(t, `{"device_id":"box-stale"}`)
	*env.clock = env.clock.Add(301 * time.Second)
	env.postHeartbeat(t, `{"device_id":"box-fresh"}`)

	w := env.request(t, http.MethodGet, "/api/devices", "", model.RoleViewer)
	require.Equal(t, http.StatusOK, w.Code)

	var devices []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &devices))
	require.Len(t, devices, 2)

	byID := map[string]map[string]any{}
	for _, d := range devices {
		byID[d["device_id"].(string)] = d
	}
	assert.Equal(t, "offline", byID["box-stale"]["status"])
	assert.Equal(t, "online", byID["box-fresh"]["status"])
}

func TestGetDevice_NotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodGet, "/api/devices/no-such-box", "", model.RoleViewer)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateDevice_FieldEditsOnly(t *testing.T) {
	env := newTestEnv(t)
	env.postHeartbeat(t, `{"device_id":"box-01"}`)

	var before model.Device
	require.NoError(t, env.db.Where("device_id = ?", "box-01").First(&before).Error)

	w := env.request(t, http.MethodPut, "/api/devices/box-01",
		`{"request_id":"req-1","device_name":"Rack 3 box","remarks":"<b>bench</b> unit","order_number":7}`,
		model.RoleViewer)
	require.Equal(t, http.StatusOK, w.Code)

	var after model.Device
	require.NoError(t, env.db.Where("device_id = ?", "box-01").First(&after).Error)
	assert.Equal(t, "Rack 3 box", after.DeviceName)
	assert.Equal(t, "bench unit", after.Remarks, "markup must be stripped")
	assert.Equal(t, 7, after.OrderNumber)
	require.NotNil(t, after.LastHeartbeat)
	assert.True(t, after.LastHeartbeat.Equal(*before.LastHeartbeat),
		"field edits must not touch last_heartbeat")

	var logCount int64
	env.db.Model(&model.HeartbeatLog{}).Count(&logCount)
	assert.Equal(t, int64(1), logCount)
}

func TestUpdateDevice_DuplicateRequestID(t *testing.T) {
	env := newTestEnv(t)
	env.postHeartbeat(t, `{"device_id":"box-01"}`)

	body := `{"request_id":"req-dup","device_name":"first"}`
	w := env.request(t, http.MethodPut, "/api/devices/box-01", body, model.RoleViewer)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.request(t, http.MethodPut, "/api/devices/box-01",
		`{"request_id":"req-dup","device_name":"second"}`, model.RoleViewer)
	assert.Equal(t, http.StatusConflict, w.Code)

	var dev model.Device
	require.NoError(t, env.db.Where("device_id = ?", "box-01").First(&dev).Error)
	assert.Equal(t, "first", dev.DeviceName)
}

func TestUpdateDevice_Validation(t *testing.T) {
	env := newTestEnv(t)
	env.postHeartbeat(t, `{"device_id":"box-01"}`)

	cases := []struct {
		name string
		body string
		want string
	}{
		{"blank name", `{"device_name":"   "}`, "invalid device_name"},
		{"negative order", `{"order_number":-1}`, "invalid order_number"},
		{"created_at in future", `{"created_at":"2099-01-01T00:00:00Z"}`, "invalid created_at"},
		{"created_at before floor", `{"created_at":"1999-12-31T00:00:00Z"}`, "invalid created_at"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := env.request(t, http.MethodPut, "/api/devices/box-01", tc.body, model.RoleViewer)
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, fmt.Sprintf(`{"error":%q}`, tc.want), w.Body.String())
		})
	}
}

func TestUpdateDevice_UnknownGroup(t *testing.T) {
	env := newTestEnv(t)
	env.postHeartbeat(t, `{"device_id":"box-01"}`)

	w := env.request(t, http.MethodPut, "/api/devices/box-01",
		`{"group_id":12345}`, model.RoleViewer)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteDevice_RemovesRowAndLogs(t *testing.T) {
	env := newTestEnv(t)
	env.postHeartbeat(t, `{"device_id":"box-01"}`)
	env.postHeartbeat(t, `{"device_id":"box-01"}`)

	w := env.request(t, http.MethodDelete, "/api/devices/box-01", "", model.RoleViewer)
	require.Equal(t, http.StatusOK, w.Code)

	var deviceCount, logCount, backupCount int64
	env.db.Model(&model.Device{}).Count(&deviceCount)
	env.db.Model(&model.HeartbeatLog{}).Count(&logCount)
	env.db.Model(&model.DeviceBackup{}).Count(&backupCount)
	assert.Equal(t, int64(0), deviceCount)
	assert.Equal(t, int64(0), logCount)
	assert.Equal(t, int64(1), backupCount)

	// Deleting again reports not found.
	w = env.request(t, http.MethodDelete, "/api/devices/box-01", "", model.RoleViewer)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListDeviceHeartbeats_Paging(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 5; i++ {
		env.postHeartbeat(t, fmt.Sprintf(`{"device_id":"box-01","cpu_usage":%d}`, i*10))
		*env.clock = env.clock.Add(time.Minute)
	}

	w := env.request(t, http.MethodGet, "/api/devices/box-01/heartbeats?page=1&page_size=2", "", model.RoleViewer)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Total    int64 `json:"total"`
		Page     int   `json:"page"`
		PageSize int   `json:"page_size"`
		Items    []struct {
			CPUUsage float64 `json:"cpu_usage"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(5), resp.Total)
	require.Len(t, resp.Items, 2)
	// Newest first.
	assert.Equal(t, 40.0, resp.Items[0].CPUUsage)
	assert.Equal(t, 30.0, resp.Items[1].CPUUsage)
}

func TestListDeviceHeartbeats_UnknownDevice(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodGet, "/api/devices/ghost/heartbeats", "", model.RoleViewer)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
