package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"armbian-monitor-backend/internal/model"
)

func TestGetStats(t *testing.T) {
	env := newTestEnv(t)

	env.postHeartbeat(t, `{"device_id":"box-01"}`)
	*env.clock = env.clock.Add(301 * time.Second)
	env.postHeartbeat(t, `{"device_id":"box-02"}`)

	w := env.request(t, http.MethodGet, "/api/stats", "", model.RoleViewer)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"total":2,"online":1,"offline":1,"onlineRate":50}`, w.Body.String())
}

func TestGetStats_NeverReportedDevice(t *testing.T) {
	env := newTestEnv(t)

	env.postHeartbeat(t, `{"device_id":"box-01"}`)

	// A pre-provisioned row with no heartbeat yet: last_heartbeat is NULL.
	require.NoError(t, env.db.Create(&model.Device{
		DeviceID:   "box-provisioned",
		DeviceName: "box-provisioned",
		CreatedAt:  *env.clock,
		UpdatedAt:  *env.clock,
	}).Error)

	w := env.request(t, http.MethodGet, "/api/stats", "", model.RoleViewer)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"total":2,"online":1,"offline":1,"onlineRate":50}`, w.Body.String())
}
