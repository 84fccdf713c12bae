package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"armbian-monitor-backend/internal/model"
)

func createGroup(t *testing.T, env *testEnv, body string) model.DeviceGroup {
	w := env.request(t, http.MethodPost, "/api/groups", body, model.RoleViewer)
	require.Equal(t, http.StatusCreated, w.Code)

	var group model.DeviceGroup
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &group))
	return group
}

func TestCreateGroup_DefaultIsExclusive(t *testing.T) {
	env := newTestEnv(t)

	first := createGroup(t, env, `{"group_name":"Lab","is_default":true}`)
	second := createGroup(t, env, `{"group_name":"Field","is_default":true}`)

	var groups []model.DeviceGroup
	require.NoError(t, env.db.Order("id").Find(&groups).Error)
	require.Len(t, groups, 2)
	assert.False(t, groups[0].IsDefault, "previous default must be cleared")
	assert.True(t, groups[1].IsDefault)
	assert.Equal(t, first.ID, groups[0].ID)
	assert.Equal(t, second.ID, groups[1].ID)
}

func TestCreateGroup_MissingName(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/groups", `{"group_color":"#ff0000"}`, model.RoleViewer)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListGroups_DeviceCounts(t *testing.T) {
	env := newTestEnv(t)

	lab := createGroup(t, env, `{"group_name":"Lab"}`)
	createGroup(t, env, `{"group_name":"Field"}`)

	env.postHeartbeat(t, `{"device_id":"box-01"}`)
	env.postHeartbeat(t, `{"device_id":"box-02"}`)
	for _, id := range []string{"box-01", "box-02"} {
		w := env.request(t, http.MethodPut, "/api/devices/"+id,
			fmt.Sprintf(`{"group_id":%d}`, lab.ID), model.RoleViewer)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := env.request(t, http.MethodGet, "/api/groups", "", model.RoleViewer)
	require.Equal(t, http.StatusOK, w.Code)

	var resp []struct {
		GroupName   string `json:"group_name"`
		DeviceCount int64  `json:"device_count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 2)

	counts := map[string]int64{}
	for _, g := range resp {
		counts[g.GroupName] = g.DeviceCount
	}
	assert.Equal(t, int64(2), counts["Lab"])
	assert.Equal(t, int64(0), counts["Field"])
}

func TestUpdateGroup_NotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodPut, "/api/groups/999", `{"group_name":"Lab"}`, model.RoleViewer)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteGroup_RejectsNonEmpty(t *testing.T) {
	env := newTestEnv(t)

	lab := createGroup(t, env, `{"group_name":"Lab"}`)
	env.postHeartbeat(t, `{"device_id":"box-01"}`)
	w := env.request(t, http.MethodPut, "/api/devices/box-01",
		fmt.Sprintf(`{"group_id":%d}`, lab.ID), model.RoleViewer)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.request(t, http.MethodDelete, fmt.Sprintf("/api/groups/%d", lab.ID), "", model.RoleViewer)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Clearing the membership makes the delete legal.
	w = env.request(t, http.MethodPut, "/api/devices/box-01", `{"group_id":0}`, model.RoleViewer)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.request(t, http.MethodDelete, fmt.Sprintf("/api/groups/%d", lab.ID), "", model.RoleViewer)
	assert.Equal(t, http.StatusOK, w.Code)

	var count int64
	env.db.Model(&model.DeviceGroup{}).Count(&count)
	assert.Equal(t, int64(0), count)
}
