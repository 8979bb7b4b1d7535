package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	types "github.com/eagraf/habitat-workspaces/core/api"
	"github.com/eagraf/habitat-workspaces/core/state/workspace"
	"github.com/eagraf/habitat-workspaces/internal/api/mocks"
	"github.com/eagraf/habitat-workspaces/internal/orchestrator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestListWorkspacesRoute(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := mocks.NewMockWorkspaces(ctrl)
	server := newServer(t, NewListWorkspacesRoute(m), NewCreateWorkspaceRoute(m))

	ws := testWorkspace()
	m.EXPECT().ListWorkspaces(gomock.Any(), "alice").Return([]*workspace.Workspace{ws}, nil).Times(1)
	m.EXPECT().ListWorkspaces(gomock.Any(), "").Return(nil, nil).Times(1)

	resp, err := http.Get(server.URL + "/workspaces?owner=alice")
	require.Nil(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var list types.ListWorkspacesResponse
	require.Nil(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list.Workspaces, 1)
	assert.Equal(t, ws.ID, list.Workspaces[0].ID)

	resp, err = http.Get(server.URL + "/workspaces")
	require.Nil(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	list = types.ListWorkspacesResponse{}
	require.Nil(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.NotNil(t, list.Workspaces)
	assert.Empty(t, list.Workspaces)
}

func TestRunStatisticsRoute(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := mocks.NewMockWorkspaces(ctrl)
	server := newServer(t, NewRunStatisticsRoute(m))

	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	runs := []*workspace.RunStatistics{
		{ID: 1, WorkspaceID: "ws1", Start: start, Stop: start.Add(time.Hour)},
		{ID: 2, WorkspaceID: "ws1", Start: start.Add(2 * time.Hour)},
	}
	m.EXPECT().RunStatistics(gomock.Any(), "ws1").Return(runs, nil).Times(1)
	m.EXPECT().RunStatistics(gomock.Any(), "missing").Return(nil, workspace.ErrWorkspaceNotFound).Times(1)

	resp, err := http.Get(server.URL + "/workspaces/ws1/stats")
	require.Nil(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var stats types.GetRunStatisticsResponse
	require.Nil(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Len(t, stats.Runs, 2)
	assert.Equal(t, time.Hour, stats.Total)
	assert.True(t, stats.Runs[1].IsOpen())

	resp, err = http.Get(server.URL + "/workspaces/missing/stats")
	require.Nil(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHistoryRoute(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := mocks.NewMockWorkspaces(ctrl)
	server := newServer(t, NewHistoryRoute(m))

	patches := []json.RawMessage{
		json.RawMessage(`[{"op":"add","path":"/container_id","value":"c1"}]`),
		json.RawMessage(`[{"op":"replace","path":"/container_id","value":"c2"}]`),
	}
	m.EXPECT().StateHistory(gomock.Any(), "ws1").Return(patches, nil).Times(1)
	m.EXPECT().StateAt(gomock.Any(), "ws1", int64(1)).Return(workspace.StateBlob{workspace.KeyContainerID: "c1"}, nil).Times(1)
	m.EXPECT().StateAt(gomock.Any(), "ws1", int64(9)).Return(nil, fmt.Errorf("%w: 9", orchestrator.ErrVersionOutOfRange)).Times(1)

	resp, err := http.Get(server.URL + "/workspaces/ws1/history")
	require.Nil(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var history types.GetHistoryResponse
	require.Nil(t, json.NewDecoder(resp.Body).Decode(&history))
	require.Len(t, history.Patches, 2)
	assert.JSONEq(t, string(patches[1]), string(history.Patches[1]))
	assert.Nil(t, history.Version)

	resp, err = http.Get(server.URL + "/workspaces/ws1/history?version=1")
	require.Nil(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	history = types.GetHistoryResponse{}
	require.Nil(t, json.NewDecoder(resp.Body).Decode(&history))
	require.NotNil(t, history.Version)
	assert.Equal(t, int64(1), *history.Version)
	assert.Equal(t, "c1", history.State.GetString(workspace.KeyContainerID))

	resp, err = http.Get(server.URL + "/workspaces/ws1/history?version=9")
	require.Nil(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(server.URL + "/workspaces/ws1/history?version=latest")
	require.Nil(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
