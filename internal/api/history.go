package api

import (
	"net/http"
	"strconv"

	types "github.com/eagraf/habitat-workspaces/core/api"
	"github.com/eagraf/habitat-workspaces/core/state/workspace"
	"github.com/gorilla/mux"
)

// ListWorkspacesRoute lists active workspaces, optionally filtered by ?owner=.
type ListWorkspacesRoute struct {
	workspaces Workspaces
}

func NewListWorkspacesRoute(workspaces Workspaces) *ListWorkspacesRoute {
	return &ListWorkspacesRoute{
		workspaces: workspaces,
	}
}

func (h *ListWorkspacesRoute) Pattern() string {
	return "/workspaces"
}

func (h *ListWorkspacesRoute) Method() string {
	return http.MethodGet
}

func (h *ListWorkspacesRoute) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	list, err := h.workspaces.ListWorkspaces(r.Context(), r.URL.Query().Get("owner"))
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []*workspace.Workspace{}
	}
	writeJSON(w, http.StatusOK, &types.ListWorkspacesResponse{
		Workspaces: list,
	})
}

type RunStatisticsRoute struct {
	workspaces Workspaces
}

func NewRunStatisticsRoute(workspaces Workspaces) *RunStatisticsRoute {
	return &RunStatisticsRoute{
		workspaces: workspaces,
	}
}

func (h *RunStatisticsRoute) Pattern() string {
	return "/workspaces/{id}/stats"
}

func (h *RunStatisticsRoute) Method() string {
	return http.MethodGet
}

func (h *RunStatisticsRoute) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	runs, err := h.workspaces.RunStatistics(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := &types.GetRunStatisticsResponse{
		WorkspaceID: id,
		Runs:        runs,
	}
	if resp.Runs == nil {
		resp.Runs = []*workspace.RunStatistics{}
	}
	// Open runs count for nothing until they close.
	for _, run := range runs {
		resp.Total += run.Duration()
	}
	writeJSON(w, http.StatusOK, resp)
}

// HistoryRoute returns the state patch history of a workspace, or with
// ?version= the state as it was committed at that version.
type HistoryRoute struct {
	workspaces Workspaces
}

func NewHistoryRoute(workspaces Workspaces) *HistoryRoute {
	return &HistoryRoute{
		workspaces: workspaces,
	}
}

func (h *HistoryRoute) Pattern() string {
	return "/workspaces/{id}/history"
}

func (h *HistoryRoute) Method() string {
	return http.MethodGet
}

func (h *HistoryRoute) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	resp := &types.GetHistoryResponse{WorkspaceID: id}

	raw := r.URL.Query().Get("version")
	if raw == "" {
		patches, err := h.workspaces.StateHistory(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		resp.Patches = patches
		writeJSON(w, http.StatusOK, resp)
		return
	}

	version, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		http.Error(w, "version must be an integer", http.StatusBadRequest)
		return
	}
	state, err := h.workspaces.StateAt(r.Context(), id, version)
	if err != nil {
		writeError(w, err)
		return
	}
	if state == nil {
		state = workspace.StateBlob{}
	}
	resp.Version = &version
	resp.State = state
	writeJSON(w, http.StatusOK, resp)
}
