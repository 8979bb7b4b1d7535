package api

//go:generate mockgen -source=workspaces.go -destination=mocks/mock_workspaces.go -package=mocks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	types "github.com/eagraf/habitat-workspaces/core/api"
	"github.com/eagraf/habitat-workspaces/core/state/workspace"
	"github.com/eagraf/habitat-workspaces/internal/orchestrator"
	"github.com/eagraf/habitat-workspaces/internal/spawner"
	"github.com/eagraf/habitat-workspaces/internal/tasks"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// Workspaces is the synchronous part of the orchestrator the HTTP surface uses.
type Workspaces interface {
	CreateWorkspace(ctx context.Context, ws *workspace.Workspace) error
	GetWorkspace(ctx context.Context, id string) (*workspace.Workspace, error)
	ListWorkspaces(ctx context.Context, owner string) ([]*workspace.Workspace, error)
	RunStatistics(ctx context.Context, id string) ([]*workspace.RunStatistics, error)
	StateHistory(ctx context.Context, id string) ([]json.RawMessage, error)
	StateAt(ctx context.Context, id string, version int64) (workspace.StateBlob, error)
	DeleteWorkspace(ctx context.Context, id string) error
	Status(ctx context.Context, id string) (workspace.Status, error)
	CreateDeployment(ctx context.Context, d *workspace.Deployment) error
	GetDeployment(ctx context.Context, id string) (*workspace.Deployment, error)
}

// TaskQueue accepts long running actions.
type TaskQueue interface {
	Submit(ctx context.Context, action tasks.Action, targetID string) (*tasks.Handle, error)
	SubmitTask(ctx context.Context, action tasks.Action, targetID string, args any) (*tasks.Handle, error)
	Handle(id string) (*tasks.Handle, bool)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	bytes, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, err = w.Write(bytes)
	if err != nil {
		log.Error().Err(err).Msg("Writing response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, workspace.ErrWorkspaceNotFound), errors.Is(err, workspace.ErrDeploymentNotFound):
		code = http.StatusNotFound
	case errors.Is(err, workspace.ErrInvalidConfig), errors.Is(err, orchestrator.ErrVersionOutOfRange):
		code = http.StatusBadRequest
	case errors.Is(err, orchestrator.ErrWorkspaceInactive), errors.Is(err, orchestrator.ErrDeploymentInactive):
		code = http.StatusConflict
	case errors.Is(err, spawner.ErrNotDeployable), errors.Is(err, spawner.ErrNotAutogradeable):
		code = http.StatusNotImplemented
	default:
		log.Error().Err(err).Msg("Request failed")
	}
	http.Error(w, err.Error(), code)
}

func writeTask(w http.ResponseWriter, h *tasks.Handle, action tasks.Action, targetID string) {
	writeJSON(w, http.StatusAccepted, &types.TaskResponse{
		TaskID:   h.ID,
		Action:   string(action),
		TargetID: targetID,
	})
}

// CreateWorkspaceRoute validates and persists a new workspace without starting it.
type CreateWorkspaceRoute struct {
	workspaces Workspaces
}

func NewCreateWorkspaceRoute(workspaces Workspaces) *CreateWorkspaceRoute {
	return &CreateWorkspaceRoute{
		workspaces: workspaces,
	}
}

func (h *CreateWorkspaceRoute) Pattern() string {
	return "/workspaces"
}

func (h *CreateWorkspaceRoute) Method() string {
	return http.MethodPost
}

func (h *CreateWorkspaceRoute) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req types.PostWorkspaceRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Owner == "" || req.ProjectID == "" || req.Image == "" {
		http.Error(w, "owner, project_id and image are required", http.StatusBadRequest)
		return
	}

	ws := workspace.New(req.Name, req.Owner, req.ProjectID, req.Config)
	ws.Image = req.Image
	ws.StartupScript = req.StartupScript
	ws.Connected = req.Connected
	if req.EnvVars != nil {
		ws.EnvVars = req.EnvVars
	}
	if req.Size != nil {
		ws.Size = *req.Size
	}

	err = h.workspaces.CreateWorkspace(r.Context(), ws)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ws)
}

type GetWorkspaceRoute struct {
	workspaces Workspaces
}

func NewGetWorkspaceRoute(workspaces Workspaces) *GetWorkspaceRoute {
	return &GetWorkspaceRoute{
		workspaces: workspaces,
	}
}

func (h *GetWorkspaceRoute) Pattern() string {
	return "/workspaces/{id}"
}

func (h *GetWorkspaceRoute) Method() string {
	return http.MethodGet
}

func (h *GetWorkspaceRoute) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.workspaces.GetWorkspace(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

// DeleteWorkspaceRoute terminates the workspace and soft deletes it.
type DeleteWorkspaceRoute struct {
	workspaces Workspaces
}

func NewDeleteWorkspaceRoute(workspaces Workspaces) *DeleteWorkspaceRoute {
	return &DeleteWorkspaceRoute{
		workspaces: workspaces,
	}
}

func (h *DeleteWorkspaceRoute) Pattern() string {
	return "/workspaces/{id}"
}

func (h *DeleteWorkspaceRoute) Method() string {
	return http.MethodDelete
}

func (h *DeleteWorkspaceRoute) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	err := h.workspaces.DeleteWorkspace(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// WorkspaceActionRoute queues start, stop or terminate and answers immediately.
type WorkspaceActionRoute struct {
	workspaces Workspaces
	queue      TaskQueue
}

func NewWorkspaceActionRoute(workspaces Workspaces, queue TaskQueue) *WorkspaceActionRoute {
	return &WorkspaceActionRoute{
		workspaces: workspaces,
		queue:      queue,
	}
}

func (h *WorkspaceActionRoute) Pattern() string {
	return "/workspaces/{id}/{action:start|stop|terminate}"
}

func (h *WorkspaceActionRoute) Method() string {
	return http.MethodPost
}

func (h *WorkspaceActionRoute) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	action, err := tasks.ParseAction(vars["action"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ws, err := h.workspaces.GetWorkspace(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ws.IsActive {
		writeError(w, orchestrator.ErrWorkspaceInactive)
		return
	}

	handle, err := h.queue.Submit(r.Context(), action, id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeTask(w, handle, action, id)
}

type AutogradeRoute struct {
	workspaces Workspaces
	queue      TaskQueue
}

func NewAutogradeRoute(workspaces Workspaces, queue TaskQueue) *AutogradeRoute {
	return &AutogradeRoute{
		workspaces: workspaces,
		queue:      queue,
	}
}

func (h *AutogradeRoute) Pattern() string {
	return "/workspaces/{id}/autograde"
}

func (h *AutogradeRoute) Method() string {
	return http.MethodPost
}

func (h *AutogradeRoute) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req types.PostAutogradeRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Assignment == "" || req.Student == "" {
		http.Error(w, "assignment and student are required", http.StatusBadRequest)
		return
	}

	_, err = h.workspaces.GetWorkspace(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	handle, err := h.queue.SubmitTask(r.Context(), tasks.ActionAutograde, id, &spawner.AutogradeRequest{
		Course:     req.Course,
		Assignment: req.Assignment,
		Student:    req.Student,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeTask(w, handle, tasks.ActionAutograde, id)
}

// StatusRoute reports the status the active backend observes right now.
type StatusRoute struct {
	workspaces Workspaces
}

func NewStatusRoute(workspaces Workspaces) *StatusRoute {
	return &StatusRoute{
		workspaces: workspaces,
	}
}

func (h *StatusRoute) Pattern() string {
	return "/workspaces/{id}/status"
}

func (h *StatusRoute) Method() string {
	return http.MethodGet
}

func (h *StatusRoute) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	status, err := h.workspaces.Status(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &types.GetStatusResponse{
		WorkspaceID: id,
		Status:      status,
	})
}

type GetTaskRoute struct {
	queue TaskQueue
}

func NewGetTaskRoute(queue TaskQueue) *GetTaskRoute {
	return &GetTaskRoute{
		queue: queue,
	}
}

func (h *GetTaskRoute) Pattern() string {
	return "/tasks/{id}"
}

func (h *GetTaskRoute) Method() string {
	return http.MethodGet
}

func (h *GetTaskRoute) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	handle, ok := h.queue.Handle(mux.Vars(r)["id"])
	if !ok {
		http.Error(w, "task not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, handle.Status())
}
