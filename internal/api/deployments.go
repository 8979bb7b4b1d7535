package api

import (
	"encoding/json"
	"net/http"

	types "github.com/eagraf/habitat-workspaces/core/api"
	"github.com/eagraf/habitat-workspaces/core/state/workspace"
	"github.com/eagraf/habitat-workspaces/internal/orchestrator"
	"github.com/eagraf/habitat-workspaces/internal/tasks"
	"github.com/gorilla/mux"
)

type CreateDeploymentRoute struct {
	workspaces Workspaces
}

func NewCreateDeploymentRoute(workspaces Workspaces) *CreateDeploymentRoute {
	return &CreateDeploymentRoute{
		workspaces: workspaces,
	}
}

func (h *CreateDeploymentRoute) Pattern() string {
	return "/deployments"
}

func (h *CreateDeploymentRoute) Method() string {
	return http.MethodPost
}

func (h *CreateDeploymentRoute) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req types.PostDeploymentRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Owner == "" || req.ProjectID == "" || len(req.Files) == 0 {
		http.Error(w, "owner, project_id and files are required", http.StatusBadRequest)
		return
	}

	d := workspace.NewDeployment(req.Name, req.Owner, req.ProjectID)
	d.Runtime = req.Runtime
	d.Handler = req.Handler
	d.Files = req.Files
	if req.EnvVars != nil {
		d.EnvVars = req.EnvVars
	}

	err = h.workspaces.CreateDeployment(r.Context(), d)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, &types.GetDeploymentResponse{Deployment: d})
}

type GetDeploymentRoute struct {
	workspaces Workspaces
}

func NewGetDeploymentRoute(workspaces Workspaces) *GetDeploymentRoute {
	return &GetDeploymentRoute{
		workspaces: workspaces,
	}
}

func (h *GetDeploymentRoute) Pattern() string {
	return "/deployments/{id}"
}

func (h *GetDeploymentRoute) Method() string {
	return http.MethodGet
}

func (h *GetDeploymentRoute) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d, err := h.workspaces.GetDeployment(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &types.GetDeploymentResponse{
		Deployment: d,
		Endpoint:   d.Endpoint(),
	})
}

// DeploymentActionRoute queues a deploy or a delete of a function deployment.
type DeploymentActionRoute struct {
	workspaces Workspaces
	queue      TaskQueue
	action     tasks.Action
	method     string
	pattern    string
}

func NewDeployRoute(workspaces Workspaces, queue TaskQueue) *DeploymentActionRoute {
	return &DeploymentActionRoute{
		workspaces: workspaces,
		queue:      queue,
		action:     tasks.ActionDeploy,
		method:     http.MethodPost,
		pattern:    "/deployments/{id}/deploy",
	}
}

func NewDeleteDeploymentRoute(workspaces Workspaces, queue TaskQueue) *DeploymentActionRoute {
	return &DeploymentActionRoute{
		workspaces: workspaces,
		queue:      queue,
		action:     tasks.ActionDeleteDeployment,
		method:     http.MethodDelete,
		pattern:    "/deployments/{id}",
	}
}

func (h *DeploymentActionRoute) Pattern() string {
	return h.pattern
}

func (h *DeploymentActionRoute) Method() string {
	return h.method
}

func (h *DeploymentActionRoute) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	d, err := h.workspaces.GetDeployment(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !d.IsActive {
		writeError(w, orchestrator.ErrDeploymentInactive)
		return
	}

	handle, err := h.queue.Submit(r.Context(), h.action, id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeTask(w, handle, h.action, id)
}
