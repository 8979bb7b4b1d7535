package types

import (
	"encoding/json"
	"time"

	"github.com/eagraf/habitat-workspaces/core/state/workspace"
)

type PostWorkspaceRequest struct {
	Name          string                `json:"name"`
	Owner         string                `json:"owner"`
	ProjectID     string                `json:"project_id"`
	Config        workspace.Config      `json:"config"`
	EnvVars       map[string]string     `json:"env_vars,omitempty"`
	Image         string                `json:"image"`
	StartupScript string                `json:"startup_script,omitempty"`
	Size          *workspace.ServerSize `json:"server_size,omitempty"`
	Connected     []string              `json:"connected,omitempty"`
}

type PostDeploymentRequest struct {
	Name      string            `json:"name"`
	Owner     string            `json:"owner"`
	ProjectID string            `json:"project_id"`
	Runtime   string            `json:"runtime,omitempty"`
	Handler   string            `json:"handler,omitempty"`
	Files     []string          `json:"files"`
	EnvVars   map[string]string `json:"env_vars,omitempty"`
}

type PostAutogradeRequest struct {
	Course     string `json:"course"`
	Assignment string `json:"assignment"`
	Student    string `json:"student"`
}

// TaskResponse is returned for every action that is carried out asynchronously.
type TaskResponse struct {
	TaskID   string `json:"task_id"`
	Action   string `json:"action"`
	TargetID string `json:"target_id"`
}

type GetStatusResponse struct {
	WorkspaceID string           `json:"workspace_id"`
	Status      workspace.Status `json:"status"`
}

type GetDeploymentResponse struct {
	Deployment *workspace.Deployment `json:"deployment"`
	Endpoint   string                `json:"endpoint,omitempty"`
}

type ListWorkspacesResponse struct {
	Workspaces []*workspace.Workspace `json:"workspaces"`
}

type GetRunStatisticsResponse struct {
	WorkspaceID string                     `json:"workspace_id"`
	Runs        []*workspace.RunStatistics `json:"runs"`
	Total       time.Duration              `json:"total_ns"`
}

// GetHistoryResponse carries either the patch history or, when a version was
// requested, the state as committed at that version.
type GetHistoryResponse struct {
	WorkspaceID string              `json:"workspace_id"`
	Patches     []json.RawMessage   `json:"patches,omitempty"`
	Version     *int64              `json:"version,omitempty"`
	State       workspace.StateBlob `json:"state,omitempty"`
}
