//go:generate mockgen -source=spawner.go -destination=mocks/mock_spawner.go -package=mocks

package spawner

import (
	"context"
	"errors"

	"github.com/eagraf/habitat-workspaces/core/state/workspace"
)

type Backend string

const (
	BackendDummy  Backend = "dummy"
	BackendDocker Backend = "docker"
	BackendECS    Backend = "ecs"
)

var (
	ErrBackendNotFound  = errors.New("no spawner found for backend")
	ErrDependencyCycle  = errors.New("connected workspaces form a cycle")
	ErrNotDeployable    = errors.New("active backend cannot deploy functions")
	ErrNotAutogradeable = errors.New("active backend cannot run autograde jobs")
)

// Spawner starts, stops and inspects workspaces on one backend. Implementations
// record backend handles in the workspace state blob and persist it through a
// StateSaver; callers never branch on the concrete backend.
type Spawner interface {
	Backend() Backend
	// Start provisions (idempotently where possible) and launches the workspace.
	Start(context.Context, *workspace.Workspace) error
	// Stop halts the workspace and keeps provisioned definitions. Stopping a
	// workspace with nothing provisioned is a no-op.
	Stop(context.Context, *workspace.Workspace) error
	// Terminate stops the workspace and destroys backend definitions so the next
	// Start provisions from scratch.
	Terminate(context.Context, *workspace.Workspace) error
	// Status asks the backend for the authoritative status. Backend failures are
	// reported as workspace.StatusError, never as errors.
	Status(context.Context, *workspace.Workspace) workspace.Status
}

// Deployer provisions function-style deployments.
type Deployer interface {
	Deploy(context.Context, *workspace.Deployment) error
	Delete(context.Context, *workspace.Deployment) error
}

type AutogradeRequest struct {
	Course     string `json:"course"`
	Assignment string `json:"assignment"`
	Student    string `json:"student"`
}

// Autograder is implemented by backends able to run one-shot grading jobs.
type Autograder interface {
	Autograde(context.Context, *workspace.Workspace, *AutogradeRequest) error
}

// StateSaver persists the state blob of a workspace. Implementations reject
// writes based on a stale StateVersion.
type StateSaver interface {
	SaveWorkspaceState(context.Context, *workspace.Workspace) error
}

type DeploymentStateSaver interface {
	SaveDeploymentState(context.Context, *workspace.Deployment) error
}

type WorkspaceLoader interface {
	GetWorkspace(ctx context.Context, id string) (*workspace.Workspace, error)
}
