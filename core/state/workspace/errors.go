package workspace

import "errors"

var (
	ErrWorkspaceNotFound  = errors.New("workspace not found")
	ErrDeploymentNotFound = errors.New("deployment not found")
	// ErrStateConflict is returned when a state blob write was based on a
	// version another writer has already replaced.
	ErrStateConflict = errors.New("workspace state was modified concurrently")
)
