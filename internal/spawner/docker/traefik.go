package docker

import (
	"fmt"

	"github.com/eagraf/habitat-workspaces/core/state/workspace"
	"github.com/eagraf/habitat-workspaces/internal/spawner"
)

// traefikLabels route the workspace endpoint prefix to its container port.
func traefikLabels(ws *workspace.Workspace, apiVersion string) map[string]string {
	return map[string]string{
		"traefik.enable":        "true",
		"traefik.port":          spawner.ServerPort(ws),
		"traefik.frontend.rule": fmt.Sprintf("PathPrefix:%s", spawner.EndpointBase(ws, apiVersion)),
	}
}
