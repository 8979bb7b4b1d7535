package spawner

import (
	"fmt"
	"strings"

	"github.com/eagraf/habitat-workspaces/core/state/workspace"
	"github.com/eagraf/habitat-workspaces/internal/constants"
)

// CommandOptions are the deployment-wide values baked into every runner command line.
type CommandOptions struct {
	APIVersion    string
	SigningSecret string
	SiteRoot      string
}

// Well-known launch lines per server type. {base} is replaced by EndpointBase.
// The runner inside the image parses these flags, so the tokens must not change.
var serverCommands = map[workspace.ServerType]string{
	workspace.TypeJupyter: "jupyter notebook --no-browser --NotebookApp.token= --NotebookApp.base_url={base} --NotebookApp.allow_origin=* --ip=0.0.0.0 --port=8888",
	workspace.TypeRStudio: "/init --www-port=8787 --www-root-path={base}",
}

var serverPorts = map[workspace.ServerType]string{
	workspace.TypeJupyter: "8888",
	workspace.TypeRStudio: "8787",
}

const defaultServerPort = "8000"

// EndpointBase is the path prefix the workspace is served under.
func EndpointBase(ws *workspace.Workspace, apiVersion string) string {
	return fmt.Sprintf("/%s/%s/projects/%s/servers/%s/endpoint/%s", apiVersion, ws.Owner, ws.ProjectID, ws.ID, ws.Config.Type)
}

// ServerPort is the container port the workspace process listens on.
func ServerPort(ws *workspace.Workspace) string {
	if p, ok := serverPorts[ws.Config.Type]; ok {
		return p
	}
	return defaultServerPort
}

// BuildCommand renders the container entrypoint arguments for a workspace.
func BuildCommand(ws *workspace.Workspace, opts CommandOptions) []string {
	cmd := []string{
		constants.RunnerBinary,
		"--key=" + ws.ServerKey,
		"--ns=" + ws.Owner,
		"--projectID=" + ws.ProjectID,
		"--serverID=" + ws.ID,
		"--secret=" + opts.SigningSecret,
		"--root=" + opts.SiteRoot,
	}
	cfg := ws.Config
	if cfg.Script != "" {
		cmd = append(cmd, "--script="+cfg.Script)
	}
	if cfg.Function != "" {
		cmd = append(cmd, "--function="+cfg.Function)
	}
	if cfg.Type != "" {
		cmd = append(cmd, "--type="+string(cfg.Type))
	}
	if tmpl, ok := serverCommands[cfg.Type]; ok {
		line := strings.ReplaceAll(tmpl, "{base}", EndpointBase(ws, opts.APIVersion))
		cmd = append(cmd, strings.Fields(line)...)
	} else if cfg.Command != "" {
		cmd = append(cmd, strings.Fields(cfg.Command)...)
	}
	return cmd
}
