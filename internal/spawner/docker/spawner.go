package docker

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/docker/docker/errdefs"
	"github.com/docker/go-connections/nat"
	units "github.com/docker/go-units"
	"github.com/eagraf/habitat-workspaces/core/state/workspace"
	"github.com/eagraf/habitat-workspaces/internal/constants"
	"github.com/eagraf/habitat-workspaces/internal/spawner"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const envKeysLabel = "habitat_env_keys"

type Options struct {
	Command     spawner.CommandOptions
	VolumeRoot  string
	SSHKeyRoot  string
	Swarm       bool
	Network     string
	StopTimeout time.Duration
	// NvidiaURL is the nvidia-docker plugin endpoint; GPU support is off when empty.
	NvidiaURL string
	Traefik   bool
}

// Spawner runs workspaces as containers on a single Docker engine, or as
// services when the engine is a swarm manager.
type Spawner struct {
	client Client
	saver  spawner.StateSaver
	loader spawner.WorkspaceLoader
	opts   Options
	gpu    *gpuProbe
}

var _ spawner.Spawner = &Spawner{}

func NewSpawner(client Client, saver spawner.StateSaver, loader spawner.WorkspaceLoader, opts Options) *Spawner {
	s := &Spawner{
		client: client,
		saver:  saver,
		loader: loader,
		opts:   opts,
	}
	if opts.NvidiaURL != "" {
		s.gpu = newGPUProbe(opts.NvidiaURL, &http.Client{Timeout: 5 * time.Second})
	}
	return s
}

func (s *Spawner) Backend() spawner.Backend {
	return spawner.BackendDocker
}

func (s *Spawner) Start(ctx context.Context, ws *workspace.Workspace) error {
	return s.start(ctx, ws, map[string]bool{})
}

// start carries the set of workspaces currently being started up the connected
// chain, so a cycle is reported instead of recursing forever.
func (s *Spawner) start(ctx context.Context, ws *workspace.Workspace, visiting map[string]bool) error {
	if visiting[ws.ID] {
		return fmt.Errorf("%w: %s", spawner.ErrDependencyCycle, ws.ID)
	}
	visiting[ws.ID] = true
	defer delete(visiting, ws.ID)

	if s.opts.Swarm {
		return s.startService(ctx, ws)
	}
	return s.startContainer(ctx, ws, visiting)
}

func (s *Spawner) Stop(ctx context.Context, ws *workspace.Workspace) error {
	// Services cannot be stopped without removing them.
	if s.opts.Swarm {
		return s.Terminate(ctx, ws)
	}
	return s.stopContainer(ctx, ws)
}

func (s *Spawner) Terminate(ctx context.Context, ws *workspace.Workspace) error {
	var err error
	if s.opts.Swarm {
		err = s.removeService(ctx, ws)
	} else {
		err = s.removeContainer(ctx, ws)
	}
	if err != nil {
		return err
	}
	ws.State.Delete(workspace.KeyContainerID, workspace.KeyContainerName, workspace.KeyServiceID, workspace.KeyPorts)
	return s.saver.SaveWorkspaceState(ctx, ws)
}

func (s *Spawner) Status(ctx context.Context, ws *workspace.Workspace) workspace.Status {
	if s.opts.Swarm {
		return s.serviceStatus(ctx, ws)
	}
	return s.containerStatus(ctx, ws)
}

func (s *Spawner) labels(ws *workspace.Workspace) map[string]string {
	keys := make([]string, 0, len(ws.EnvVars))
	for _, kv := range ws.EnvList() {
		keys = append(keys, strings.SplitN(kv, "=", 2)[0])
	}
	labels := map[string]string{
		constants.WorkspaceLabel: ws.ID,
		envKeysLabel:             strings.Join(keys, ","),
	}
	if s.opts.Traefik {
		for k, v := range traefikLabels(ws, s.opts.Command.APIVersion) {
			labels[k] = v
		}
	}
	return labels
}

func (s *Spawner) memoryLimit(ws *workspace.Workspace) (int64, error) {
	if ws.Size.Memory <= 0 {
		return 0, nil
	}
	return units.RAMInBytes(fmt.Sprintf("%dm", ws.Size.Memory))
}

func exposedPort(ws *workspace.Workspace) nat.Port {
	return nat.Port(spawner.ServerPort(ws) + "/tcp")
}

// bind is a host path mounted into the workspace container.
type bind struct {
	Source   string
	Target   string
	ReadOnly bool
}

func (b bind) String() string {
	if b.ReadOnly {
		return fmt.Sprintf("%s:%s:ro", b.Source, b.Target)
	}
	return fmt.Sprintf("%s:%s", b.Source, b.Target)
}

func (s *Spawner) binds(ws *workspace.Workspace) []bind {
	volume := ws.VolumePath(s.opts.VolumeRoot)
	binds := []bind{
		{Source: volume, Target: constants.ResourcesPath},
	}
	if s.opts.SSHKeyRoot != "" {
		binds = append(binds, bind{Source: fmt.Sprintf("%s/%s", s.opts.SSHKeyRoot, ws.Owner), Target: constants.SSHKeyPath, ReadOnly: true})
	}
	if ws.StartupScript != "" {
		binds = append(binds, bind{Source: fmt.Sprintf("%s/%s", volume, ws.StartupScript), Target: constants.StartupScriptPath, ReadOnly: true})
	}
	return binds
}

func isNotFound(err error) bool {
	return err != nil && errdefs.IsNotFound(err)
}

func logger(ws *workspace.Workspace) *zerolog.Logger {
	l := log.With().Str("workspace_id", ws.ID).Str("backend", string(spawner.BackendDocker)).Logger()
	return &l
}
