package docker

import (
	"context"
	"fmt"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	"github.com/eagraf/habitat-workspaces/core/state/workspace"
	"github.com/eagraf/habitat-workspaces/internal/spawner"
)

func (s *Spawner) startContainer(ctx context.Context, ws *workspace.Workspace, visiting map[string]bool) error {
	ctr, err := s.getContainer(ctx, ws)
	if err != nil {
		return err
	}

	var id string
	if ctr != nil {
		id = ctr.ID
	} else {
		id, err = s.createContainer(ctx, ws, visiting)
		if err != nil {
			return err
		}
	}

	if ctr == nil || ctr.State == nil || !ctr.State.Running {
		err = s.client.ContainerStart(ctx, id, container.StartOptions{})
		if err != nil {
			return fmt.Errorf("starting container %s: %w", id, err)
		}
	}

	state := workspace.DockerState{
		ContainerID:   id,
		ContainerName: ws.Slug(),
	}
	started, err := s.client.ContainerInspect(ctx, id)
	if err == nil && started.NetworkSettings != nil {
		state.Ports = hostPorts(started.NetworkSettings.Ports)
	}
	err = workspace.EncodeState(&state, ws.State)
	if err != nil {
		return err
	}

	logger(ws).Info().Msgf("Started docker container %s", id)
	return s.saver.SaveWorkspaceState(ctx, ws)
}

func (s *Spawner) createContainer(ctx context.Context, ws *workspace.Workspace, visiting map[string]bool) (string, error) {
	cfg, hostCfg, err := s.containerConfig(ctx, ws)
	if err != nil {
		return "", err
	}
	links, err := s.links(ctx, ws, visiting)
	if err != nil {
		return "", err
	}
	hostCfg.Links = links

	resp, err := s.client.ContainerCreate(ctx, cfg, hostCfg, nil, nil, ws.Slug())
	if err != nil {
		return "", fmt.Errorf("creating container for workspace %s: %w", ws.ID, err)
	}
	for _, w := range resp.Warnings {
		logger(ws).Warn().Msg(w)
	}
	return resp.ID, nil
}

func (s *Spawner) containerConfig(ctx context.Context, ws *workspace.Workspace) (*container.Config, *container.HostConfig, error) {
	memory, err := s.memoryLimit(ws)
	if err != nil {
		return nil, nil, err
	}
	port := exposedPort(ws)

	cfg := &container.Config{
		Image:        ws.Image,
		Cmd:          spawner.BuildCommand(ws, s.opts.Command),
		Env:          ws.EnvList(),
		ExposedPorts: nat.PortSet{port: struct{}{}},
		Labels:       s.labels(ws),
	}

	var binds []string
	for _, b := range s.binds(ws) {
		binds = append(binds, b.String())
	}
	hostCfg := &container.HostConfig{
		Binds: binds,
		PortBindings: nat.PortMap{
			port: []nat.PortBinding{{HostIP: "0.0.0.0"}},
		},
		RestartPolicy: container.RestartPolicy{Name: container.RestartPolicyOnFailure, MaximumRetryCount: 3},
		Resources: container.Resources{
			Memory:    memory,
			CPUShares: int64(ws.Size.CPU),
		},
	}

	if s.gpu != nil && gpuCompatible(ws) {
		info, err := s.gpu.probe(ctx)
		if err != nil {
			logger(ws).Debug().Err(err).Msg("no GPU available")
		} else {
			info.apply(hostCfg)
		}
	}
	return cfg, hostCfg, nil
}

// getContainer finds the workspace container by its canonical name. A container
// created with different environment variables is removed and reported as absent.
func (s *Spawner) getContainer(ctx context.Context, ws *workspace.Workspace) (*types.ContainerJSON, error) {
	ctr, err := s.client.ContainerInspect(ctx, ws.Slug())
	if isNotFound(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	if ctr.ContainerJSONBase == nil {
		return nil, fmt.Errorf("malformed inspect response for container %s", ws.Slug())
	}

	if CompareContainerEnv(ws, &ctr) {
		return &ctr, nil
	}

	logger(ws).Info().Msgf("Removing container %s with stale environment", ctr.ID)
	err = s.client.ContainerRemove(ctx, ctr.ID, container.RemoveOptions{Force: true})
	if err != nil && !isNotFound(err) {
		return nil, err
	}
	return nil, nil
}

// CompareContainerEnv reports whether ctr was created with exactly the workspace's
// current environment variables.
func CompareContainerEnv(ws *workspace.Workspace, ctr *types.ContainerJSON) bool {
	if ctr.Config == nil {
		return len(ws.EnvVars) == 0
	}
	env := make(map[string]string, len(ctr.Config.Env))
	for _, kv := range ctr.Config.Env {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			env[parts[0]] = parts[1]
		}
	}
	for k, v := range ws.EnvVars {
		cur, ok := env[k]
		if !ok || cur != v {
			return false
		}
	}
	// Values can only be compared for keys still present; removed keys are
	// caught through the label written at creation.
	keys, ok := ctr.Config.Labels[envKeysLabel]
	if !ok {
		return true
	}
	expected := make([]string, 0, len(ws.EnvVars))
	for _, kv := range ws.EnvList() {
		expected = append(expected, strings.SplitN(kv, "=", 2)[0])
	}
	return keys == strings.Join(expected, ",")
}

func (s *Spawner) stopContainer(ctx context.Context, ws *workspace.Workspace) error {
	timeout := int(s.opts.StopTimeout.Seconds())
	err := s.client.ContainerStop(ctx, ws.Slug(), container.StopOptions{Timeout: &timeout})
	if isNotFound(err) {
		return nil
	}
	return err
}

func (s *Spawner) removeContainer(ctx context.Context, ws *workspace.Workspace) error {
	err := s.client.ContainerRemove(ctx, ws.Slug(), container.RemoveOptions{Force: true, RemoveVolumes: true})
	if isNotFound(err) {
		return nil
	}
	return err
}

func (s *Spawner) containerStatus(ctx context.Context, ws *workspace.Workspace) workspace.Status {
	ctr, err := s.client.ContainerInspect(ctx, ws.Slug())
	if isNotFound(err) {
		return workspace.StatusStopped
	} else if err != nil {
		logger(ws).Error().Err(err).Msg("error inspecting container")
		return workspace.StatusError
	}
	if ctr.ContainerJSONBase == nil || ctr.State == nil {
		return workspace.StatusError
	}
	switch ctr.State.Status {
	case "restarting":
		return workspace.StatusLaunching
	case "running":
		return workspace.StatusRunning
	default:
		return workspace.StatusStopped
	}
}

func hostPorts(ports nat.PortMap) map[string]string {
	out := make(map[string]string)
	for port, bindings := range ports {
		for _, b := range bindings {
			if b.HostPort != "" {
				out[string(port)] = b.HostPort
				break
			}
		}
	}
	return out
}
