package docker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/swarm"
	"github.com/eagraf/habitat-workspaces/core/state/workspace"
	"github.com/eagraf/habitat-workspaces/internal/spawner"
)

const (
	serviceRestartAttempts = 3
	serviceRestartWindow   = 10 * time.Second
)

func (s *Spawner) startService(ctx context.Context, ws *workspace.Workspace) error {
	svc, _, err := s.client.ServiceInspectWithRaw(ctx, ws.Slug(), types.ServiceInspectOptions{})
	if err == nil {
		logger(ws).Debug().Msgf("Service %s already exists", svc.ID)
		return nil
	} else if !isNotFound(err) {
		return err
	}

	err = s.ensureNetwork(ctx)
	if err != nil {
		return err
	}
	spec, err := s.serviceSpec(ws)
	if err != nil {
		return err
	}
	resp, err := s.client.ServiceCreate(ctx, spec, types.ServiceCreateOptions{})
	if err != nil {
		return fmt.Errorf("creating service for workspace %s: %w", ws.ID, err)
	}
	for _, w := range resp.Warnings {
		logger(ws).Warn().Msg(w)
	}

	state := workspace.DockerState{
		ServiceID:     resp.ID,
		ContainerName: ws.Slug(),
	}
	err = workspace.EncodeState(&state, ws.State)
	if err != nil {
		return err
	}
	logger(ws).Info().Msgf("Created docker service %s", resp.ID)
	return s.saver.SaveWorkspaceState(ctx, ws)
}

func (s *Spawner) serviceSpec(ws *workspace.Workspace) (swarm.ServiceSpec, error) {
	memory, err := s.memoryLimit(ws)
	if err != nil {
		return swarm.ServiceSpec{}, err
	}
	port, err := strconv.ParseUint(spawner.ServerPort(ws), 10, 32)
	if err != nil {
		return swarm.ServiceSpec{}, err
	}

	var mounts []mount.Mount
	for _, b := range s.binds(ws) {
		mounts = append(mounts, mount.Mount{
			Type:     mount.TypeBind,
			Source:   b.Source,
			Target:   b.Target,
			ReadOnly: b.ReadOnly,
		})
	}

	maxAttempts := uint64(serviceRestartAttempts)
	window := serviceRestartWindow
	labels := s.labels(ws)
	return swarm.ServiceSpec{
		Annotations: swarm.Annotations{
			Name:   ws.Slug(),
			Labels: labels,
		},
		TaskTemplate: swarm.TaskSpec{
			ContainerSpec: &swarm.ContainerSpec{
				Image:  ws.Image,
				Args:   spawner.BuildCommand(ws, s.opts.Command),
				Env:    ws.EnvList(),
				Labels: labels,
				Mounts: mounts,
			},
			Resources: &swarm.ResourceRequirements{
				Limits: &swarm.Limit{MemoryBytes: memory},
			},
			RestartPolicy: &swarm.RestartPolicy{
				Condition:   swarm.RestartPolicyConditionOnFailure,
				MaxAttempts: &maxAttempts,
				Window:      &window,
			},
			Networks: []swarm.NetworkAttachmentConfig{
				{Target: s.opts.Network},
			},
		},
		UpdateConfig: &swarm.UpdateConfig{
			Parallelism: 1,
		},
		EndpointSpec: &swarm.EndpointSpec{
			Mode: swarm.ResolutionModeVIP,
			Ports: []swarm.PortConfig{
				{
					Protocol:    swarm.PortConfigProtocolTCP,
					TargetPort:  uint32(port),
					PublishMode: swarm.PortConfigPublishModeIngress,
				},
			},
		},
	}, nil
}

func (s *Spawner) ensureNetwork(ctx context.Context) error {
	networks, err := s.client.NetworkList(ctx, types.NetworkListOptions{
		Filters: filters.NewArgs(filters.Arg("name", s.opts.Network)),
	})
	if err != nil {
		return err
	}
	for _, n := range networks {
		if n.Name == s.opts.Network {
			return nil
		}
	}
	_, err = s.client.NetworkCreate(ctx, s.opts.Network, types.NetworkCreate{
		Driver:     "overlay",
		Attachable: true,
	})
	return err
}

func (s *Spawner) removeService(ctx context.Context, ws *workspace.Workspace) error {
	err := s.client.ServiceRemove(ctx, ws.Slug())
	if isNotFound(err) {
		return nil
	}
	return err
}

func (s *Spawner) serviceStatus(ctx context.Context, ws *workspace.Workspace) workspace.Status {
	_, _, err := s.client.ServiceInspectWithRaw(ctx, ws.Slug(), types.ServiceInspectOptions{})
	if isNotFound(err) {
		return workspace.StatusStopped
	} else if err != nil {
		logger(ws).Error().Err(err).Msg("error inspecting service")
		return workspace.StatusError
	}

	tasks, err := s.client.TaskList(ctx, types.TaskListOptions{
		Filters: filters.NewArgs(filters.Arg("service", ws.Slug())),
	})
	if err != nil {
		logger(ws).Error().Err(err).Msg("error listing service tasks")
		return workspace.StatusError
	}
	if len(tasks) == 0 {
		return workspace.StatusLaunching
	}

	latest := tasks[0]
	for _, t := range tasks[1:] {
		if t.Meta.CreatedAt.After(latest.Meta.CreatedAt) {
			latest = t
		}
	}
	switch latest.Status.State {
	case swarm.TaskStateRunning:
		return workspace.StatusRunning
	case swarm.TaskStateNew, swarm.TaskStateAllocated, swarm.TaskStatePending, swarm.TaskStateAssigned,
		swarm.TaskStateAccepted, swarm.TaskStatePreparing, swarm.TaskStateReady, swarm.TaskStateStarting:
		return workspace.StatusLaunching
	default:
		return workspace.StatusStopped
	}
}
