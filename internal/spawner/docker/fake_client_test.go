package docker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/swarm"
	"github.com/docker/docker/errdefs"
	"github.com/docker/go-connections/nat"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// fakeClient is an in-memory docker engine good enough for the spawner.
type fakeClient struct {
	mu          sync.Mutex
	nextID      int
	containers  map[string]*types.ContainerJSON
	hostConfigs map[string]*container.HostConfig
	services    map[string]swarm.ServiceSpec
	tasks       map[string][]swarm.Task
	networks    []types.NetworkResource
	removed     []string
}

var _ Client = &fakeClient{}

func newFakeClient() *fakeClient {
	return &fakeClient{
		containers:  make(map[string]*types.ContainerJSON),
		hostConfigs: make(map[string]*container.HostConfig),
		services:    make(map[string]swarm.ServiceSpec),
		tasks:       make(map[string][]swarm.Task),
	}
}

func notFound(what, id string) error {
	return errdefs.NotFound(fmt.Errorf("no such %s: %s", what, id))
}

// lookup resolves a container by name or id. Callers hold the lock.
func (c *fakeClient) lookup(id string) (string, *types.ContainerJSON) {
	if ctr, ok := c.containers[id]; ok {
		return id, ctr
	}
	for name, ctr := range c.containers {
		if ctr.ID == id {
			return name, ctr
		}
	}
	return "", nil
}

func (c *fakeClient) ContainerInspect(_ context.Context, id string) (types.ContainerJSON, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ctr := c.lookup(id)
	if ctr == nil {
		return types.ContainerJSON{}, notFound("container", id)
	}
	return *ctr, nil
}

func (c *fakeClient) ContainerCreate(_ context.Context, cfg *container.Config, hostCfg *container.HostConfig, _ *network.NetworkingConfig, _ *ocispec.Platform, name string) (container.CreateResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.containers[name]; ok {
		return container.CreateResponse{}, errdefs.Conflict(fmt.Errorf("name %s in use", name))
	}
	c.nextID++
	id := fmt.Sprintf("ctr-%d", c.nextID)
	c.containers[name] = &types.ContainerJSON{
		ContainerJSONBase: &types.ContainerJSONBase{
			ID:    id,
			Name:  "/" + name,
			State: &types.ContainerState{Status: "created"},
		},
		Config:          cfg,
		NetworkSettings: &types.NetworkSettings{},
	}
	c.hostConfigs[name] = hostCfg
	return container.CreateResponse{ID: id}, nil
}

func (c *fakeClient) ContainerStart(_ context.Context, id string, _ container.StartOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ctr := c.lookup(id)
	if ctr == nil {
		return notFound("container", id)
	}
	ctr.State.Status = "running"
	ctr.State.Running = true
	ports := nat.PortMap{}
	for p := range ctr.Config.ExposedPorts {
		ports[p] = []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: "32768"}}
	}
	ctr.NetworkSettings.Ports = ports
	return nil
}

func (c *fakeClient) ContainerStop(_ context.Context, id string, _ container.StopOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ctr := c.lookup(id)
	if ctr == nil {
		return notFound("container", id)
	}
	ctr.State.Status = "exited"
	ctr.State.Running = false
	return nil
}

func (c *fakeClient) ContainerRemove(_ context.Context, id string, _ container.RemoveOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	name, ctr := c.lookup(id)
	if ctr == nil {
		return notFound("container", id)
	}
	delete(c.containers, name)
	delete(c.hostConfigs, name)
	c.removed = append(c.removed, ctr.ID)
	return nil
}

func (c *fakeClient) ServiceCreate(_ context.Context, spec swarm.ServiceSpec, _ types.ServiceCreateOptions) (types.ServiceCreateResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[spec.Name] = spec
	c.tasks[spec.Name] = []swarm.Task{
		{
			Meta:   swarm.Meta{CreatedAt: time.Now()},
			Status: swarm.TaskStatus{State: swarm.TaskStatePreparing},
		},
	}
	return types.ServiceCreateResponse{ID: "svc-" + spec.Name}, nil
}

func (c *fakeClient) ServiceInspectWithRaw(_ context.Context, id string, _ types.ServiceInspectOptions) (swarm.Service, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	spec, ok := c.services[strings.TrimPrefix(id, "svc-")]
	if !ok {
		return swarm.Service{}, nil, notFound("service", id)
	}
	return swarm.Service{ID: "svc-" + spec.Name, Spec: spec}, nil, nil
}

func (c *fakeClient) ServiceRemove(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	name := strings.TrimPrefix(id, "svc-")
	if _, ok := c.services[name]; !ok {
		return notFound("service", id)
	}
	delete(c.services, name)
	delete(c.tasks, name)
	return nil
}

func (c *fakeClient) TaskList(_ context.Context, opts types.TaskListOptions) ([]swarm.Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []swarm.Task
	for _, name := range opts.Filters.Get("service") {
		out = append(out, c.tasks[name]...)
	}
	return out, nil
}

// setTaskState appends a newer task for the service in the given state.
func (c *fakeClient) setTaskState(service string, state swarm.TaskState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks[service] = append(c.tasks[service], swarm.Task{
		Meta:   swarm.Meta{CreatedAt: time.Now().Add(time.Minute)},
		Status: swarm.TaskStatus{State: state},
	})
}

func (c *fakeClient) NetworkList(_ context.Context, _ types.NetworkListOptions) ([]types.NetworkResource, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.networks, nil
}

func (c *fakeClient) NetworkCreate(_ context.Context, name string, opts types.NetworkCreate) (types.NetworkCreateResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.networks = append(c.networks, types.NetworkResource{Name: name, Driver: opts.Driver})
	return types.NetworkCreateResponse{ID: "net-" + name}, nil
}
