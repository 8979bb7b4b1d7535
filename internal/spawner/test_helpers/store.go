package test_helpers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/eagraf/habitat-workspaces/core/state/workspace"
)

// MemoryStore keeps workspaces and deployments in memory with the same
// optimistic versioning rules as the real store.
type MemoryStore struct {
	mu          sync.Mutex
	workspaces  map[string]*workspace.Workspace
	deployments map[string]*workspace.Deployment
	Saves       int
}

func NewMemoryStore(workspaces ...*workspace.Workspace) *MemoryStore {
	s := &MemoryStore{
		workspaces:  make(map[string]*workspace.Workspace),
		deployments: make(map[string]*workspace.Deployment),
	}
	for _, ws := range workspaces {
		s.workspaces[ws.ID] = cloneWorkspace(ws)
	}
	return s
}

func (s *MemoryStore) GetWorkspace(_ context.Context, id string) (*workspace.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, ok := s.workspaces[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", workspace.ErrWorkspaceNotFound, id)
	}
	return cloneWorkspace(ws), nil
}

func (s *MemoryStore) SaveWorkspaceState(_ context.Context, ws *workspace.Workspace) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.workspaces[ws.ID]
	if ok && cur.StateVersion != ws.StateVersion {
		return workspace.ErrStateConflict
	}
	ws.StateVersion++
	s.workspaces[ws.ID] = cloneWorkspace(ws)
	s.Saves++
	return nil
}

func (s *MemoryStore) PutDeployment(d *workspace.Deployment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deployments[d.ID] = cloneDeployment(d)
}

func (s *MemoryStore) GetDeployment(_ context.Context, id string) (*workspace.Deployment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deployments[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", workspace.ErrDeploymentNotFound, id)
	}
	return cloneDeployment(d), nil
}

func (s *MemoryStore) SaveDeploymentState(_ context.Context, d *workspace.Deployment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.deployments[d.ID]
	if ok && cur.StateVersion != d.StateVersion {
		return workspace.ErrStateConflict
	}
	d.StateVersion++
	s.deployments[d.ID] = cloneDeployment(d)
	s.Saves++
	return nil
}

func cloneWorkspace(ws *workspace.Workspace) *workspace.Workspace {
	c := *ws
	c.State = cloneBlob(ws.State)
	return &c
}

func cloneDeployment(d *workspace.Deployment) *workspace.Deployment {
	c := *d
	c.State = cloneBlob(d.State)
	return &c
}

// cloneBlob deep copies through JSON, the same way a database round trip would.
func cloneBlob(b workspace.StateBlob) workspace.StateBlob {
	raw, err := json.Marshal(b)
	if err != nil {
		panic(err)
	}
	var out workspace.StateBlob
	err = json.Unmarshal(raw, &out)
	if err != nil {
		panic(err)
	}
	if out == nil {
		out = workspace.StateBlob{}
	}
	return out
}
