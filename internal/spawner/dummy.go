package spawner

import (
	"context"
	"sync"

	"github.com/eagraf/habitat-workspaces/core/state/workspace"
)

// DummySpawner provisions nothing. It only remembers which workspaces were
// started so Status answers consistently in tests and local development.
type DummySpawner struct {
	mu      sync.Mutex
	running map[string]bool
}

var _ Spawner = &DummySpawner{}

func NewDummySpawner() *DummySpawner {
	return &DummySpawner{
		running: make(map[string]bool),
	}
}

func (d *DummySpawner) Backend() Backend {
	return BackendDummy
}

func (d *DummySpawner) Start(_ context.Context, ws *workspace.Workspace) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.running[ws.ID] = true
	return nil
}

func (d *DummySpawner) Stop(_ context.Context, ws *workspace.Workspace) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.running, ws.ID)
	return nil
}

func (d *DummySpawner) Terminate(ctx context.Context, ws *workspace.Workspace) error {
	return d.Stop(ctx, ws)
}

func (d *DummySpawner) Status(_ context.Context, ws *workspace.Workspace) workspace.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running[ws.ID] {
		return workspace.StatusRunning
	}
	return workspace.StatusStopped
}
