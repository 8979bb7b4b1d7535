package spawner

import (
	"fmt"
)

// Registry holds every constructed spawner and the one chosen by configuration.
// The choice is global for the deployment, not per workspace.
type Registry struct {
	spawners map[Backend]Spawner
	active   Backend
	deployer Deployer
}

func NewRegistry(active Backend, spawners ...Spawner) (*Registry, error) {
	r := &Registry{
		spawners: make(map[Backend]Spawner),
		active:   active,
	}
	for _, s := range spawners {
		r.spawners[s.Backend()] = s
	}
	if _, ok := r.spawners[active]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrBackendNotFound, active)
	}
	return r, nil
}

// WithDeployer attaches the function deployer used for Deployment records.
func (r *Registry) WithDeployer(d Deployer) *Registry {
	r.deployer = d
	return r
}

func (r *Registry) Active() Spawner {
	return r.spawners[r.active]
}

func (r *Registry) Get(backend Backend) (Spawner, error) {
	s, ok := r.spawners[backend]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBackendNotFound, backend)
	}
	return s, nil
}

func (r *Registry) Deployer() (Deployer, error) {
	if r.deployer == nil {
		return nil, ErrNotDeployable
	}
	return r.deployer, nil
}

func (r *Registry) Autograder() (Autograder, error) {
	a, ok := r.Active().(Autograder)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotAutogradeable, r.active)
	}
	return a, nil
}
