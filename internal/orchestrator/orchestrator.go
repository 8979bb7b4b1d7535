package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/eagraf/habitat-workspaces/core/state/workspace"
	"github.com/eagraf/habitat-workspaces/internal/pubsub"
	"github.com/eagraf/habitat-workspaces/internal/spawner"
	"github.com/eagraf/habitat-workspaces/internal/tasks"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrWorkspaceInactive  = errors.New("workspace has been deleted")
	ErrDeploymentInactive = errors.New("deployment has been deleted")
	ErrVersionOutOfRange  = errors.New("state version out of range")
)

// conflictRetries bounds how often an operation reloads a workspace after
// losing a state write to a concurrent writer.
const conflictRetries = 3

type Store interface {
	CreateWorkspace(ctx context.Context, ws *workspace.Workspace) error
	GetWorkspace(ctx context.Context, id string) (*workspace.Workspace, error)
	DeactivateWorkspace(ctx context.Context, id string) error
	ListWorkspaces(ctx context.Context, owner string) ([]*workspace.Workspace, error)
	ListRunStatistics(ctx context.Context, workspaceID string) ([]*workspace.RunStatistics, error)
	StateHistory(ctx context.Context, entityID string) ([][]byte, error)
	StateAt(ctx context.Context, entityID string, version int64) (workspace.StateBlob, error)
	CreateDeployment(ctx context.Context, d *workspace.Deployment) error
	GetDeployment(ctx context.Context, id string) (*workspace.Deployment, error)
	DeactivateDeployment(ctx context.Context, id string) error
}

// Orchestrator drives workspace lifecycle operations through the active
// spawner and announces status transitions to subscribers.
type Orchestrator struct {
	store     Store
	registry  *spawner.Registry
	publisher pubsub.Publisher[pubsub.StatusEvent]
}

var _ tasks.Executor = &Orchestrator{}

func NewOrchestrator(store Store, registry *spawner.Registry, publisher pubsub.Publisher[pubsub.StatusEvent]) *Orchestrator {
	return &Orchestrator{
		store:     store,
		registry:  registry,
		publisher: publisher,
	}
}

// CreateWorkspace validates the config and persists the record. Nothing is
// provisioned until the workspace is started.
func (o *Orchestrator) CreateWorkspace(ctx context.Context, ws *workspace.Workspace) error {
	err := workspace.ValidateConfig(ws.Config)
	if err != nil {
		return err
	}
	return o.store.CreateWorkspace(ctx, ws)
}

func (o *Orchestrator) GetWorkspace(ctx context.Context, id string) (*workspace.Workspace, error) {
	return o.store.GetWorkspace(ctx, id)
}

// ListWorkspaces returns the active workspaces, of one owner when owner is set.
func (o *Orchestrator) ListWorkspaces(ctx context.Context, owner string) ([]*workspace.Workspace, error) {
	return o.store.ListWorkspaces(ctx, owner)
}

func (o *Orchestrator) RunStatistics(ctx context.Context, id string) ([]*workspace.RunStatistics, error) {
	_, err := o.store.GetWorkspace(ctx, id)
	if err != nil {
		return nil, err
	}
	return o.store.ListRunStatistics(ctx, id)
}

// StateHistory returns the workspace's state patches, oldest first.
func (o *Orchestrator) StateHistory(ctx context.Context, id string) ([]json.RawMessage, error) {
	_, err := o.store.GetWorkspace(ctx, id)
	if err != nil {
		return nil, err
	}
	patches, err := o.store.StateHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]json.RawMessage, 0, len(patches))
	for _, p := range patches {
		out = append(out, json.RawMessage(p))
	}
	return out, nil
}

// StateAt rebuilds the workspace state as committed at version.
func (o *Orchestrator) StateAt(ctx context.Context, id string, version int64) (workspace.StateBlob, error) {
	ws, err := o.store.GetWorkspace(ctx, id)
	if err != nil {
		return nil, err
	}
	if version < 0 || version > ws.StateVersion {
		return nil, fmt.Errorf("%w: %d not in [0, %d]", ErrVersionOutOfRange, version, ws.StateVersion)
	}
	return o.store.StateAt(ctx, id, version)
}

func (o *Orchestrator) Start(ctx context.Context, id string) error {
	return o.transition(ctx, id, "start", workspace.StatusPending, spawner.Spawner.Start)
}

func (o *Orchestrator) Stop(ctx context.Context, id string) error {
	return o.transition(ctx, id, "stop", workspace.StatusStopping, spawner.Spawner.Stop)
}

func (o *Orchestrator) Terminate(ctx context.Context, id string) error {
	return o.transition(ctx, id, "terminate", workspace.StatusTerminating, spawner.Spawner.Terminate)
}

// Status asks the active backend. The cached LastStatus is never consulted.
func (o *Orchestrator) Status(ctx context.Context, id string) (workspace.Status, error) {
	ws, err := o.store.GetWorkspace(ctx, id)
	if err != nil {
		return "", err
	}
	return o.registry.Active().Status(ctx, ws), nil
}

// DeleteWorkspace terminates the workspace and soft deletes its record.
func (o *Orchestrator) DeleteWorkspace(ctx context.Context, id string) error {
	ws, err := o.store.GetWorkspace(ctx, id)
	if err != nil {
		return err
	}
	if ws.IsActive {
		err = o.Terminate(ctx, id)
		if err != nil {
			return err
		}
		err = o.store.DeactivateWorkspace(ctx, id)
		if err != nil {
			return err
		}
	}
	o.publish(id, workspace.StatusTerminated)
	return nil
}

func (o *Orchestrator) CreateDeployment(ctx context.Context, d *workspace.Deployment) error {
	return o.store.CreateDeployment(ctx, d)
}

func (o *Orchestrator) GetDeployment(ctx context.Context, id string) (*workspace.Deployment, error) {
	return o.store.GetDeployment(ctx, id)
}

func (o *Orchestrator) Deploy(ctx context.Context, id string) error {
	deployer, err := o.registry.Deployer()
	if err != nil {
		return err
	}
	return o.withDeployment(ctx, id, deployer.Deploy)
}

// DeleteDeployment removes the cloud resources and then soft deletes the record.
func (o *Orchestrator) DeleteDeployment(ctx context.Context, id string) error {
	deployer, err := o.registry.Deployer()
	if err != nil {
		return err
	}
	err = o.withDeployment(ctx, id, deployer.Delete)
	if err != nil {
		return err
	}
	return o.store.DeactivateDeployment(ctx, id)
}

func (o *Orchestrator) Autograde(ctx context.Context, id string, req *spawner.AutogradeRequest) error {
	grader, err := o.registry.Autograder()
	if err != nil {
		return err
	}
	return o.withWorkspace(ctx, id, func(ctx context.Context, ws *workspace.Workspace) error {
		return grader.Autograde(ctx, ws, req)
	})
}

// Execute runs a queued task.
func (o *Orchestrator) Execute(ctx context.Context, task *tasks.Task) error {
	switch task.Action {
	case tasks.ActionStart:
		return o.Start(ctx, task.TargetID)
	case tasks.ActionStop:
		return o.Stop(ctx, task.TargetID)
	case tasks.ActionTerminate:
		return o.Terminate(ctx, task.TargetID)
	case tasks.ActionDeploy:
		return o.Deploy(ctx, task.TargetID)
	case tasks.ActionDeleteDeployment:
		return o.DeleteDeployment(ctx, task.TargetID)
	case tasks.ActionAutograde:
		var req spawner.AutogradeRequest
		err := json.Unmarshal(task.Args, &req)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("decoding autograde arguments: %w", err))
		}
		return o.Autograde(ctx, task.TargetID, &req)
	default:
		return fmt.Errorf("%w: %s", tasks.ErrUnknownAction, task.Action)
	}
}

// IsPermanent reports errors that retrying a task cannot fix.
func IsPermanent(err error) bool {
	for _, target := range []error{
		workspace.ErrWorkspaceNotFound,
		workspace.ErrDeploymentNotFound,
		workspace.ErrInvalidConfig,
		spawner.ErrBackendNotFound,
		spawner.ErrNotDeployable,
		spawner.ErrNotAutogradeable,
		spawner.ErrDependencyCycle,
		tasks.ErrUnknownAction,
		ErrWorkspaceInactive,
		ErrDeploymentInactive,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

type spawnerOp func(spawner.Spawner, context.Context, *workspace.Workspace) error

// transition announces the transitional status, runs op against the active
// backend and then announces whatever the backend reports.
func (o *Orchestrator) transition(ctx context.Context, id, action string, transitional workspace.Status, op spawnerOp) error {
	sp := o.registry.Active()
	logger := log.With().Str("workspace_id", id).Str("backend", string(sp.Backend())).Str("action", action).Logger()

	var announced bool
	err := o.withWorkspace(ctx, id, func(ctx context.Context, ws *workspace.Workspace) error {
		if !ws.IsActive {
			return fmt.Errorf("%w: %s", ErrWorkspaceInactive, id)
		}
		if !announced {
			o.publish(id, transitional)
			announced = true
		}
		return op(sp, ctx, ws)
	})
	if err != nil {
		logger.Error().Err(err).Msgf("Failed to %s workspace", action)
		if announced {
			o.announceObserved(ctx, id, &logger)
		}
		return err
	}
	status := o.announceObserved(ctx, id, &logger)
	logger.Info().Msgf("Workspace is %s", status)
	return nil
}

func (o *Orchestrator) announceObserved(ctx context.Context, id string, logger *zerolog.Logger) workspace.Status {
	ws, err := o.store.GetWorkspace(ctx, id)
	if err != nil {
		logger.Error().Err(err).Msg("Reloading workspace for status")
		return workspace.StatusError
	}
	status := o.registry.Active().Status(ctx, ws)
	o.publish(id, status)
	return status
}

// withWorkspace loads the workspace and runs fn, reloading and retrying when
// a concurrent writer replaced the state blob first.
func (o *Orchestrator) withWorkspace(ctx context.Context, id string, fn func(context.Context, *workspace.Workspace) error) error {
	var err error
	for i := 0; i < conflictRetries; i++ {
		var ws *workspace.Workspace
		ws, err = o.store.GetWorkspace(ctx, id)
		if err != nil {
			return err
		}
		err = fn(ctx, ws)
		if !errors.Is(err, workspace.ErrStateConflict) {
			return err
		}
		log.Warn().Str("workspace_id", id).Msg("State changed underneath us, reloading")
	}
	return err
}

func (o *Orchestrator) withDeployment(ctx context.Context, id string, fn func(context.Context, *workspace.Deployment) error) error {
	var err error
	for i := 0; i < conflictRetries; i++ {
		var d *workspace.Deployment
		d, err = o.store.GetDeployment(ctx, id)
		if err != nil {
			return err
		}
		if !d.IsActive {
			return fmt.Errorf("%w: %s", ErrDeploymentInactive, id)
		}
		err = fn(ctx, d)
		if !errors.Is(err, workspace.ErrStateConflict) {
			return err
		}
		log.Warn().Str("deployment_id", id).Msg("State changed underneath us, reloading")
	}
	return err
}

func (o *Orchestrator) publish(id string, status workspace.Status) {
	if o.publisher == nil {
		return
	}
	err := o.publisher.PublishEvent(&pubsub.StatusEvent{
		WorkspaceID: id,
		Status:      status,
		Time:        time.Now().UTC(),
	})
	if err != nil {
		log.Warn().Err(err).Str("workspace_id", id).Msgf("Publishing %s status", status)
	}
}
