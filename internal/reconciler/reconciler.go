package reconciler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/eagraf/habitat-workspaces/core/state/workspace"
	"github.com/eagraf/habitat-workspaces/internal/pubsub"
	"github.com/rs/zerolog/log"
)

type Store interface {
	GetWorkspace(ctx context.Context, id string) (*workspace.Workspace, error)
	OpenRunStatistics(ctx context.Context, workspaceID string, start time.Time) (*workspace.RunStatistics, error)
	CloseLatestOpen(ctx context.Context, workspaceID string, stop time.Time) (*workspace.RunStatistics, error)
}

// Reconciler applies asynchronous task state changes: it keeps run statistics
// and announces the new status. Announced statuses are a latency optimisation;
// the spawner's Status stays authoritative.
type Reconciler struct {
	store     Store
	publisher pubsub.Publisher[pubsub.StatusEvent]
	client    *http.Client
}

func NewReconciler(store Store, publisher pubsub.Publisher[pubsub.StatusEvent], client *http.Client) *Reconciler {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Reconciler{
		store:     store,
		publisher: publisher,
		client:    client,
	}
}

// HandleTaskStateChange acts on RUNNING and STOPPED events and ignores every other kind.
// A RUNNING task whose desired status is STOPPED is announced as stopping and
// never opens statistics. The store keeps at most one open record per workspace.
func (r *Reconciler) HandleTaskStateChange(ctx context.Context, ev *TaskStateChange) error {
	id := ev.WorkspaceID()
	logger := log.With().Str("workspace_id", id).Str("task_arn", ev.Detail.TaskArn).Logger()

	var status workspace.Status
	switch ev.Status() {
	case "RUNNING":
		status = workspace.StatusRunning
		if ev.StopRequested() {
			status = workspace.StatusStopping
		}
	case "STOPPED":
		status = workspace.StatusStopped
	default:
		logger.Debug().Msgf("Ignoring task status %s", ev.Status())
		return nil
	}

	ws, err := r.store.GetWorkspace(ctx, id)
	if errors.Is(err, workspace.ErrWorkspaceNotFound) {
		logger.Warn().Msg("Task state change for unknown workspace")
		return nil
	} else if err != nil {
		return err
	}

	switch status {
	case workspace.StatusRunning:
		if ws.IsActive {
			_, err = r.store.OpenRunStatistics(ctx, ws.ID, ev.StartTime())
			if err != nil {
				return fmt.Errorf("opening run statistics: %w", err)
			}
		}
	case workspace.StatusStopped:
		closed, err := r.store.CloseLatestOpen(ctx, ws.ID, ev.StopTime())
		if err != nil {
			return fmt.Errorf("closing run statistics: %w", err)
		}
		if closed == nil {
			logger.Debug().Msg("No open run statistics to close")
		}
	}

	logger.Info().Msgf("Task is now %s", status)
	return r.publisher.PublishEvent(&pubsub.StatusEvent{
		WorkspaceID: ws.ID,
		Status:      status,
		Time:        time.Now().UTC(),
	})
}

// ConfirmSubscription completes the SNS handshake by visiting the callback URL.
func (r *Reconciler) ConfirmSubscription(ctx context.Context, subscribeURL string) error {
	if subscribeURL == "" {
		return fmt.Errorf("%w: empty SubscribeURL", ErrMalformedNotification)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, subscribeURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrMalformedNotification, err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("subscription confirmation returned %s", resp.Status)
	}
	log.Info().Msgf("Confirmed SNS subscription")
	return nil
}

type LastStatusStore interface {
	UpdateLastStatus(ctx context.Context, id string, status workspace.Status) error
}

// LastStatusRecorder caches every announced status on the workspace record.
type LastStatusRecorder struct {
	store LastStatusStore
}

var _ pubsub.Subscriber[pubsub.StatusEvent] = &LastStatusRecorder{}

func NewLastStatusRecorder(store LastStatusStore) *LastStatusRecorder {
	return &LastStatusRecorder{store: store}
}

func (l *LastStatusRecorder) ConsumeEvent(e *pubsub.StatusEvent) error {
	if e == nil {
		return errors.New("nil status event")
	}
	err := l.store.UpdateLastStatus(context.Background(), e.WorkspaceID, e.Status)
	if errors.Is(err, workspace.ErrWorkspaceNotFound) {
		return nil
	}
	return err
}
