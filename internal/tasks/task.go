package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

type Action string

const (
	ActionStart            Action = "start"
	ActionStop             Action = "stop"
	ActionTerminate        Action = "terminate"
	ActionDeploy           Action = "deploy"
	ActionDeleteDeployment Action = "delete_deployment"
	ActionAutograde        Action = "autograde"
)

var ErrUnknownAction = errors.New("unknown action")

func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionStart, ActionStop, ActionTerminate, ActionDeploy, ActionDeleteDeployment, ActionAutograde:
		return a, nil
	}
	return "", ErrUnknownAction
}

type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Task is one queued action against a workspace or deployment.
type Task struct {
	ID       string          `json:"id"`
	Action   Action          `json:"action"`
	TargetID string          `json:"target_id"`
	Args     json.RawMessage `json:"args,omitempty"`
}

// Handle tracks a submitted task. Callers are free to ignore it.
type Handle struct {
	ID string

	mu       sync.Mutex
	state    State
	attempts int
	err      error
	done     chan struct{}
	created  time.Time
	finished time.Time
}

func newHandle(id string) *Handle {
	return &Handle{
		ID:      id,
		state:   StatePending,
		done:    make(chan struct{}),
		created: time.Now().UTC(),
	}
}

type HandleStatus struct {
	ID         string     `json:"id"`
	State      State      `json:"state"`
	Attempts   int        `json:"attempts"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

func (h *Handle) Status() HandleStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := HandleStatus{
		ID:        h.ID,
		State:     h.state,
		Attempts:  h.attempts,
		CreatedAt: h.created,
	}
	if h.err != nil {
		s.Error = h.err.Error()
	}
	if !h.finished.IsZero() {
		finished := h.finished
		s.FinishedAt = &finished
	}
	return s
}

// Wait blocks until the task has finished or ctx is done.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// expired reports whether the task finished at least retention before now.
func (h *Handle) expired(now time.Time, retention time.Duration) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.finished.IsZero() && now.Sub(h.finished) >= retention
}

func (h *Handle) attempt() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = StateRunning
	h.attempts++
}

func (h *Handle) finish(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
	h.finished = time.Now().UTC()
	if err != nil {
		h.state = StateFailed
	} else {
		h.state = StateSucceeded
	}
	close(h.done)
}
