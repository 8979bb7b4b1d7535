package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/eagraf/habitat-workspaces/internal/observability"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Executor carries out a task. Errors wrapped with backoff.Permanent, or
// matched by the queue's permanent predicate, are not retried.
type Executor interface {
	Execute(ctx context.Context, task *Task) error
}

type Options struct {
	Workers     int
	MaxAttempts int
	Buffer      int
	// InitialInterval and MaxInterval shape the exponential retry delay.
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// Permanent reports errors that retrying cannot fix.
	Permanent func(error) bool
	// Retention is how long a finished handle stays queryable.
	Retention time.Duration
}

// Queue is an in-memory task queue drained by a fixed pool of workers.
// Execution is at least once: a task is retried until it succeeds, fails
// permanently or runs out of attempts.
type Queue struct {
	exec  Executor
	opts  Options
	tasks chan *Task

	mu      sync.Mutex
	handles map[string]*Handle
}

func NewQueue(exec Executor, opts Options) *Queue {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 256
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = time.Second
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = time.Minute
	}
	if opts.Retention <= 0 {
		opts.Retention = time.Hour
	}
	return &Queue{
		exec:    exec,
		opts:    opts,
		tasks:   make(chan *Task, opts.Buffer),
		handles: make(map[string]*Handle),
	}
}

// Submit queues action against targetID and returns without waiting for it to run.
func (q *Queue) Submit(ctx context.Context, action Action, targetID string) (*Handle, error) {
	return q.SubmitTask(ctx, action, targetID, nil)
}

func (q *Queue) SubmitTask(ctx context.Context, action Action, targetID string, args any) (*Handle, error) {
	task := &Task{
		ID:       uuid.New().String(),
		Action:   action,
		TargetID: targetID,
	}
	if args != nil {
		raw, err := json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("encoding %s arguments: %w", action, err)
		}
		task.Args = raw
	}

	h := newHandle(task.ID)
	q.mu.Lock()
	q.handles[task.ID] = h
	q.mu.Unlock()

	select {
	case q.tasks <- task:
		observability.TaskQueueDepth.Inc()
	case <-ctx.Done():
		q.mu.Lock()
		delete(q.handles, task.ID)
		q.mu.Unlock()
		return nil, ctx.Err()
	}
	log.Debug().Str("task_id", task.ID).Str("action", string(action)).Msgf("Queued task for %s", targetID)
	return h, nil
}

func (q *Queue) Handle(id string) (*Handle, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	h, ok := q.handles[id]
	return h, ok
}

// Run starts the workers and blocks until ctx is cancelled.
func (q *Queue) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < q.opts.Workers; i++ {
		g.Go(func() error {
			q.work(ctx)
			return nil
		})
	}
	g.Go(func() error {
		q.pruneLoop(ctx)
		return nil
	})
	return g.Wait()
}

func (q *Queue) pruneLoop(ctx context.Context) {
	interval := q.opts.Retention / 4
	if interval > time.Minute {
		interval = time.Minute
	} else if interval <= 0 {
		interval = q.opts.Retention
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			q.prune(now)
		}
	}
}

// prune forgets handles that finished at least Retention before now and
// returns how many were dropped.
func (q *Queue) prune(now time.Time) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	pruned := 0
	for id, h := range q.handles {
		if h.expired(now, q.opts.Retention) {
			delete(q.handles, id)
			pruned++
		}
	}
	if pruned > 0 {
		log.Debug().Msgf("Pruned %d finished task handles", pruned)
	}
	return pruned
}

func (q *Queue) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-q.tasks:
			observability.TaskQueueDepth.Dec()
			q.process(ctx, task)
		}
	}
}

func (q *Queue) process(ctx context.Context, task *Task) {
	h, _ := q.Handle(task.ID)
	logger := log.With().Str("task_id", task.ID).Str("action", string(task.Action)).Str("target_id", task.TargetID).Logger()
	start := time.Now()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = q.opts.InitialInterval
	b.MaxInterval = q.opts.MaxInterval
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(q.opts.MaxAttempts-1)), ctx)

	operation := func() error {
		if h != nil {
			h.attempt()
		}
		err := q.exec.Execute(ctx, task)
		if err != nil && q.opts.Permanent != nil && q.opts.Permanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		observability.TaskRetryTotal.WithLabelValues(string(task.Action)).Inc()
		logger.Warn().Err(err).Msgf("Task failed, retrying in %s", next)
	}

	err := backoff.RetryNotify(operation, policy, notify)
	observability.TaskDuration.WithLabelValues(string(task.Action)).Observe(time.Since(start).Seconds())
	if err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			err = permanent.Err
		}
		observability.TaskTotal.WithLabelValues(string(task.Action), string(StateFailed)).Inc()
		logger.Error().Err(err).Msg("Task failed")
	} else {
		observability.TaskTotal.WithLabelValues(string(task.Action), string(StateSucceeded)).Inc()
		logger.Info().Msgf("Task succeeded in %s", time.Since(start).Round(time.Millisecond))
	}
	if h != nil {
		h.finish(err)
	}
}
