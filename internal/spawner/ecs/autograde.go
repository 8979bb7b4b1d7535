package ecs

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/eagraf/habitat-workspaces/core/state/workspace"
	"github.com/eagraf/habitat-workspaces/internal/spawner"
)

const defaultAutogradeWait = 10 * time.Minute

// Autograde runs the two nbgrader phases as one-shot tasks from the workspace
// task definition. The assignment must be registered in the gradebook before
// autograde can run, so the first task has to stop before the second starts.
func (s *Spawner) Autograde(ctx context.Context, ws *workspace.Workspace, req *spawner.AutogradeRequest) error {
	if req.Assignment == "" || req.Student == "" {
		return fmt.Errorf("autograde needs an assignment and a student")
	}
	taskDefinition, err := s.ensureTaskDefinition(ctx, ws)
	if err != nil {
		return err
	}

	addArn, err := s.runOnce(ctx, ws, taskDefinition, nbgraderCommand(req, "db", "assignment", "add", req.Assignment))
	if err != nil {
		return err
	}

	wait := s.opts.AutogradeWait
	if wait <= 0 {
		wait = defaultAutogradeWait
	}
	waiter := ecs.NewTasksStoppedWaiter(s.api, func(o *ecs.TasksStoppedWaiterOptions) {
		if s.opts.WaiterMinDelay > 0 {
			o.MinDelay = s.opts.WaiterMinDelay
			if o.MaxDelay < o.MinDelay {
				o.MaxDelay = o.MinDelay
			}
		}
	})
	err = waiter.Wait(ctx, &ecs.DescribeTasksInput{
		Cluster: aws.String(s.opts.Cluster),
		Tasks:   []string{addArn},
	}, wait)
	if err != nil {
		return fmt.Errorf("waiting for assignment %s to be added: %w", req.Assignment, err)
	}

	_, err = s.runOnce(ctx, ws, taskDefinition, nbgraderCommand(req, "autograde", req.Assignment, "--create", "--student="+req.Student))
	if err != nil {
		return err
	}
	logger(ws).Info().Msgf("Submitted autograde of %s for %s", req.Assignment, req.Student)
	return nil
}

// nbgraderCommand scopes the subcommand to the request's course when one is set.
func nbgraderCommand(req *spawner.AutogradeRequest, args ...string) []string {
	command := append([]string{"nbgrader"}, args...)
	if req.Course != "" {
		command = append(command, "--course="+req.Course)
	}
	return command
}

func (s *Spawner) runOnce(ctx context.Context, ws *workspace.Workspace, taskDefinition string, command []string) (string, error) {
	callCtx, cancel := s.callContext(ctx)
	defer cancel()
	out, err := s.api.RunTask(callCtx, &ecs.RunTaskInput{
		Cluster:        aws.String(s.opts.Cluster),
		TaskDefinition: aws.String(taskDefinition),
		StartedBy:      aws.String(startedBy(ws)),
		Overrides: &ecstypes.TaskOverride{
			ContainerOverrides: []ecstypes.ContainerOverride{
				{Name: aws.String(ws.ID), Command: command},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("running %q: %w", command, err)
	}
	if len(out.Tasks) == 0 {
		return "", fmt.Errorf("%w: %s", ErrRunTaskFailed, failureReason(out.Failures))
	}
	return aws.ToString(out.Tasks[0].TaskArn), nil
}
