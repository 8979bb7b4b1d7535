package ecs

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
)

type fakeECS struct {
	mu sync.Mutex

	registered   []*ecs.RegisterTaskDefinitionInput
	deregistered []string
	runs         []*ecs.RunTaskInput
	stopped      []string
	tasks        map[string]string

	// failRun makes RunTask report a failure instead of a task.
	failRun string
	// taskGone makes StopTask and DescribeTasks behave as if the task expired.
	taskGone bool
	// runStatus is the lastStatus of newly run tasks.
	runStatus string
}

var _ API = &fakeECS{}

func newFakeECS() *fakeECS {
	return &fakeECS{
		tasks:     make(map[string]string),
		runStatus: "PENDING",
	}
}

func (f *fakeECS) RegisterTaskDefinition(_ context.Context, in *ecs.RegisterTaskDefinitionInput, _ ...func(*ecs.Options)) (*ecs.RegisterTaskDefinitionOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered = append(f.registered, in)
	arn := fmt.Sprintf("arn:aws:ecs:us-east-1:123:task-definition/%s:%d", aws.ToString(in.Family), len(f.registered))
	return &ecs.RegisterTaskDefinitionOutput{
		TaskDefinition: &ecstypes.TaskDefinition{TaskDefinitionArn: aws.String(arn)},
	}, nil
}

func (f *fakeECS) DeregisterTaskDefinition(_ context.Context, in *ecs.DeregisterTaskDefinitionInput, _ ...func(*ecs.Options)) (*ecs.DeregisterTaskDefinitionOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deregistered = append(f.deregistered, aws.ToString(in.TaskDefinition))
	return &ecs.DeregisterTaskDefinitionOutput{}, nil
}

func (f *fakeECS) RunTask(_ context.Context, in *ecs.RunTaskInput, _ ...func(*ecs.Options)) (*ecs.RunTaskOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, in)
	if f.failRun != "" {
		return &ecs.RunTaskOutput{
			Failures: []ecstypes.Failure{{Reason: aws.String(f.failRun)}},
		}, nil
	}
	arn := fmt.Sprintf("arn:aws:ecs:us-east-1:123:task/cluster/%d", len(f.runs))
	f.tasks[arn] = f.runStatus
	return &ecs.RunTaskOutput{
		Tasks: []ecstypes.Task{{
			TaskArn:    aws.String(arn),
			ClusterArn: aws.String("arn:aws:ecs:us-east-1:123:cluster/cluster"),
			LastStatus: aws.String(f.runStatus),
		}},
	}, nil
}

func (f *fakeECS) StopTask(_ context.Context, in *ecs.StopTaskInput, _ ...func(*ecs.Options)) (*ecs.StopTaskOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	arn := aws.ToString(in.Task)
	if _, ok := f.tasks[arn]; !ok || f.taskGone {
		return nil, &ecstypes.InvalidParameterException{Message: aws.String("The referenced task was not found.")}
	}
	f.stopped = append(f.stopped, arn)
	f.tasks[arn] = "STOPPED"
	return &ecs.StopTaskOutput{}, nil
}

func (f *fakeECS) DescribeTasks(_ context.Context, in *ecs.DescribeTasksInput, _ ...func(*ecs.Options)) (*ecs.DescribeTasksOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &ecs.DescribeTasksOutput{}
	for _, arn := range in.Tasks {
		st, ok := f.tasks[arn]
		if !ok || f.taskGone {
			out.Failures = append(out.Failures, ecstypes.Failure{Arn: aws.String(arn), Reason: aws.String("MISSING")})
			continue
		}
		out.Tasks = append(out.Tasks, ecstypes.Task{TaskArn: aws.String(arn), LastStatus: aws.String(st)})
	}
	return out, nil
}

func (f *fakeECS) setStatus(arn, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[arn] = status
}
