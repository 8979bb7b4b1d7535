package reconciler

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrMalformedNotification = errors.New("malformed notification")

// snsMessage is the envelope SNS posts for both confirmations and notifications.
type snsMessage struct {
	Type         string `json:"Type"`
	MessageID    string `json:"MessageId"`
	TopicArn     string `json:"TopicArn"`
	Message      string `json:"Message"`
	SubscribeURL string `json:"SubscribeURL"`
	Timestamp    string `json:"Timestamp"`
}

// TaskStateChange is the part of an ECS task state change event the reconciler reads.
type TaskStateChange struct {
	DetailType string     `json:"detail-type"`
	Time       time.Time  `json:"time"`
	Detail     TaskDetail `json:"detail"`
}

type TaskDetail struct {
	TaskArn       string        `json:"taskArn"`
	ClusterArn    string        `json:"clusterArn"`
	LastStatus    string        `json:"lastStatus"`
	DesiredStatus string        `json:"desiredStatus"`
	CreatedAt     *time.Time    `json:"createdAt,omitempty"`
	StartedAt     *time.Time    `json:"startedAt,omitempty"`
	StoppedAt     *time.Time    `json:"stoppedAt,omitempty"`
	StoppedReason string        `json:"stoppedReason,omitempty"`
	Overrides     taskOverrides `json:"overrides"`
}

type taskOverrides struct {
	ContainerOverrides []struct {
		Name string `json:"name"`
	} `json:"containerOverrides"`
}

// WorkspaceID is the name of the first container override, which the ECS
// spawner sets to the workspace id.
func (e *TaskStateChange) WorkspaceID() string {
	if len(e.Detail.Overrides.ContainerOverrides) == 0 {
		return ""
	}
	return e.Detail.Overrides.ContainerOverrides[0].Name
}

// Status is the upper-cased lifecycle event of the task.
func (e *TaskStateChange) Status() string {
	if e.Detail.LastStatus != "" {
		return strings.ToUpper(e.Detail.LastStatus)
	}
	return strings.ToUpper(e.Detail.DesiredStatus)
}

// StopRequested reports whether the task is still running but has been asked
// to stop.
func (e *TaskStateChange) StopRequested() bool {
	desired := strings.ToUpper(e.Detail.DesiredStatus)
	return desired != "" && desired != "RUNNING"
}

// StartTime is when the task was created, falling back to later timestamps.
func (e *TaskStateChange) StartTime() time.Time {
	for _, t := range []*time.Time{e.Detail.CreatedAt, e.Detail.StartedAt} {
		if t != nil && !t.IsZero() {
			return *t
		}
	}
	return e.Time
}

func (e *TaskStateChange) StopTime() time.Time {
	if e.Detail.StoppedAt != nil && !e.Detail.StoppedAt.IsZero() {
		return *e.Detail.StoppedAt
	}
	return e.Time
}

func parseTaskStateChange(raw string) (*TaskStateChange, error) {
	var ev TaskStateChange
	err := json.Unmarshal([]byte(raw), &ev)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedNotification, err)
	}
	if ev.WorkspaceID() == "" {
		return nil, fmt.Errorf("%w: no container override names a workspace", ErrMalformedNotification)
	}
	if ev.Status() == "" {
		return nil, fmt.Errorf("%w: no task status", ErrMalformedNotification)
	}
	return &ev, nil
}
