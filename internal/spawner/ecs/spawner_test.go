package ecs

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/eagraf/habitat-workspaces/core/state/workspace"
	"github.com/eagraf/habitat-workspaces/internal/spawner"
	"github.com/eagraf/habitat-workspaces/internal/spawner/test_helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() Options {
	return Options{
		Command: spawner.CommandOptions{
			APIVersion:    "v1",
			SigningSecret: "secret",
			SiteRoot:      "http://localhost",
		},
		Cluster:        "cluster",
		Region:         "us-east-1",
		LogGroup:       "workspaces",
		VolumeRoot:     "/workspaces",
		CallTimeout:    time.Second,
		AutogradeWait:  time.Second,
		WaiterMinDelay: time.Millisecond,
	}
}

func newWorkspace() *workspace.Workspace {
	ws := workspace.New("notebook", "alice", "proj1", workspace.Config{Type: workspace.TypeJupyter})
	ws.Image = "habitat/jupyter:latest"
	ws.EnvVars["FOO"] = "bar"
	return ws
}

func TestECSLifecycle(t *testing.T) {
	ctx := context.Background()
	ws := newWorkspace()
	store := test_helpers.NewMemoryStore(ws)
	api := newFakeECS()
	s := NewSpawner(api, store, testOptions())

	assert.Equal(t, workspace.StatusStopped, s.Status(ctx, ws))

	require.NoError(t, s.Start(ctx, ws))
	require.Len(t, api.registered, 1)
	def := api.registered[0].ContainerDefinitions[0]
	assert.Equal(t, ws.ID, aws.ToString(def.Name))
	assert.Equal(t, int32(512), aws.ToInt32(def.Memory))
	assert.Equal(t, spawner.BuildCommand(ws, testOptions().Command), def.Command)
	assert.Equal(t, "awslogs", string(def.LogConfiguration.LogDriver))
	assert.Nil(t, def.LinuxParameters)
	assert.Equal(t, "/workspaces/alice/proj1", aws.ToString(api.registered[0].Volumes[0].Host.SourcePath))

	require.Len(t, api.runs, 1)
	assert.Equal(t, ws.ID, aws.ToString(api.runs[0].Overrides.ContainerOverrides[0].Name))

	var st workspace.ECSState
	require.NoError(t, workspace.DecodeState(ws.State, &st))
	assert.NotEmpty(t, st.TaskDefinitionArn)
	assert.Equal(t, "arn:aws:ecs:us-east-1:123:task/cluster/1", st.TaskArn)
	assert.Equal(t, "arn:aws:ecs:us-east-1:123:cluster/cluster", st.ClusterArn)

	saved, err := store.GetWorkspace(ctx, ws.ID)
	require.NoError(t, err)
	assert.Equal(t, st.TaskArn, saved.State.GetString(workspace.KeyTaskArn))

	assert.Equal(t, workspace.StatusPending, s.Status(ctx, ws))
	api.setStatus(st.TaskArn, "PROVISIONING")
	assert.Equal(t, workspace.StatusLaunching, s.Status(ctx, ws))
	api.setStatus(st.TaskArn, "RUNNING")
	assert.Equal(t, workspace.StatusRunning, s.Status(ctx, ws))

	// Start on a running task does nothing
	require.NoError(t, s.Start(ctx, ws))
	assert.Len(t, api.runs, 1)

	require.NoError(t, s.Stop(ctx, ws))
	assert.Equal(t, []string{st.TaskArn}, api.stopped)
	assert.Equal(t, workspace.StatusStopped, s.Status(ctx, ws))
	assert.Equal(t, st.TaskDefinitionArn, ws.State.GetString(workspace.KeyTaskDefinitionArn))

	// Restart reuses the registered definition
	require.NoError(t, s.Start(ctx, ws))
	assert.Len(t, api.registered, 1)
	assert.Len(t, api.runs, 2)

	require.NoError(t, s.Terminate(ctx, ws))
	assert.Equal(t, []string{st.TaskDefinitionArn}, api.deregistered)
	assert.False(t, ws.State.Has(workspace.KeyTaskDefinitionArn))
	assert.False(t, ws.State.Has(workspace.KeyTaskArn))
	assert.Equal(t, workspace.StatusStopped, s.Status(ctx, ws))
}

func TestECSStartFailure(t *testing.T) {
	ctx := context.Background()
	ws := newWorkspace()
	store := test_helpers.NewMemoryStore(ws)
	api := newFakeECS()
	api.failRun = "RESOURCE:MEMORY"
	s := NewSpawner(api, store, testOptions())

	err := s.Start(ctx, ws)
	require.ErrorIs(t, err, ErrRunTaskFailed)
	assert.Equal(t, "RESOURCE:MEMORY", ws.State.GetString(workspace.KeyError))
	assert.False(t, ws.State.Has(workspace.KeyTaskArn))
	assert.True(t, ws.State.Has(workspace.KeyTaskDefinitionArn))
	assert.Equal(t, workspace.StatusError, s.Status(ctx, ws))

	saved, err := store.GetWorkspace(ctx, ws.ID)
	require.NoError(t, err)
	assert.Equal(t, "RESOURCE:MEMORY", saved.State.GetString(workspace.KeyError))

	// The workspace recovers on the next start
	api.failRun = ""
	require.NoError(t, s.Start(ctx, ws))
	assert.False(t, ws.State.Has(workspace.KeyError))
	assert.Len(t, api.registered, 1)
	assert.Equal(t, workspace.StatusPending, s.Status(ctx, ws))
}

func TestECSStopStaleTask(t *testing.T) {
	ctx := context.Background()
	ws := newWorkspace()
	store := test_helpers.NewMemoryStore(ws)
	api := newFakeECS()
	s := NewSpawner(api, store, testOptions())

	require.NoError(t, s.Stop(ctx, ws))

	require.NoError(t, s.Start(ctx, ws))
	api.taskGone = true
	assert.Equal(t, workspace.StatusError, s.Status(ctx, ws))

	require.NoError(t, s.Stop(ctx, ws))
	assert.False(t, ws.State.Has(workspace.KeyTaskArn))
	assert.Equal(t, workspace.StatusStopped, s.Status(ctx, ws))
}

func TestECSAutograde(t *testing.T) {
	ctx := context.Background()
	ws := newWorkspace()
	store := test_helpers.NewMemoryStore(ws)
	api := newFakeECS()
	api.runStatus = "STOPPED"
	s := NewSpawner(api, store, testOptions())

	err := s.Autograde(ctx, ws, &spawner.AutogradeRequest{Course: "cs101", Assignment: "ps1", Student: "bob"})
	require.NoError(t, err)

	require.Len(t, api.runs, 2)
	assert.Equal(t, []string{"nbgrader", "db", "assignment", "add", "ps1", "--course=cs101"}, api.runs[0].Overrides.ContainerOverrides[0].Command)
	assert.Equal(t, []string{"nbgrader", "autograde", "ps1", "--create", "--student=bob", "--course=cs101"}, api.runs[1].Overrides.ContainerOverrides[0].Command)
	assert.False(t, ws.State.Has(workspace.KeyTaskArn))

	// Without a course the commands use the gradebook default
	err = s.Autograde(ctx, ws, &spawner.AutogradeRequest{Assignment: "ps2", Student: "bob"})
	require.NoError(t, err)
	require.Len(t, api.runs, 4)
	assert.Equal(t, []string{"nbgrader", "db", "assignment", "add", "ps2"}, api.runs[2].Overrides.ContainerOverrides[0].Command)
	assert.Equal(t, []string{"nbgrader", "autograde", "ps2", "--create", "--student=bob"}, api.runs[3].Overrides.ContainerOverrides[0].Command)
}

func TestECSDevices(t *testing.T) {
	ctx := context.Background()
	ws := newWorkspace()
	store := test_helpers.NewMemoryStore(ws)
	api := newFakeECS()
	opts := testOptions()
	opts.Devices = []string{"/dev/fuse"}
	s := NewSpawner(api, store, opts)

	require.NoError(t, s.Start(ctx, ws))
	require.Len(t, api.registered, 1)
	params := api.registered[0].ContainerDefinitions[0].LinuxParameters
	require.NotNil(t, params)
	require.Len(t, params.Devices, 1)
	assert.Equal(t, "/dev/fuse", aws.ToString(params.Devices[0].HostPath))
	assert.Equal(t, "/dev/fuse", aws.ToString(params.Devices[0].ContainerPath))
}

func TestECSAutogradeTimeout(t *testing.T) {
	ctx := context.Background()
	ws := newWorkspace()
	store := test_helpers.NewMemoryStore(ws)
	api := newFakeECS()
	api.runStatus = "RUNNING"
	opts := testOptions()
	opts.AutogradeWait = 50 * time.Millisecond
	opts.WaiterMinDelay = 10 * time.Millisecond
	s := NewSpawner(api, store, opts)

	err := s.Autograde(ctx, ws, &spawner.AutogradeRequest{Assignment: "ps1", Student: "bob"})
	require.Error(t, err)
	assert.Len(t, api.runs, 1)
}

func TestTaskStatus(t *testing.T) {
	assert.Equal(t, workspace.StatusRunning, taskStatus("RUNNING"))
	assert.Equal(t, workspace.StatusStopped, taskStatus("STOPPED"))
	assert.Equal(t, workspace.StatusLaunching, taskStatus("ACTIVATING"))
	assert.Equal(t, workspace.StatusStopping, taskStatus("DEPROVISIONING"))
	assert.Equal(t, workspace.StatusError, taskStatus("SOMETHING"))
}
