package ecs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/eagraf/habitat-workspaces/core/state/workspace"
	"github.com/eagraf/habitat-workspaces/internal/constants"
	"github.com/eagraf/habitat-workspaces/internal/spawner"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var ErrRunTaskFailed = errors.New("ecs reported a failure running the task")

type Options struct {
	Command    spawner.CommandOptions
	Cluster    string
	Region     string
	LogGroup   string
	VolumeRoot string
	SSHKeyRoot string
	// Devices are host device nodes mapped into every workspace container.
	Devices []string
	// CallTimeout bounds every ECS API call. Zero leaves the SDK defaults.
	CallTimeout time.Duration
	// AutogradeWait bounds the wait for the first autograde phase to stop.
	AutogradeWait time.Duration
	// WaiterMinDelay overrides the tasks-stopped waiter polling delay.
	WaiterMinDelay time.Duration
}

// Spawner runs each workspace as an ECS task on a fixed cluster. The task
// definition is registered lazily on first start and reused afterwards.
type Spawner struct {
	api   API
	saver spawner.StateSaver
	opts  Options
}

var (
	_ spawner.Spawner    = &Spawner{}
	_ spawner.Autograder = &Spawner{}
)

func NewSpawner(api API, saver spawner.StateSaver, opts Options) *Spawner {
	return &Spawner{
		api:   api,
		saver: saver,
		opts:  opts,
	}
}

func (s *Spawner) Backend() spawner.Backend {
	return spawner.BackendECS
}

func (s *Spawner) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.CallTimeout)
}

func (s *Spawner) Start(ctx context.Context, ws *workspace.Workspace) error {
	if ws.State.GetString(workspace.KeyTaskArn) != "" && !ws.State.Has(workspace.KeyError) {
		switch s.Status(ctx, ws) {
		case workspace.StatusPending, workspace.StatusLaunching, workspace.StatusRunning:
			logger(ws).Debug().Msg("task already running")
			return nil
		}
	}

	taskDefinition, err := s.ensureTaskDefinition(ctx, ws)
	if err != nil {
		return err
	}

	callCtx, cancel := s.callContext(ctx)
	defer cancel()
	out, err := s.api.RunTask(callCtx, &ecs.RunTaskInput{
		Cluster:        aws.String(s.opts.Cluster),
		TaskDefinition: aws.String(taskDefinition),
		StartedBy:      aws.String(startedBy(ws)),
		Overrides: &ecstypes.TaskOverride{
			ContainerOverrides: []ecstypes.ContainerOverride{
				{Name: aws.String(ws.ID)},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("running task for workspace %s: %w", ws.ID, err)
	}

	if len(out.Tasks) == 0 {
		reason := failureReason(out.Failures)
		ws.State.Delete(workspace.KeyTaskArn, workspace.KeyClusterArn)
		ws.State[workspace.KeyError] = reason
		logger(ws).Error().Msgf("ECS could not run task: %s", reason)
		err = s.saver.SaveWorkspaceState(ctx, ws)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: %s", ErrRunTaskFailed, reason)
	}

	task := out.Tasks[0]
	ws.State.Delete(workspace.KeyError)
	err = workspace.EncodeState(&workspace.ECSState{
		TaskArn:    aws.ToString(task.TaskArn),
		ClusterArn: aws.ToString(task.ClusterArn),
	}, ws.State)
	if err != nil {
		return err
	}
	logger(ws).Info().Msgf("Started ECS task %s", aws.ToString(task.TaskArn))
	return s.saver.SaveWorkspaceState(ctx, ws)
}

func (s *Spawner) Stop(ctx context.Context, ws *workspace.Workspace) error {
	taskArn := ws.State.GetString(workspace.KeyTaskArn)
	if taskArn == "" {
		return nil
	}

	callCtx, cancel := s.callContext(ctx)
	defer cancel()
	_, err := s.api.StopTask(callCtx, &ecs.StopTaskInput{
		Cluster: aws.String(s.opts.Cluster),
		Task:    aws.String(taskArn),
		Reason:  aws.String("stopped by workspace orchestrator"),
	})
	var invalid *ecstypes.InvalidParameterException
	if errors.As(err, &invalid) {
		// The task is already gone.
		logger(ws).Warn().Msgf("Dropping stale task %s: %s", taskArn, invalid.ErrorMessage())
		ws.State.Delete(workspace.KeyTaskArn)
		return s.saver.SaveWorkspaceState(ctx, ws)
	} else if err != nil {
		return fmt.Errorf("stopping task %s: %w", taskArn, err)
	}
	return nil
}

func (s *Spawner) Terminate(ctx context.Context, ws *workspace.Workspace) error {
	err := s.Stop(ctx, ws)
	if err != nil {
		return err
	}

	taskDefinition := ws.State.GetString(workspace.KeyTaskDefinitionArn)
	if taskDefinition != "" {
		callCtx, cancel := s.callContext(ctx)
		defer cancel()
		_, err = s.api.DeregisterTaskDefinition(callCtx, &ecs.DeregisterTaskDefinitionInput{
			TaskDefinition: aws.String(taskDefinition),
		})
		if err != nil {
			return fmt.Errorf("deregistering task definition %s: %w", taskDefinition, err)
		}
	}
	ws.State.Delete(workspace.KeyTaskDefinitionArn, workspace.KeyTaskArn, workspace.KeyClusterArn, workspace.KeyError)
	return s.saver.SaveWorkspaceState(ctx, ws)
}

func (s *Spawner) Status(ctx context.Context, ws *workspace.Workspace) workspace.Status {
	if ws.State.Has(workspace.KeyError) {
		return workspace.StatusError
	}
	taskArn := ws.State.GetString(workspace.KeyTaskArn)
	if taskArn == "" {
		return workspace.StatusStopped
	}

	callCtx, cancel := s.callContext(ctx)
	defer cancel()
	out, err := s.api.DescribeTasks(callCtx, &ecs.DescribeTasksInput{
		Cluster: aws.String(s.opts.Cluster),
		Tasks:   []string{taskArn},
	})
	if err != nil {
		logger(ws).Error().Err(err).Msg("error describing task")
		return workspace.StatusError
	}
	if len(out.Tasks) == 0 {
		return workspace.StatusError
	}
	return taskStatus(aws.ToString(out.Tasks[0].LastStatus))
}

// ECS lifecycle phases outside the workspace status set.
var taskPhases = map[string]workspace.Status{
	"PROVISIONING":   workspace.StatusLaunching,
	"ACTIVATING":     workspace.StatusLaunching,
	"DEACTIVATING":   workspace.StatusStopping,
	"DEPROVISIONING": workspace.StatusStopping,
}

func taskStatus(lastStatus string) workspace.Status {
	if st, ok := taskPhases[strings.ToUpper(lastStatus)]; ok {
		return st
	}
	return workspace.ParseStatus(lastStatus)
}

func (s *Spawner) ensureTaskDefinition(ctx context.Context, ws *workspace.Workspace) (string, error) {
	if arn := ws.State.GetString(workspace.KeyTaskDefinitionArn); arn != "" {
		return arn, nil
	}

	callCtx, cancel := s.callContext(ctx)
	defer cancel()
	out, err := s.api.RegisterTaskDefinition(callCtx, s.taskDefinition(ws))
	if err != nil {
		return "", fmt.Errorf("registering task definition for workspace %s: %w", ws.ID, err)
	}
	if out.TaskDefinition == nil || out.TaskDefinition.TaskDefinitionArn == nil {
		return "", fmt.Errorf("register task definition returned no arn for workspace %s", ws.ID)
	}

	arn := aws.ToString(out.TaskDefinition.TaskDefinitionArn)
	err = workspace.EncodeState(&workspace.ECSState{TaskDefinitionArn: arn}, ws.State)
	if err != nil {
		return "", err
	}
	logger(ws).Info().Msgf("Registered task definition %s", arn)
	return arn, s.saver.SaveWorkspaceState(ctx, ws)
}

const (
	resourcesVolume = "resources"
	sshVolume       = "ssh"
	scriptVolume    = "startup-script"
)

func (s *Spawner) taskDefinition(ws *workspace.Workspace) *ecs.RegisterTaskDefinitionInput {
	volume := ws.VolumePath(s.opts.VolumeRoot)
	volumes := []ecstypes.Volume{
		{Name: aws.String(resourcesVolume), Host: &ecstypes.HostVolumeProperties{SourcePath: aws.String(volume)}},
	}
	mounts := []ecstypes.MountPoint{
		{SourceVolume: aws.String(resourcesVolume), ContainerPath: aws.String(constants.ResourcesPath)},
	}
	if s.opts.SSHKeyRoot != "" {
		volumes = append(volumes, ecstypes.Volume{
			Name: aws.String(sshVolume),
			Host: &ecstypes.HostVolumeProperties{SourcePath: aws.String(fmt.Sprintf("%s/%s", s.opts.SSHKeyRoot, ws.Owner))},
		})
		mounts = append(mounts, ecstypes.MountPoint{SourceVolume: aws.String(sshVolume), ContainerPath: aws.String(constants.SSHKeyPath), ReadOnly: aws.Bool(true)})
	}
	if ws.StartupScript != "" {
		volumes = append(volumes, ecstypes.Volume{
			Name: aws.String(scriptVolume),
			Host: &ecstypes.HostVolumeProperties{SourcePath: aws.String(fmt.Sprintf("%s/%s", volume, ws.StartupScript))},
		})
		mounts = append(mounts, ecstypes.MountPoint{SourceVolume: aws.String(scriptVolume), ContainerPath: aws.String(constants.StartupScriptPath), ReadOnly: aws.Bool(true)})
	}

	var env []ecstypes.KeyValuePair
	for k, v := range ws.EnvVars {
		env = append(env, ecstypes.KeyValuePair{Name: aws.String(k), Value: aws.String(v)})
	}

	var devices []ecstypes.Device
	for _, d := range s.opts.Devices {
		devices = append(devices, ecstypes.Device{
			HostPath:      aws.String(d),
			ContainerPath: aws.String(d),
			Permissions: []ecstypes.DeviceCgroupPermission{
				ecstypes.DeviceCgroupPermissionRead,
				ecstypes.DeviceCgroupPermissionWrite,
				ecstypes.DeviceCgroupPermissionMknod,
			},
		})
	}

	def := ecstypes.ContainerDefinition{
		Name:        aws.String(ws.ID),
		Image:       aws.String(ws.Image),
		Cpu:         int32(ws.Size.CPU),
		Memory:      aws.Int32(int32(ws.Size.Memory)),
		Command:     spawner.BuildCommand(ws, s.opts.Command),
		Environment: env,
		MountPoints: mounts,
		Essential:   aws.Bool(true),
	}
	if len(devices) > 0 {
		def.LinuxParameters = &ecstypes.LinuxParameters{Devices: devices}
	}
	if s.opts.LogGroup != "" {
		def.LogConfiguration = &ecstypes.LogConfiguration{
			LogDriver: ecstypes.LogDriverAwslogs,
			Options: map[string]string{
				"awslogs-group":         s.opts.LogGroup,
				"awslogs-region":        s.opts.Region,
				"awslogs-stream-prefix": ws.ID,
			},
		}
	}

	return &ecs.RegisterTaskDefinitionInput{
		Family:               aws.String(ws.ID),
		ContainerDefinitions: []ecstypes.ContainerDefinition{def},
		Volumes:              volumes,
	}
}

func failureReason(failures []ecstypes.Failure) string {
	if len(failures) == 0 {
		return "no task started"
	}
	f := failures[0]
	reason := aws.ToString(f.Reason)
	if detail := aws.ToString(f.Detail); detail != "" {
		reason = fmt.Sprintf("%s: %s", reason, detail)
	}
	return reason
}

// startedBy is limited to 36 characters by ECS.
func startedBy(ws *workspace.Workspace) string {
	return ws.ID
}

func logger(ws *workspace.Workspace) *zerolog.Logger {
	l := log.With().Str("workspace_id", ws.ID).Str("backend", string(spawner.BackendECS)).Logger()
	return &l
}
