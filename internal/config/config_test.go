package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	t.Setenv("HABITAT_WS_WS_PATH", t.TempDir())

	c, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, "docker", c.Spawner())
	assert.Equal(t, "8080", c.APIPort())
	assert.Equal(t, 4, c.WorkerCount())
	assert.Equal(t, 5*time.Minute, c.AutogradeWait())
	assert.False(t, c.DockerSwarm())
	assert.Empty(t, c.ECSDevices())
	assert.Equal(t, time.Hour, c.TaskRetention())
	assert.Equal(t, 30*time.Second, c.AWSCallTimeout())
	assert.Equal(t, filepath.Join(c.Path(), "workspaces.db"), c.DatabasePath())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HABITAT_WS_WS_PATH", t.TempDir())
	t.Setenv("HABITAT_WS_SPAWNER", "ecs")
	t.Setenv("HABITAT_WS_DOCKER_SWARM", "true")
	t.Setenv("HABITAT_WS_AUTOGRADE_WAIT", "90s")
	t.Setenv("HABITAT_WS_TASK_RETENTION", "15m")
	t.Setenv("HABITAT_WS_ECS_DEVICES", "/dev/fuse /dev/nvidia0")

	c, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, "ecs", c.Spawner())
	assert.True(t, c.DockerSwarm())
	assert.Equal(t, 90*time.Second, c.AutogradeWait())
	assert.Equal(t, 15*time.Minute, c.TaskRetention())
	assert.Equal(t, []string{"/dev/fuse", "/dev/nvidia0"}, c.ECSDevices())
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HABITAT_WS_WS_PATH", dir)
	err := os.WriteFile(filepath.Join(dir, "workspaces.yml"), []byte("ecs_cluster: grading\nworker_count: 8\necs_devices:\n  - /dev/fuse\n"), 0600)
	require.NoError(t, err)

	c, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, "grading", c.ECSCluster())
	assert.Equal(t, 8, c.WorkerCount())
	assert.Equal(t, []string{"/dev/fuse"}, c.ECSDevices())
}
