package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/eagraf/habitat-workspaces/internal/constants"
	"github.com/rs/zerolog/log"
	viper "github.com/spf13/viper"
)

const envPrefix = "HABITAT_WS"

var defaults = map[string]any{
	"ws_path":              "$HOME/.habitat-workspaces",
	"api_port":             constants.DefaultPortAPI,
	"log_level":            "info",
	"spawner":              "docker",
	"api_version":          constants.DefaultAPIVersion,
	"site_root":            "http://localhost:8080",
	"signing_secret":       "",
	"volume_root":          "/workspaces",
	"ssh_key_root":         "",
	"docker_host":          "",
	"docker_swarm":         false,
	"docker_network":       "habitat-workspaces",
	"docker_stop_timeout":  10 * time.Second,
	"nvidia_url":           "",
	"traefik":              false,
	"aws_region":           "us-west-2",
	"aws_call_timeout":     30 * time.Second,
	"ecs_cluster":          "default",
	"ecs_log_group":        "",
	"ecs_devices":          []string{},
	"autograde_wait":       5 * time.Minute,
	"lambda_role":          "",
	"lambda_runtime":       "python3.9",
	"lambda_handler":       "handler.main",
	"lambda_framework_url": "",
	"lambda_authorizer":    "deploymentAuthorizer",
	"gateway_stage":        constants.DefaultGatewayStage,
	"worker_count":         4,
	"task_max_attempts":    5,
	"task_retention":       time.Hour,
}

// Config wraps a viper instance bound to HABITAT_WS_* environment variables and an
// optional workspaces.yml file in the workspaces path.
type Config struct {
	v *viper.Viper
}

func NewConfig() (*Config, error) {
	v := viper.New()
	err := loadEnv(v)
	if err != nil {
		return nil, err
	}
	err = loadConfigFile(v)
	if err != nil {
		return nil, err
	}
	c := &Config{v: v}
	log.Debug().Msgf("Loaded workspaces config from %s", c.Path())
	return c, nil
}

func loadEnv(v *viper.Viper) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, val := range defaults {
		v.SetDefault(key, val)
		err := v.BindEnv(key)
		if err != nil {
			return err
		}
	}
	return nil
}

func loadConfigFile(v *viper.Viper) error {
	v.AddConfigPath(os.ExpandEnv(v.GetString("ws_path")))
	v.SetConfigType("yml")
	v.SetConfigName("workspaces")

	err := v.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}

// Set overrides a value, mostly for tests and command line flags.
func (c *Config) Set(key string, value any) {
	c.v.Set(key, value)
}

func (c *Config) Path() string {
	return os.ExpandEnv(c.v.GetString("ws_path"))
}

func (c *Config) DatabasePath() string {
	return filepath.Join(c.Path(), "workspaces.db")
}

func (c *Config) APIPort() string        { return c.v.GetString("api_port") }
func (c *Config) LogLevel() string       { return c.v.GetString("log_level") }
func (c *Config) Spawner() string        { return c.v.GetString("spawner") }
func (c *Config) APIVersion() string     { return c.v.GetString("api_version") }
func (c *Config) SiteRoot() string       { return c.v.GetString("site_root") }
func (c *Config) SigningSecret() string  { return c.v.GetString("signing_secret") }
func (c *Config) VolumeRoot() string     { return c.v.GetString("volume_root") }
func (c *Config) SSHKeyRoot() string     { return c.v.GetString("ssh_key_root") }
func (c *Config) DockerHost() string     { return c.v.GetString("docker_host") }
func (c *Config) DockerSwarm() bool      { return c.v.GetBool("docker_swarm") }
func (c *Config) DockerNetwork() string  { return c.v.GetString("docker_network") }
func (c *Config) NvidiaURL() string      { return c.v.GetString("nvidia_url") }
func (c *Config) Traefik() bool          { return c.v.GetBool("traefik") }
func (c *Config) AWSRegion() string      { return c.v.GetString("aws_region") }
func (c *Config) ECSCluster() string     { return c.v.GetString("ecs_cluster") }
func (c *Config) ECSLogGroup() string    { return c.v.GetString("ecs_log_group") }
func (c *Config) LambdaRole() string     { return c.v.GetString("lambda_role") }
func (c *Config) LambdaRuntime() string  { return c.v.GetString("lambda_runtime") }
func (c *Config) LambdaHandler() string  { return c.v.GetString("lambda_handler") }
func (c *Config) FrameworkURL() string   { return c.v.GetString("lambda_framework_url") }
func (c *Config) AuthorizerName() string { return c.v.GetString("lambda_authorizer") }
func (c *Config) GatewayStage() string   { return c.v.GetString("gateway_stage") }
func (c *Config) WorkerCount() int       { return c.v.GetInt("worker_count") }
func (c *Config) TaskMaxAttempts() int   { return c.v.GetInt("task_max_attempts") }
func (c *Config) ECSDevices() []string   { return c.v.GetStringSlice("ecs_devices") }

func (c *Config) DockerStopTimeout() time.Duration {
	return c.v.GetDuration("docker_stop_timeout")
}

func (c *Config) AWSCallTimeout() time.Duration {
	return c.v.GetDuration("aws_call_timeout")
}

func (c *Config) AutogradeWait() time.Duration {
	return c.v.GetDuration("autograde_wait")
}

// TaskRetention is how long finished task handles stay queryable.
func (c *Config) TaskRetention() time.Duration {
	return c.v.GetDuration("task_retention")
}
