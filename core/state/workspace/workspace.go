package workspace

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ServerType string

const (
	TypeJupyter ServerType = "jupyter"
	TypeRestful ServerType = "restful"
	TypeCron    ServerType = "cron"
	TypeProxy   ServerType = "proxy"
	TypeRStudio ServerType = "rstudio"
	TypeCustom  ServerType = "custom"
)

// Config is the desired runtime configuration of a workspace.
type Config struct {
	Type     ServerType `json:"type"`
	Command  string     `json:"command,omitempty"`
	Function string     `json:"function,omitempty"`
	Script   string     `json:"script,omitempty"`
}

// ServerSize is a cpu/memory tier. CPU is expressed in ECS cpu units, Memory in MiB.
type ServerSize struct {
	Name   string `json:"name"`
	CPU    int    `json:"cpu"`
	Memory int    `json:"memory"`
}

var DefaultServerSize = ServerSize{
	Name:   "default",
	CPU:    256,
	Memory: 512,
}

// Workspace is one provisioned compute environment. State is owned by whichever
// spawner backend is active and must not be interpreted elsewhere.
type Workspace struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	ProjectID     string            `json:"project_id"`
	Owner         string            `json:"owner"`
	Config        Config            `json:"config"`
	EnvVars       map[string]string `json:"env_vars"`
	Image         string            `json:"image"`
	StartupScript string            `json:"startup_script,omitempty"`
	Size          ServerSize        `json:"server_size"`
	ServerKey     string            `json:"-"`
	State         StateBlob         `json:"state"`
	StateVersion  int64             `json:"state_version"`
	LastStatus    Status            `json:"last_status,omitempty"`
	IsActive      bool              `json:"is_active"`
	Connected     []string          `json:"connected,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// New builds an active workspace with fresh identity. Nothing is provisioned
// remotely until the first start.
func New(name, owner, projectID string, cfg Config) *Workspace {
	return &Workspace{
		ID:        uuid.New().String(),
		Name:      name,
		ProjectID: projectID,
		Owner:     owner,
		Config:    cfg,
		EnvVars:   make(map[string]string),
		Size:      DefaultServerSize,
		ServerKey: uuid.New().String(),
		State:     make(StateBlob),
		IsActive:  true,
	}
}

// VolumePath is the host directory holding the owning project's files.
func (w *Workspace) VolumePath(root string) string {
	return filepath.Join(root, w.Owner, w.ProjectID)
}

// EnvList renders EnvVars as sorted KEY=VALUE pairs.
func (w *Workspace) EnvList() []string {
	env := make([]string, 0, len(w.EnvVars))
	for k, v := range w.EnvVars {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9_-]+`)

// Slug is the canonical container/service name of the workspace.
func (w *Workspace) Slug() string {
	return Slugify(w.ID)
}

func Slugify(s string) string {
	s = nonSlugChars.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(s, "-_")
}
