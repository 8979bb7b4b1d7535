package workspace

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Deployment is a function-style workspace served through Lambda and API Gateway.
type Deployment struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	ProjectID    string            `json:"project_id"`
	Owner        string            `json:"owner"`
	Runtime      string            `json:"runtime"`
	Handler      string            `json:"handler"`
	Files        []string          `json:"files"`
	EnvVars      map[string]string `json:"env_vars"`
	AccessToken  string            `json:"-"`
	State        StateBlob         `json:"state"`
	StateVersion int64             `json:"state_version"`
	IsActive     bool              `json:"is_active"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

func NewDeployment(name, owner, projectID string) *Deployment {
	return &Deployment{
		ID:          uuid.New().String(),
		Name:        name,
		ProjectID:   projectID,
		Owner:       owner,
		EnvVars:     make(map[string]string),
		AccessToken: strings.ReplaceAll(uuid.New().String(), "-", ""),
		State:       make(StateBlob),
		IsActive:    true,
	}
}

func (d *Deployment) VolumePath(root string) string {
	w := Workspace{Owner: d.Owner, ProjectID: d.ProjectID}
	return w.VolumePath(root)
}

// Endpoint is the public URL once provisioning has completed, empty before.
func (d *Deployment) Endpoint() string {
	return d.State.GetString(KeyEndpoint)
}
