package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/eagraf/habitat-workspaces/core/state/workspace"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store persists workspaces, deployments and their bookkeeping in SQLite.
type Store struct {
	db *gorm.DB
}

func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer.
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&workspaceRow{},
		&runStatisticsRow{},
		&deploymentRow{},
		&gatewayRow{},
		&stateEventRow{},
	)
	if err != nil {
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type workspaceRow struct {
	ID            string `gorm:"primaryKey"`
	Name          string
	ProjectID     string `gorm:"index"`
	Owner         string `gorm:"index"`
	Config        datatypes.JSON
	EnvVars       datatypes.JSON
	Image         string
	StartupScript string
	Size          datatypes.JSON
	ServerKey     string
	State         datatypes.JSON
	StateVersion  int64
	LastStatus    string
	IsActive      bool `gorm:"index"`
	Connected     datatypes.JSON
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (workspaceRow) TableName() string { return "workspaces" }

type runStatisticsRow struct {
	ID          uint      `gorm:"primaryKey"`
	WorkspaceID string    `gorm:"index"`
	Start       time.Time `gorm:"column:started_at"`
	Stop        time.Time `gorm:"column:stopped_at"`
}

func (runStatisticsRow) TableName() string { return "run_statistics" }

type deploymentRow struct {
	ID           string `gorm:"primaryKey"`
	Name         string
	ProjectID    string `gorm:"index"`
	Owner        string `gorm:"index"`
	Runtime      string
	Handler      string
	Files        datatypes.JSON
	EnvVars      datatypes.JSON
	AccessToken  string
	State        datatypes.JSON
	StateVersion int64
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (deploymentRow) TableName() string { return "deployments" }

// gatewayRow is a singleton, always stored under id 1.
type gatewayRow struct {
	ID             uint `gorm:"primaryKey"`
	Index          int  `gorm:"column:api_index"`
	RestAPIID      string
	AuthorizerID   string
	RootResourceID string
	UpdatedAt      time.Time
}

func (gatewayRow) TableName() string { return "gateway_infrastructure" }

type stateEventRow struct {
	ID        uint   `gorm:"primaryKey"`
	EntityID  string `gorm:"index"`
	Version   int64
	Patch     datatypes.JSON
	CreatedAt time.Time
}

func (stateEventRow) TableName() string { return "state_events" }

func marshalJSON(v any) (datatypes.JSON, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func unmarshalJSON(raw datatypes.JSON, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func toWorkspaceRow(ws *workspace.Workspace) (*workspaceRow, error) {
	row := &workspaceRow{
		ID:            ws.ID,
		Name:          ws.Name,
		ProjectID:     ws.ProjectID,
		Owner:         ws.Owner,
		Image:         ws.Image,
		StartupScript: ws.StartupScript,
		ServerKey:     ws.ServerKey,
		StateVersion:  ws.StateVersion,
		LastStatus:    string(ws.LastStatus),
		IsActive:      ws.IsActive,
		CreatedAt:     ws.CreatedAt,
		UpdatedAt:     ws.UpdatedAt,
	}
	var err error
	if row.Config, err = marshalJSON(ws.Config); err != nil {
		return nil, err
	}
	if row.EnvVars, err = marshalJSON(ws.EnvVars); err != nil {
		return nil, err
	}
	if row.Size, err = marshalJSON(ws.Size); err != nil {
		return nil, err
	}
	if row.State, err = marshalJSON(ws.State); err != nil {
		return nil, err
	}
	if row.Connected, err = marshalJSON(ws.Connected); err != nil {
		return nil, err
	}
	return row, nil
}

func (r *workspaceRow) toWorkspace() (*workspace.Workspace, error) {
	ws := &workspace.Workspace{
		ID:            r.ID,
		Name:          r.Name,
		ProjectID:     r.ProjectID,
		Owner:         r.Owner,
		Image:         r.Image,
		StartupScript: r.StartupScript,
		ServerKey:     r.ServerKey,
		StateVersion:  r.StateVersion,
		LastStatus:    workspace.Status(r.LastStatus),
		IsActive:      r.IsActive,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	for _, f := range []struct {
		raw datatypes.JSON
		v   any
	}{
		{r.Config, &ws.Config},
		{r.EnvVars, &ws.EnvVars},
		{r.Size, &ws.Size},
		{r.State, &ws.State},
		{r.Connected, &ws.Connected},
	} {
		err := unmarshalJSON(f.raw, f.v)
		if err != nil {
			return nil, fmt.Errorf("decoding workspace %s: %w", r.ID, err)
		}
	}
	if ws.EnvVars == nil {
		ws.EnvVars = make(map[string]string)
	}
	if ws.State == nil {
		ws.State = make(workspace.StateBlob)
	}
	return ws, nil
}

func toDeploymentRow(d *workspace.Deployment) (*deploymentRow, error) {
	row := &deploymentRow{
		ID:           d.ID,
		Name:         d.Name,
		ProjectID:    d.ProjectID,
		Owner:        d.Owner,
		Runtime:      d.Runtime,
		Handler:      d.Handler,
		AccessToken:  d.AccessToken,
		StateVersion: d.StateVersion,
		IsActive:     d.IsActive,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
	var err error
	if row.Files, err = marshalJSON(d.Files); err != nil {
		return nil, err
	}
	if row.EnvVars, err = marshalJSON(d.EnvVars); err != nil {
		return nil, err
	}
	if row.State, err = marshalJSON(d.State); err != nil {
		return nil, err
	}
	return row, nil
}

func (r *deploymentRow) toDeployment() (*workspace.Deployment, error) {
	d := &workspace.Deployment{
		ID:           r.ID,
		Name:         r.Name,
		ProjectID:    r.ProjectID,
		Owner:        r.Owner,
		Runtime:      r.Runtime,
		Handler:      r.Handler,
		AccessToken:  r.AccessToken,
		StateVersion: r.StateVersion,
		IsActive:     r.IsActive,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	err := unmarshalJSON(r.Files, &d.Files)
	if err != nil {
		return nil, err
	}
	err = unmarshalJSON(r.EnvVars, &d.EnvVars)
	if err != nil {
		return nil, err
	}
	err = unmarshalJSON(r.State, &d.State)
	if err != nil {
		return nil, err
	}
	if d.EnvVars == nil {
		d.EnvVars = make(map[string]string)
	}
	if d.State == nil {
		d.State = make(workspace.StateBlob)
	}
	return d, nil
}
