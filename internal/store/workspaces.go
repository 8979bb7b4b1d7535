package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eagraf/habitat-workspaces/core/state/workspace"
	"gorm.io/gorm"
)

func (s *Store) CreateWorkspace(ctx context.Context, ws *workspace.Workspace) error {
	now := time.Now().UTC()
	if ws.CreatedAt.IsZero() {
		ws.CreatedAt = now
	}
	ws.UpdatedAt = now
	row, err := toWorkspaceRow(ws)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Create(row).Error
		if err != nil {
			return err
		}
		return recordInitialState(tx, ws.ID, ws.State, ws.StateVersion)
	})
}

// recordInitialState stores a non-empty starting blob as the first history patch.
func recordInitialState(tx *gorm.DB, id string, state workspace.StateBlob, version int64) error {
	patch, err := workspace.DiffState(nil, state)
	if err != nil || patch == nil {
		return err
	}
	return tx.Create(&stateEventRow{
		EntityID: id,
		Version:  version,
		Patch:    patch,
	}).Error
}

func (s *Store) GetWorkspace(ctx context.Context, id string) (*workspace.Workspace, error) {
	var row workspaceRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", workspace.ErrWorkspaceNotFound, id)
	} else if err != nil {
		return nil, err
	}
	return row.toWorkspace()
}

// ListWorkspaces returns the active workspaces, of one owner when owner is set.
func (s *Store) ListWorkspaces(ctx context.Context, owner string) ([]*workspace.Workspace, error) {
	q := s.db.WithContext(ctx).Where("is_active = ?", true)
	if owner != "" {
		q = q.Where("owner = ?", owner)
	}
	var rows []workspaceRow
	err := q.Order("created_at").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*workspace.Workspace, 0, len(rows))
	for i := range rows {
		ws, err := rows[i].toWorkspace()
		if err != nil {
			return nil, err
		}
		out = append(out, ws)
	}
	return out, nil
}

// SaveWorkspaceState commits the state blob if nobody else has since the
// workspace was loaded, and records the change as a JSON patch. On success the
// in-memory StateVersion is advanced.
func (s *Store) SaveWorkspaceState(ctx context.Context, ws *workspace.Workspace) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur workspaceRow
		err := tx.Select("id", "state", "state_version").First(&cur, "id = ?", ws.ID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", workspace.ErrWorkspaceNotFound, ws.ID)
		} else if err != nil {
			return err
		}
		return saveState(tx, &workspaceRow{}, ws.ID, cur.State, ws.State, ws.StateVersion)
	})
	if err != nil {
		return err
	}
	ws.StateVersion++
	ws.UpdatedAt = time.Now().UTC()
	return nil
}

// saveState is shared by workspaces and deployments; model selects the table.
func saveState(tx *gorm.DB, model any, id string, previous []byte, state workspace.StateBlob, version int64) error {
	raw, err := marshalJSON(state)
	if err != nil {
		return err
	}
	res := tx.Model(model).
		Where("id = ? AND state_version = ?", id, version).
		Updates(map[string]any{
			"state":         raw,
			"state_version": version + 1,
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s at version %d", workspace.ErrStateConflict, id, version)
	}

	var before workspace.StateBlob
	err = unmarshalJSON(previous, &before)
	if err != nil {
		return err
	}
	patch, err := workspace.DiffState(before, state)
	if err != nil {
		return err
	}
	if patch == nil {
		return nil
	}
	return tx.Create(&stateEventRow{
		EntityID: id,
		Version:  version + 1,
		Patch:    patch,
	}).Error
}

// UpdateLastStatus refreshes the cached status. It never touches the state blob.
func (s *Store) UpdateLastStatus(ctx context.Context, id string, status workspace.Status) error {
	res := s.db.WithContext(ctx).Model(&workspaceRow{}).Where("id = ?", id).Update("last_status", string(status))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", workspace.ErrWorkspaceNotFound, id)
	}
	return nil
}

// DeactivateWorkspace soft deletes a workspace so its history and statistics survive.
func (s *Store) DeactivateWorkspace(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&workspaceRow{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", workspace.ErrWorkspaceNotFound, id)
	}
	return nil
}
