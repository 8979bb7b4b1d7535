package store

import (
	"context"

	"github.com/eagraf/habitat-workspaces/core/state/workspace"
)

// StateHistory returns the recorded state patches of a workspace or deployment, oldest first.
func (s *Store) StateHistory(ctx context.Context, entityID string) ([][]byte, error) {
	var rows []stateEventRow
	err := s.db.WithContext(ctx).Where("entity_id = ?", entityID).Order("version").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	patches := make([][]byte, 0, len(rows))
	for _, r := range rows {
		patches = append(patches, []byte(r.Patch))
	}
	return patches, nil
}

// StateAt rebuilds the state blob as it was committed at version.
func (s *Store) StateAt(ctx context.Context, entityID string, version int64) (workspace.StateBlob, error) {
	var rows []stateEventRow
	err := s.db.WithContext(ctx).
		Where("entity_id = ? AND version <= ?", entityID, version).
		Order("version").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	patches := make([][]byte, 0, len(rows))
	for _, r := range rows {
		patches = append(patches, []byte(r.Patch))
	}
	return workspace.ReplayState(nil, patches)
}
