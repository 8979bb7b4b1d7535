package store

import (
	"context"
	"time"

	"github.com/eagraf/habitat-workspaces/core/state/workspace"
	"gorm.io/gorm"
)

// OpenRunStatistics starts a record for the workspace. When a record is
// already open it is returned unchanged, so redelivered RUNNING events never
// leave a second open record behind.
func (s *Store) OpenRunStatistics(ctx context.Context, workspaceID string, start time.Time) (*workspace.RunStatistics, error) {
	var stats *workspace.RunStatistics
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		open, err := latestOpen(tx, workspaceID)
		if err != nil {
			return err
		}
		if open != nil {
			stats = open.toRunStatistics()
			return nil
		}
		row := &runStatisticsRow{
			WorkspaceID: workspaceID,
			Start:       start.UTC(),
		}
		err = tx.Create(row).Error
		if err != nil {
			return err
		}
		stats = row.toRunStatistics()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// latestOpen returns the most recently started open record, or nil.
func latestOpen(tx *gorm.DB, workspaceID string) (*runStatisticsRow, error) {
	var rows []runStatisticsRow
	err := tx.Where("workspace_id = ?", workspaceID).
		Order("started_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].toRunStatistics().IsOpen() {
			return &rows[i], nil
		}
	}
	return nil, nil
}

// CloseLatestOpen sets the stop time of the most recently started open record.
// It returns nil when the workspace has no open record.
func (s *Store) CloseLatestOpen(ctx context.Context, workspaceID string, stop time.Time) (*workspace.RunStatistics, error) {
	db := s.db.WithContext(ctx)
	open, err := latestOpen(db, workspaceID)
	if err != nil || open == nil {
		return nil, err
	}
	open.Stop = stop.UTC()
	err = db.Model(open).Update("stopped_at", open.Stop).Error
	if err != nil {
		return nil, err
	}
	return open.toRunStatistics(), nil
}

func (s *Store) ListRunStatistics(ctx context.Context, workspaceID string) ([]*workspace.RunStatistics, error) {
	var rows []runStatisticsRow
	err := s.db.WithContext(ctx).Where("workspace_id = ?", workspaceID).Order("started_at, id").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*workspace.RunStatistics, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toRunStatistics())
	}
	return out, nil
}

func (r *runStatisticsRow) toRunStatistics() *workspace.RunStatistics {
	return &workspace.RunStatistics{
		ID:          r.ID,
		WorkspaceID: r.WorkspaceID,
		Start:       r.Start,
		Stop:        r.Stop,
	}
}
