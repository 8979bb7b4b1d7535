package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eagraf/habitat-workspaces/core/state/workspace"
	"gorm.io/gorm"
)

func (s *Store) CreateDeployment(ctx context.Context, d *workspace.Deployment) error {
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	row, err := toDeploymentRow(d)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Create(row).Error
		if err != nil {
			return err
		}
		return recordInitialState(tx, d.ID, d.State, d.StateVersion)
	})
}

func (s *Store) GetDeployment(ctx context.Context, id string) (*workspace.Deployment, error) {
	var row deploymentRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", workspace.ErrDeploymentNotFound, id)
	} else if err != nil {
		return nil, err
	}
	return row.toDeployment()
}

func (s *Store) SaveDeploymentState(ctx context.Context, d *workspace.Deployment) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur deploymentRow
		err := tx.Select("id", "state", "state_version").First(&cur, "id = ?", d.ID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", workspace.ErrDeploymentNotFound, d.ID)
		} else if err != nil {
			return err
		}
		return saveState(tx, &deploymentRow{}, d.ID, cur.State, d.State, d.StateVersion)
	})
	if err != nil {
		return err
	}
	d.StateVersion++
	d.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) DeactivateDeployment(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&deploymentRow{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", workspace.ErrDeploymentNotFound, id)
	}
	return nil
}
