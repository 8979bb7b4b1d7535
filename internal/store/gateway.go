package store

import (
	"context"
	"errors"

	"github.com/eagraf/habitat-workspaces/core/state/workspace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const gatewayRowID = 1

func (s *Store) GetGatewayInfrastructure(ctx context.Context) (*workspace.GatewayInfrastructure, error) {
	var row gatewayRow
	err := s.db.WithContext(ctx).First(&row, gatewayRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, workspace.ErrGatewayNotFound
	} else if err != nil {
		return nil, err
	}
	return &workspace.GatewayInfrastructure{
		Index:          row.Index,
		RestAPIID:      row.RestAPIID,
		AuthorizerID:   row.AuthorizerID,
		RootResourceID: row.RootResourceID,
	}, nil
}

func (s *Store) SaveGatewayInfrastructure(ctx context.Context, gw *workspace.GatewayInfrastructure) error {
	row := &gatewayRow{
		ID:             gatewayRowID,
		Index:          gw.Index,
		RestAPIID:      gw.RestAPIID,
		AuthorizerID:   gw.AuthorizerID,
		RootResourceID: gw.RootResourceID,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(row).Error
}
