package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/localnerve/retroboard/internal/models"
	"github.com/localnerve/retroboard/internal/types"
)

// ListColumns returns a board's columns left to right
func (s *Service) ListColumns(ctx context.Context, boardID string) ([]models.Column, error) {
	return s.Store.ListColumns(ctx, boardID)
}

// CreateColumn appends a column to a board
func (s *Service) CreateColumn(ctx context.Context, actor *models.User, req types.CreateColumnRequest) (*models.Column, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	board, err := s.editableBoard(ctx, actor, req.BoardID)
	if err != nil {
		return nil, err
	}

	color := req.Color
	if color == "" {
		color = paletteColor(len(board.ColumnColors))
	}
	column := &models.Column{
		ID:      uuid.NewString(),
		BoardID: board.ID,
		Title:   strings.TrimSpace(req.Title),
		Color:   color,
	}
	if err := s.Store.CreateColumn(ctx, column); err != nil {
		return nil, storeError(err)
	}
	return column, nil
}

// UpdateColumn applies one column command
func (s *Service) UpdateColumn(ctx context.Context, actor *models.User, id string, cmd types.ColumnCommand) (*models.Column, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	column, _, err := s.editableColumn(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	switch cmd.Op {
	case types.ColumnOpRename:
		column.Title = strings.TrimSpace(cmd.Title)
	case types.ColumnOpRecolor:
		column.Color = cmd.Color
	case types.ColumnOpMove:
		columns, err := s.Store.MoveColumn(ctx, id, int(cmd.OrderIndex.Int64()))
		if err != nil {
			return nil, storeError(err)
		}
		for i := range columns {
			if columns[i].ID == id {
				return &columns[i], nil
			}
		}
		return nil, ErrNotFound
	}

	if err := s.Store.UpdateColumn(ctx, column); err != nil {
		return nil, storeError(err)
	}
	return column, nil
}

// DeleteColumn removes a column and every card in it
func (s *Service) DeleteColumn(ctx context.Context, actor *models.User, id string) error {
	if _, _, err := s.editableColumn(ctx, actor, id); err != nil {
		return err
	}
	return storeError(s.Store.DeleteColumn(ctx, id))
}
