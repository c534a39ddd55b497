// service.go
//
// A real-time retrospective board service
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of retroboard.
// retroboard is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// retroboard is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with retroboard.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

// Package services holds the board rules on top of a store.Store.
package services

import (
	"context"
	"time"

	"github.com/localnerve/retroboard/internal/models"
	"github.com/localnerve/retroboard/internal/reactions"
	"github.com/localnerve/retroboard/internal/store"
)

// Service implements every board operation over a Store and a reaction Hub
type Service struct {
	Store     store.Store
	Reactions *reactions.Hub
	Tokens    *TokenIssuer

	now func() time.Time
}

// New builds a Service
func New(st store.Store, hub *reactions.Hub, tokens *TokenIssuer) *Service {
	return &Service{
		Store:     st,
		Reactions: hub,
		Tokens:    tokens,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// actingAs resolves the user an operation is performed for.
// An empty or matching requestedID means the actor; only admins act for others.
func (s *Service) actingAs(ctx context.Context, actor *models.User, requestedID string) (*models.User, error) {
	if actor == nil {
		return nil, ErrUnauthorized
	}
	if requestedID == "" || requestedID == actor.ID {
		return actor, nil
	}
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	user, err := s.Store.GetUser(ctx, requestedID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// editableBoard loads a board the actor may mutate
func (s *Service) editableBoard(ctx context.Context, actor *models.User, boardID string) (*models.Board, error) {
	board, err := s.Store.GetBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if board == nil {
		return nil, ErrNotFound
	}
	if !board.Editable(actor) {
		return nil, ErrBoardLocked
	}
	return board, nil
}

// editableColumn loads a column whose board the actor may mutate
func (s *Service) editableColumn(ctx context.Context, actor *models.User, columnID string) (*models.Column, *models.Board, error) {
	column, err := s.Store.GetColumn(ctx, columnID)
	if err != nil {
		return nil, nil, err
	}
	if column == nil {
		return nil, nil, ErrNotFound
	}
	board, err := s.editableBoard(ctx, actor, column.BoardID)
	if err != nil {
		return nil, nil, err
	}
	return column, board, nil
}

// editableCard loads a card whose board the actor may mutate
func (s *Service) editableCard(ctx context.Context, actor *models.User, cardID string) (*models.Card, *models.Board, error) {
	card, err := s.Store.GetCard(ctx, cardID)
	if err != nil {
		return nil, nil, err
	}
	if card == nil {
		return nil, nil, ErrNotFound
	}
	board, err := s.editableBoard(ctx, actor, card.BoardID)
	if err != nil {
		return nil, nil, err
	}
	return card, board, nil
}

// Snapshot returns the whole database plus the retained reactions
func (s *Service) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	snap, err := s.Store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if s.Reactions != nil {
		snap.Reactions = s.Reactions.All()
	}
	return snap, nil
}
