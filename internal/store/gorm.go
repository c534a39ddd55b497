// gorm.go
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

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/localnerve/retroboard/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"gorm.io/hints"
)

// GormStore is the relational Store
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open, migrated database
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// DB exposes the underlying connection for schema setup and health checks
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

func (s *GormStore) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// quiet silences statement logging for single row lookups
func (s *GormStore) quiet(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Session(&gorm.Session{Logger: s.db.Logger.LogMode(logger.Silent)})
}

// forUpdate locks the rows tx reads until the transaction ends. sqlite
// drops the clause and relies on its single writer; sqlserver has no FOR UPDATE.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlserver" {
		return tx
	}
	return tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)}).
		Clauses(clause.Locking{Strength: "UPDATE"})
}

// lockParent takes the row lock on the board or column whose children are renumbered
func lockParent[T any](tx *gorm.DB, id string) (*T, error) {
	return first[T](forUpdate(tx).Where("id = ?", id))
}

// first returns nil, nil when q matches nothing
func first[T any](q *gorm.DB) (*T, error) {
	var v T
	if err := q.First(&v).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func orderedComments(db *gorm.DB) *gorm.DB {
	return db.Order("created_at, id")
}

// Ping checks database connectivity
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ListUsers returns every user, oldest first
func (s *GormStore) ListUsers(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	if err := s.conn(ctx).Order("created_at, id").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// GetUser finds a user by id
func (s *GormStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	return first[models.User](s.quiet(ctx).Where("id = ?", id))
}

// GetUserByEmail finds a user by email
func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return first[models.User](s.quiet(ctx).Where("email = ?", email))
}

// CountUsers returns the number of users
func (s *GormStore) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := s.conn(ctx).Model(&models.User{}).Count(&n).Error
	return n, err
}

// CreateUser inserts a user, ErrDuplicate when the email is taken
func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.User{}).Where("email = ?", user.Email).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrDuplicate
		}
		if err := tx.Create(user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicate
			}
			return err
		}
		return nil
	})
}

// UpdateUser saves every user field
func (s *GormStore) UpdateUser(ctx context.Context, user *models.User) error {
	res := s.conn(ctx).Model(user).Select("*").Omit("id", "created_at").Updates(user)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser removes a user. Cards keep their author snapshot.
func (s *GormStore) DeleteUser(ctx context.Context, id string) error {
	res := s.conn(ctx).Delete(&models.User{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListBoards returns boards of teamID, or all boards when teamID is empty, newest first
func (s *GormStore) ListBoards(ctx context.Context, teamID string) ([]models.Board, error) {
	boards := []models.Board{}
	q := s.conn(ctx).Clauses(hints.Comment("select", "retroboard:list_boards")).Order("created_at DESC, id")
	if teamID != "" {
		q = q.Where("team_id = ?", teamID)
	}
	if err := q.Find(&boards).Error; err != nil {
		return nil, err
	}
	return boards, nil
}

// GetBoard finds a board by id
func (s *GormStore) GetBoard(ctx context.Context, id string) (*models.Board, error) {
	return first[models.Board](s.quiet(ctx).Clauses(hints.Comment("select", "retroboard:board_load")).Where("id = ?", id))
}

// CreateBoard stores the board with its columns and cards in one transaction
func (s *GormStore) CreateBoard(ctx context.Context, board *models.Board, columns []models.Column, cards []models.Card) error {
	for i := range columns {
		columns[i].BoardID = board.ID
		columns[i].OrderIndex = i
	}
	board.ColumnColors = columnColors(columns)
	if board.AllowedUserIDs == nil {
		board.AllowedUserIDs = models.StringList{}
	}
	for i := range cards {
		cards[i].BoardID = board.ID
		if cards[i].Version == 0 {
			cards[i].Version = 1
		}
		normalizeVotes(&cards[i])
	}

	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(board).Error; err != nil {
			return fmt.Errorf("create board: %w", err)
		}
		if len(columns) > 0 {
			if err := tx.Create(&columns).Error; err != nil {
				return fmt.Errorf("create columns: %w", err)
			}
		}
		if len(cards) > 0 {
			if err := tx.Omit("Comments").Create(&cards).Error; err != nil {
				return fmt.Errorf("create cards: %w", err)
			}
		}
		return nil
	})
}

// UpdateBoard saves every board field except the store maintained column colors
func (s *GormStore) UpdateBoard(ctx context.Context, board *models.Board) error {
	res := s.conn(ctx).Model(board).Select("*").Omit("id", "created_at", "column_colors").Updates(board)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteBoard removes the board and everything it contains
func (s *GormStore) DeleteBoard(ctx context.Context, id string) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		cardIDs := tx.Model(&models.Card{}).Select("id").Where("board_id = ?", id)
		if err := tx.Where("card_id IN (?)", cardIDs).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("board_id = ?", id).Delete(&models.Card{}).Error; err != nil {
			return err
		}
		if err := tx.Where("board_id = ?", id).Delete(&models.Column{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Board{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ListColumns returns the board's columns left to right
func (s *GormStore) ListColumns(ctx context.Context, boardID string) ([]models.Column, error) {
	columns := []models.Column{}
	err := s.conn(ctx).Clauses(hints.Comment("select", "retroboard:board_load")).
		Where("board_id = ?", boardID).
		Order("order_index, created_at").
		Find(&columns).Error
	if err != nil {
		return nil, err
	}
	return columns, nil
}

// GetColumn finds a column by id
func (s *GormStore) GetColumn(ctx context.Context, id string) (*models.Column, error) {
	return first[models.Column](s.quiet(ctx).Where("id = ?", id))
}

// CreateColumn appends the column after the board's last column
func (s *GormStore) CreateColumn(ctx context.Context, column *models.Column) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockParent[models.Board](tx, column.BoardID); err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&models.Column{}).Where("board_id = ?", column.BoardID).Count(&n).Error; err != nil {
			return err
		}
		column.OrderIndex = int(n)
		if err := tx.Create(column).Error; err != nil {
			return err
		}
		_, err := renumberColumns(tx, column.BoardID, "")
		return err
	})
}

// UpdateColumn saves the column title and color
func (s *GormStore) UpdateColumn(ctx context.Context, column *models.Column) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := first[models.Column](tx.Where("id = ?", column.ID))
		if err != nil {
			return err
		}
		if current == nil {
			return ErrNotFound
		}
		column.UpdatedAt = time.Now()
		if err := tx.Model(&models.Column{}).Where("id = ?", column.ID).Updates(map[string]interface{}{
			"title":      column.Title,
			"color":      column.Color,
			"updated_at": column.UpdatedAt,
		}).Error; err != nil {
			return err
		}
		column.BoardID = current.BoardID
		column.OrderIndex = current.OrderIndex
		column.CreatedAt = current.CreatedAt
		_, err = renumberColumns(tx, current.BoardID, "")
		return err
	})
}

// MoveColumn places the column at index and returns the board's columns in their new order
func (s *GormStore) MoveColumn(ctx context.Context, id string, index int) ([]models.Column, error) {
	var columns []models.Column
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		column, err := first[models.Column](tx.Where("id = ?", id))
		if err != nil {
			return err
		}
		if column == nil {
			return ErrNotFound
		}
		if _, err := lockParent[models.Board](tx, column.BoardID); err != nil {
			return err
		}
		columns, err = renumberColumns(tx, column.BoardID, id, index)
		return err
	})
	if err != nil {
		return nil, err
	}
	return columns, nil
}

// DeleteColumn removes the column with its cards and their comments
func (s *GormStore) DeleteColumn(ctx context.Context, id string) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		column, err := first[models.Column](tx.Where("id = ?", id))
		if err != nil {
			return err
		}
		if column == nil {
			return ErrNotFound
		}
		if _, err := lockParent[models.Board](tx, column.BoardID); err != nil {
			return err
		}
		cardIDs := tx.Model(&models.Card{}).Select("id").Where("column_id = ?", id)
		if err := tx.Where("card_id IN (?)", cardIDs).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("column_id = ?", id).Delete(&models.Card{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Column{}, "id = ?", id).Error; err != nil {
			return err
		}
		_, err = renumberColumns(tx, column.BoardID, "")
		return err
	})
}

// renumberColumns rewrites order_index to 0..n-1, optionally moving moveID to the
// first element of at, and refreshes the board's column colors.
func renumberColumns(tx *gorm.DB, boardID, moveID string, at ...int) ([]models.Column, error) {
	var columns []models.Column
	if err := forUpdate(tx).Where("board_id = ?", boardID).Order("order_index, created_at").Find(&columns).Error; err != nil {
		return nil, err
	}

	if moveID != "" && len(at) > 0 {
		byID := make(map[string]models.Column, len(columns))
		ids := make([]string, len(columns))
		for i, c := range columns {
			byID[c.ID] = c
			ids[i] = c.ID
		}
		ids = insertAt(ids, moveID, at[0])
		for i, cid := range ids {
			columns[i] = byID[cid]
		}
	}

	for i := range columns {
		if columns[i].OrderIndex == i {
			continue
		}
		columns[i].OrderIndex = i
		if err := tx.Model(&models.Column{}).Where("id = ?", columns[i].ID).UpdateColumn("order_index", i).Error; err != nil {
			return nil, err
		}
	}

	if err := tx.Model(&models.Board{}).Where("id = ?", boardID).
		UpdateColumn("column_colors", columnColors(columns)).Error; err != nil {
		return nil, err
	}
	return columns, nil
}

// ListCards returns the column's cards top to bottom with their comments
func (s *GormStore) ListCards(ctx context.Context, columnID string) ([]models.Card, error) {
	cards := []models.Card{}
	err := s.conn(ctx).Clauses(hints.Comment("select", "retroboard:board_load")).
		Preload("Comments", orderedComments).
		Where("column_id = ?", columnID).
		Order("position, created_at").
		Find(&cards).Error
	if err != nil {
		return nil, err
	}
	return cards, nil
}

// ListBoardCards returns every card of a board grouped by column
func (s *GormStore) ListBoardCards(ctx context.Context, boardID string) ([]models.Card, error) {
	cards := []models.Card{}
	err := s.conn(ctx).Clauses(hints.Comment("select", "retroboard:board_load")).
		Preload("Comments", orderedComments).
		Where("board_id = ?", boardID).
		Order("column_id, position, created_at").
		Find(&cards).Error
	if err != nil {
		return nil, err
	}
	return cards, nil
}

// GetCard finds a card by id with its comments
func (s *GormStore) GetCard(ctx context.Context, id string) (*models.Card, error) {
	return first[models.Card](s.quiet(ctx).Preload("Comments", orderedComments).Where("id = ?", id))
}

// CreateCard appends the card to the bottom of its column
func (s *GormStore) CreateCard(ctx context.Context, card *models.Card) error {
	normalizeVotes(card)
	if card.Version == 0 {
		card.Version = 1
	}
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockParent[models.Column](tx, card.ColumnID); err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&models.Card{}).Where("column_id = ?", card.ColumnID).Count(&n).Error; err != nil {
			return err
		}
		card.Position = int(n)
		return tx.Omit("Comments").Create(card).Error
	})
}

// UpdateCard writes content, color and votes guarded by the card version
func (s *GormStore) UpdateCard(ctx context.Context, card *models.Card) error {
	normalizeVotes(card)
	now := time.Now()

	res := s.conn(ctx).Model(&models.Card{}).
		Where("id = ? AND version = ?", card.ID, card.Version).
		Updates(map[string]interface{}{
			"content":        card.Content,
			"color":          card.Color,
			"votes":          card.Votes,
			"voted_user_ids": card.VotedUserIDs,
			"version":        card.Version + 1,
			"updated_at":     now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := s.conn(ctx).Model(&models.Card{}).Where("id = ?", card.ID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrVersionConflict
	}

	card.Version++
	card.UpdatedAt = now
	return nil
}

// MoveCard moves the card to index within columnID and renumbers both columns
func (s *GormStore) MoveCard(ctx context.Context, id, columnID string, index int) (*models.Card, error) {
	var moved *models.Card
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		card, err := first[models.Card](tx.Where("id = ?", id))
		if err != nil {
			return err
		}
		if card == nil {
			return ErrNotFound
		}
		// columns are locked before their cards, in id order, so crossing moves cannot deadlock
		source := card.ColumnID
		lockIDs := []string{source, columnID}
		if columnID < source {
			lockIDs[0], lockIDs[1] = columnID, source
		}
		var dest *models.Column
		for _, cid := range lockIDs {
			col, err := lockParent[models.Column](tx, cid)
			if err != nil {
				return err
			}
			if cid == columnID {
				dest = col
			}
		}
		if dest == nil {
			return ErrNotFound
		}
		if card, err = first[models.Card](forUpdate(tx).Where("id = ?", id)); err != nil {
			return err
		}
		if card == nil {
			return ErrNotFound
		}
		if card.ColumnID != source {
			return ErrVersionConflict
		}

		if source != columnID {
			if err := tx.Model(&models.Card{}).Where("id = ?", id).Updates(map[string]interface{}{
				"column_id":  columnID,
				"board_id":   dest.BoardID,
				"updated_at": time.Now(),
			}).Error; err != nil {
				return err
			}
		}

		if err := renumberCards(tx, columnID, id, index); err != nil {
			return err
		}
		if source != columnID {
			if err := renumberCards(tx, source, ""); err != nil {
				return err
			}
		}

		moved, err = first[models.Card](tx.Preload("Comments", orderedComments).Where("id = ?", id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}

// renumberCards rewrites positions of a column to 0..n-1, optionally placing moveID at the first element of at
func renumberCards(tx *gorm.DB, columnID, moveID string, at ...int) error {
	var cards []models.Card
	if err := forUpdate(tx).Select("id", "position", "created_at").Where("column_id = ?", columnID).
		Order("position, created_at").Find(&cards).Error; err != nil {
		return err
	}

	ids := make([]string, len(cards))
	positions := make(map[string]int, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
		positions[c.ID] = c.Position
	}
	if moveID != "" && len(at) > 0 {
		ids = insertAt(ids, moveID, at[0])
	}

	for i, cid := range ids {
		if p, ok := positions[cid]; ok && p == i && cid != moveID {
			continue
		}
		if err := tx.Model(&models.Card{}).Where("id = ?", cid).UpdateColumn("position", i).Error; err != nil {
			return err
		}
	}
	return nil
}

// DeleteCard removes the card and its comments
func (s *GormStore) DeleteCard(ctx context.Context, id string) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		card, err := first[models.Card](tx.Where("id = ?", id))
		if err != nil {
			return err
		}
		if card == nil {
			return ErrNotFound
		}
		if _, err := lockParent[models.Column](tx, card.ColumnID); err != nil {
			return err
		}
		if err := tx.Where("card_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Card{}, "id = ?", id).Error; err != nil {
			return err
		}
		return renumberCards(tx, card.ColumnID, "")
	})
}

// AddComment attaches a comment to an existing card
func (s *GormStore) AddComment(ctx context.Context, comment *models.Comment) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Card{}).Where("id = ?", comment.CardID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return tx.Create(comment).Error
	})
}

// DeleteComment removes a comment of cardID
func (s *GormStore) DeleteComment(ctx context.Context, cardID, commentID string) error {
	res := s.conn(ctx).Delete(&models.Comment{}, "id = ? AND card_id = ?", commentID, cardID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Snapshot reads every table for export
func (s *GormStore) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	snap := &models.Snapshot{
		Users:     []models.User{},
		Boards:    []models.Board{},
		Columns:   []models.Column{},
		Cards:     []models.Card{},
		Comments:  []models.Comment{},
		Reactions: []models.ReactionEvent{},
	}
	db := s.conn(ctx).Clauses(hints.Comment("select", "retroboard:export")).Session(&gorm.Session{})
	if err := db.Order("created_at, id").Find(&snap.Users).Error; err != nil {
		return nil, err
	}
	if err := db.Order("created_at, id").Find(&snap.Boards).Error; err != nil {
		return nil, err
	}
	if err := db.Order("board_id, order_index").Find(&snap.Columns).Error; err != nil {
		return nil, err
	}
	if err := db.Order("board_id, column_id, position").Find(&snap.Cards).Error; err != nil {
		return nil, err
	}
	if err := db.Order("card_id, created_at").Find(&snap.Comments).Error; err != nil {
		return nil, err
	}
	return snap, nil
}
