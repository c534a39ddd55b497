// Package store persists users, boards, columns, cards and comments.
//
// Two implementations share one contract: GormStore for relational databases and
// FileStore for a single JSON document on disk. Read methods return nil or an empty
// slice when nothing matches; only write methods report ErrNotFound.
package store

import (
	"context"
	"errors"
	"sort"

	"github.com/localnerve/retroboard/internal/models"
)

var (
	// ErrNotFound is returned by writes that target a missing row
	ErrNotFound = errors.New("not found")
	// ErrVersionConflict is returned by UpdateCard when the stored version moved
	ErrVersionConflict = errors.New("E_VERSION")
	// ErrDuplicate is returned when a unique value (user email) is already taken
	ErrDuplicate = errors.New("duplicate")
)

// Store is the persistence contract shared by every backend
type Store interface {
	Ping(ctx context.Context) error
	Close() error

	ListUsers(ctx context.Context) ([]models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CountUsers(ctx context.Context) (int64, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id string) error

	ListBoards(ctx context.Context, teamID string) ([]models.Board, error)
	GetBoard(ctx context.Context, id string) (*models.Board, error)
	// CreateBoard stores the board with its columns and cards in one unit
	CreateBoard(ctx context.Context, board *models.Board, columns []models.Column, cards []models.Card) error
	UpdateBoard(ctx context.Context, board *models.Board) error
	// DeleteBoard removes the board, its columns, their cards and the cards' comments
	DeleteBoard(ctx context.Context, id string) error

	ListColumns(ctx context.Context, boardID string) ([]models.Column, error)
	GetColumn(ctx context.Context, id string) (*models.Column, error)
	// CreateColumn appends the column to its board
	CreateColumn(ctx context.Context, column *models.Column) error
	// UpdateColumn saves title and color
	UpdateColumn(ctx context.Context, column *models.Column) error
	MoveColumn(ctx context.Context, id string, index int) ([]models.Column, error)
	DeleteColumn(ctx context.Context, id string) error

	ListCards(ctx context.Context, columnID string) ([]models.Card, error)
	ListBoardCards(ctx context.Context, boardID string) ([]models.Card, error)
	GetCard(ctx context.Context, id string) (*models.Card, error)
	// CreateCard appends the card to its column
	CreateCard(ctx context.Context, card *models.Card) error
	// UpdateCard saves content, color and votes when card.Version still matches
	// the stored version, then advances card.Version.
	UpdateCard(ctx context.Context, card *models.Card) error
	// MoveCard places the card at index within columnID
	MoveCard(ctx context.Context, id, columnID string, index int) (*models.Card, error)
	DeleteCard(ctx context.Context, id string) error

	AddComment(ctx context.Context, comment *models.Comment) error
	DeleteComment(ctx context.Context, cardID, commentID string) error

	Snapshot(ctx context.Context) (*models.Snapshot, error)
}

// clamp bounds index to [0, n]
func clamp(index, n int) int {
	if index < 0 {
		return 0
	}
	if index > n {
		return n
	}
	return index
}

// insertAt returns ids with id placed at index (clamped) and any earlier occurrence removed
func insertAt(ids []string, id string, index int) []string {
	out := make([]string, 0, len(ids)+1)
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	index = clamp(index, len(out))
	out = append(out, "")
	copy(out[index+1:], out[index:])
	out[index] = id
	return out
}

// sortColumns orders columns by order_index, then creation
func sortColumns(cols []models.Column) {
	sort.SliceStable(cols, func(i, j int) bool {
		if cols[i].OrderIndex != cols[j].OrderIndex {
			return cols[i].OrderIndex < cols[j].OrderIndex
		}
		return cols[i].CreatedAt.Before(cols[j].CreatedAt)
	})
}

// sortCards orders cards by position, then creation
func sortCards(cards []models.Card) {
	sort.SliceStable(cards, func(i, j int) bool {
		if cards[i].Position != cards[j].Position {
			return cards[i].Position < cards[j].Position
		}
		return cards[i].CreatedAt.Before(cards[j].CreatedAt)
	})
}

// columnColors lists colors of ordered columns
func columnColors(cols []models.Column) models.StringList {
	out := make(models.StringList, len(cols))
	for i := range cols {
		out[i] = cols[i].Color
	}
	return out
}

// normalizeVotes keeps Votes equal to the size of the voter set
func normalizeVotes(card *models.Card) {
	if card.VotedUserIDs == nil {
		card.VotedUserIDs = models.StringList{}
	}
	card.Votes = len(card.VotedUserIDs)
}
