package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/localnerve/retroboard/internal/models"
	"github.com/localnerve/retroboard/internal/types"
)

// Palette colors columns created without an explicit color
var Palette = []string{"#22c55e", "#ef4444", "#3b82f6", "#f59e0b", "#a855f7", "#14b8a6", "#ec4899", "#64748b"}

func paletteColor(i int) string {
	return Palette[i%len(Palette)]
}

// applyPatch copies the non-nil fields of p onto board
func applyPatch(board *models.Board, p types.BoardPatch) {
	if p.Title != nil {
		board.Title = strings.TrimSpace(*p.Title)
	}
	if p.TeamID != nil {
		board.TeamID = *p.TeamID
	}
	if p.VotingDisabled != nil {
		board.VotingDisabled = *p.VotingDisabled
	}
	if p.VotesHidden != nil {
		board.VotesHidden = *p.VotesHidden
	}
	if p.CardsBlurred != nil {
		board.CardsBlurred = *p.CardsBlurred
	}
	if p.GifsEnabled != nil {
		board.GifsEnabled = *p.GifsEnabled
	}
	if p.ReactionsEnabled != nil {
		board.ReactionsEnabled = *p.ReactionsEnabled
	}
	if p.CommentsEnabled != nil {
		board.CommentsEnabled = *p.CommentsEnabled
	}
	if p.MaxVotes != nil {
		board.MaxVotes = int(p.MaxVotes.Int64())
	}
}

// ListBoards returns the boards of a team, or every board when teamID is empty
func (s *Service) ListBoards(ctx context.Context, teamID string) ([]models.Board, error) {
	return s.Store.ListBoards(ctx, teamID)
}

// GetBoard returns a board or nil
func (s *Service) GetBoard(ctx context.Context, id string) (*models.Board, error) {
	return s.Store.GetBoard(ctx, id)
}

// CreateBoard creates a board seeded with the requested or default columns
func (s *Service) CreateBoard(ctx context.Context, actor *models.User, req types.CreateBoardRequest) (*models.Board, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	creator, err := s.actingAs(ctx, actor, req.CreatorID)
	if err != nil {
		return nil, err
	}

	board := &models.Board{
		ID:             uuid.NewString(),
		Title:          strings.TrimSpace(req.Title),
		TeamID:         req.TeamID,
		CreatorID:      creator.ID,
		BoardOptions:   models.DefaultBoardOptions(),
		AllowedUserIDs: models.StringList(types.Unique(req.Options.AllowedUserIDs)),
	}
	applyPatch(board, req.Options.BoardPatch)
	board.Title = strings.TrimSpace(req.Title)

	var columns []models.Column
	if len(req.Options.Columns) > 0 {
		for i, def := range req.Options.Columns {
			color := def.Color
			if color == "" {
				color = paletteColor(i)
			}
			columns = append(columns, models.Column{ID: uuid.NewString(), Title: strings.TrimSpace(def.Title), Color: color})
		}
	} else {
		for _, def := range models.DefaultColumns {
			columns = append(columns, models.Column{ID: uuid.NewString(), Title: def.Title, Color: def.Color})
		}
	}

	if err := s.Store.CreateBoard(ctx, board, columns, nil); err != nil {
		return nil, fmt.Errorf("create board: %w", err)
	}
	return board, nil
}

// UpdateBoard applies one board command
func (s *Service) UpdateBoard(ctx context.Context, actor *models.User, id string, cmd types.BoardCommand) (*models.Board, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	board, err := s.editableBoard(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	switch cmd.Op {
	case types.BoardOpUpdate:
		applyPatch(board, cmd.Fields)
	case types.BoardOpInvite:
		for _, uid := range types.Unique(cmd.UserIDs) {
			board.AllowedUserIDs = board.AllowedUserIDs.With(uid)
		}
	case types.BoardOpRemoveMember:
		for _, uid := range types.Unique(cmd.UserIDs) {
			board.AllowedUserIDs = board.AllowedUserIDs.Without(uid)
		}
	case types.BoardOpComplete:
		board.IsCompleted = true
	case types.BoardOpReopen:
		board.IsCompleted = false
	case types.BoardOpArchive:
		board.IsArchived = true
	case types.BoardOpUnarchive:
		board.IsArchived = false
	}

	if err := s.Store.UpdateBoard(ctx, board); err != nil {
		return nil, storeError(err)
	}
	return s.Store.GetBoard(ctx, id)
}

// DeleteBoard removes a board with its columns, cards and comments
func (s *Service) DeleteBoard(ctx context.Context, actor *models.User, id string) error {
	if _, err := s.editableBoard(ctx, actor, id); err != nil {
		return err
	}
	if err := s.Store.DeleteBoard(ctx, id); err != nil {
		return storeError(err)
	}
	if s.Reactions != nil {
		s.Reactions.Forget(id)
	}
	return nil
}

// CloneBoard copies a board with fresh ids: same settings, columns and cards,
// votes reset and comments left behind.
func (s *Service) CloneBoard(ctx context.Context, actor *models.User, id string, req types.CloneBoardRequest) (*models.Board, error) {
	creator, err := s.actingAs(ctx, actor, req.CreatorID)
	if err != nil {
		return nil, err
	}
	source, err := s.Store.GetBoard(ctx, id)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, ErrNotFound
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "Copy of " + source.Title
	}

	board := &models.Board{
		ID:             uuid.NewString(),
		Title:          title,
		TeamID:         source.TeamID,
		CreatorID:      creator.ID,
		BoardOptions:   source.BoardOptions,
		AllowedUserIDs: source.AllowedUserIDs.Clone(),
	}

	sourceColumns, err := s.Store.ListColumns(ctx, id)
	if err != nil {
		return nil, err
	}
	columns := make([]models.Column, 0, len(sourceColumns))
	var cards []models.Card
	for _, sc := range sourceColumns {
		column := models.Column{ID: uuid.NewString(), Title: sc.Title, Color: sc.Color}
		columns = append(columns, column)

		sourceCards, err := s.Store.ListCards(ctx, sc.ID)
		if err != nil {
			return nil, err
		}
		for _, card := range sourceCards {
			clone := models.Card{
				ID:           uuid.NewString(),
				ColumnID:     column.ID,
				Content:      card.Content,
				AuthorID:     card.AuthorID,
				AuthorName:   card.AuthorName,
				AuthorAvatar: card.AuthorAvatar,
				IsAnonymous:  card.IsAnonymous,
				Color:        card.Color,
				Position:     card.Position,
			}
			clone.ResetVotes()
			cards = append(cards, clone)
		}
	}

	if err := s.Store.CreateBoard(ctx, board, columns, cards); err != nil {
		return nil, fmt.Errorf("clone board: %w", err)
	}
	return board, nil
}
