package services

import (
	"context"
	"strings"

	"github.com/localnerve/retroboard/internal/models"
	"github.com/localnerve/retroboard/internal/types"
)

// PublishReaction broadcasts an emoji or GIF on a board.
// Completed boards still accept reactions.
func (s *Service) PublishReaction(ctx context.Context, actor *models.User, req types.ReactionRequest) (*models.ReactionEvent, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	board, err := s.Store.GetBoard(ctx, req.BoardID)
	if err != nil {
		return nil, err
	}
	if board == nil {
		return nil, ErrNotFound
	}
	if !board.ReactionsEnabled {
		return nil, ErrReactionsOff
	}
	gif := strings.TrimSpace(req.GifURL)
	if gif != "" && !board.GifsEnabled {
		return nil, ErrGifsOff
	}
	user, err := s.actingAs(ctx, actor, req.UserID)
	if err != nil {
		return nil, err
	}

	ev := s.Reactions.Publish(models.ReactionEvent{
		ID:      req.ReactionID,
		BoardID: board.ID,
		Emoji:   strings.TrimSpace(req.Emoji),
		GifURL:  gif,
		UserID:  user.ID,
	})
	return &ev, nil
}

// ReactionsSince returns the board's retained reactions newer than since (Unix ms).
// An unknown board has no reactions.
func (s *Service) ReactionsSince(ctx context.Context, boardID string, since int64) ([]models.ReactionEvent, error) {
	board, err := s.Store.GetBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if board == nil {
		return []models.ReactionEvent{}, nil
	}
	return s.Reactions.Since(boardID, since), nil
}

// SubscribeReactions opens a push feed for a board. Call cancel when done.
func (s *Service) SubscribeReactions(ctx context.Context, boardID string) (<-chan models.ReactionEvent, func(), error) {
	board, err := s.Store.GetBoard(ctx, boardID)
	if err != nil {
		return nil, nil, err
	}
	if board == nil {
		return nil, nil, ErrNotFound
	}
	ch, cancel := s.Reactions.Subscribe(boardID)
	return ch, cancel, nil
}
