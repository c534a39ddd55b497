// cards.go
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

package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/localnerve/retroboard/internal/models"
	"github.com/localnerve/retroboard/internal/store"
	"github.com/localnerve/retroboard/internal/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// maxCardAttempts bounds the read-modify-write loop of card mutations
const maxCardAttempts = 5

var votesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "retroboard_votes_total",
	Help: "Vote toggles applied, by direction.",
}, []string{"direction"})

// VoteResult is the outcome of a vote toggle
type VoteResult struct {
	Votes        int               `json:"votes"`
	VotedUserIDs models.StringList `json:"votedUserIds"`
	Voted        bool              `json:"voted"`
	Card         *models.Card      `json:"card"`
}

// ListCards returns a column's cards top to bottom
func (s *Service) ListCards(ctx context.Context, columnID string) ([]models.Card, error) {
	return s.Store.ListCards(ctx, columnID)
}

// ListBoardCards returns every card of a board
func (s *Service) ListBoardCards(ctx context.Context, boardID string) ([]models.Card, error) {
	return s.Store.ListBoardCards(ctx, boardID)
}

// CreateCard adds a card at the bottom of a column.
// The author's name and avatar are copied onto the card; anonymous cards keep neither.
func (s *Service) CreateCard(ctx context.Context, actor *models.User, req types.CreateCardRequest) (*models.Card, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	column, board, err := s.editableColumn(ctx, actor, req.ColumnID)
	if err != nil {
		return nil, err
	}
	author, err := s.actingAs(ctx, actor, req.AuthorID)
	if err != nil {
		return nil, err
	}

	card := &models.Card{
		ID:           uuid.NewString(),
		ColumnID:     column.ID,
		BoardID:      board.ID,
		Content:      strings.TrimSpace(req.Content),
		Color:        req.Options.Color,
		VotedUserIDs: models.StringList{},
	}
	if req.Options.IsAnonymous {
		card.IsAnonymous = true
		card.AuthorName = models.AnonymousAuthor
	} else {
		card.AuthorID = author.ID
		card.AuthorName = author.DisplayName()
		card.AuthorAvatar = author.AvatarURL
	}

	if err := s.Store.CreateCard(ctx, card); err != nil {
		return nil, storeError(err)
	}
	return card, nil
}

// mutateCard re-reads the card and applies fn until the versioned write lands
func (s *Service) mutateCard(ctx context.Context, actor *models.User, id string, fn func(card *models.Card, board *models.Board) error) (*models.Card, error) {
	for attempt := 0; attempt < maxCardAttempts; attempt++ {
		card, board, err := s.editableCard(ctx, actor, id)
		if err != nil {
			return nil, err
		}
		if err := fn(card, board); err != nil {
			return nil, err
		}
		err = s.Store.UpdateCard(ctx, card)
		if err == nil {
			return card, nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return nil, storeError(err)
		}
	}
	return nil, ErrVersion
}

// UpdateCard applies one card command
func (s *Service) UpdateCard(ctx context.Context, actor *models.User, id string, cmd types.CardCommand) (*models.Card, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	switch cmd.Op {
	case types.CardOpEdit:
		return s.mutateCard(ctx, actor, id, func(card *models.Card, _ *models.Board) error {
			card.Content = strings.TrimSpace(cmd.Content)
			return nil
		})
	case types.CardOpRecolor:
		return s.mutateCard(ctx, actor, id, func(card *models.Card, _ *models.Board) error {
			card.Color = cmd.Color
			return nil
		})
	}

	card, _, err := s.editableCard(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	dest, err := s.Store.GetColumn(ctx, cmd.ColumnID)
	if err != nil {
		return nil, err
	}
	if dest == nil {
		return nil, ErrNotFound
	}
	if dest.BoardID != card.BoardID {
		return nil, types.BadRequest("cards cannot move to another board")
	}
	moved, err := s.Store.MoveCard(ctx, id, dest.ID, int(cmd.Position.Int64()))
	if err != nil {
		return nil, storeError(err)
	}
	return moved, nil
}

// DeleteCard removes a card and its comments
func (s *Service) DeleteCard(ctx context.Context, actor *models.User, id string) error {
	if _, _, err := s.editableCard(ctx, actor, id); err != nil {
		return err
	}
	return storeError(s.Store.DeleteCard(ctx, id))
}

// ToggleVote adds or removes userID's vote on a card.
// A new vote is refused once the user's votes on the board reach max_votes;
// removing a vote is always allowed while voting is enabled.
func (s *Service) ToggleVote(ctx context.Context, actor *models.User, cardID, userID string) (*VoteResult, error) {
	voter, err := s.actingAs(ctx, actor, userID)
	if err != nil {
		return nil, err
	}

	var voted bool
	card, err := s.mutateCard(ctx, actor, cardID, func(card *models.Card, board *models.Board) error {
		if board.VotingDisabled {
			return ErrVotingDisabled
		}
		if !card.HasVoted(voter.ID) && board.MaxVotes > 0 {
			cards, err := s.Store.ListBoardCards(ctx, board.ID)
			if err != nil {
				return err
			}
			if models.CountUserVotes(cards, voter.ID) >= board.MaxVotes {
				return ErrVoteLimit
			}
		}
		voted = card.ToggleVote(voter.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	direction := "remove"
	if voted {
		direction = "add"
	}
	votesTotal.WithLabelValues(direction).Inc()

	return &VoteResult{Votes: card.Votes, VotedUserIDs: card.VotedUserIDs, Voted: voted, Card: card}, nil
}

// AddComment attaches a comment to a card. Anonymous comments keep no author id.
func (s *Service) AddComment(ctx context.Context, actor *models.User, cardID string, req types.CommentRequest) (*models.Comment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	card, board, err := s.editableCard(ctx, actor, cardID)
	if err != nil {
		return nil, err
	}
	if !board.CommentsEnabled {
		return nil, ErrCommentsOff
	}
	author, err := s.actingAs(ctx, actor, req.AuthorID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{
		ID:        uuid.NewString(),
		CardID:    card.ID,
		Content:   strings.TrimSpace(req.Content),
		CreatedAt: s.now(),
	}
	if req.IsAnonymous {
		comment.AuthorName = models.AnonymousAuthor
	} else {
		comment.AuthorID = author.ID
		comment.AuthorName = author.DisplayName()
	}

	if err := s.Store.AddComment(ctx, comment); err != nil {
		return nil, storeError(err)
	}
	return comment, nil
}

// DeleteComment removes a comment from a card
func (s *Service) DeleteComment(ctx context.Context, actor *models.User, cardID, commentID string) error {
	if _, _, err := s.editableCard(ctx, actor, cardID); err != nil {
		return err
	}
	return storeError(s.Store.DeleteComment(ctx, cardID, commentID))
}
