// controller.go
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

// Package boardview keeps a client side copy of one board in sync with a
// DataService while the user votes, drags, edits and filters cards.
//
// Mutations that change what the user sees before the server answers carry an
// inverse that is applied when the confirming call fails.
package boardview

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"

	"github.com/localnerve/retroboard/internal/facade"
	"github.com/localnerve/retroboard/internal/models"
	"github.com/localnerve/retroboard/internal/services"
	"github.com/localnerve/retroboard/internal/types"
)

var (
	// ErrBoardNotFound is returned by Load when the board does not exist
	ErrBoardNotFound = errors.New("board not found")
	// ErrNoBoard is returned by mutations before a board was loaded
	ErrNoBoard = errors.New("no board loaded")
	// ErrCardNotFound is returned for a card id that is not on the loaded board
	ErrCardNotFound = errors.New("card not found on this board")
)

// Notifier shows a failure to the user
type Notifier func(err error)

// change is an applied optimistic mutation with its inverse and the call that confirms it
type change struct {
	undo    func()
	confirm func(ctx context.Context) error
}

type placement struct {
	columnID string
	position int
}

type dragStart struct {
	cardID   string
	columnID string
	position int
}

// Controller holds {board, columns, cards} for one board
type Controller struct {
	ds     facade.DataService
	state  *AppState
	notify Notifier

	mu      sync.Mutex
	board   *models.Board
	columns []models.Column
	cards   []models.Card
	users   map[string]models.User
	drag    *dragStart
}

// NewController builds a controller. A nil notify logs failures.
func NewController(ds facade.DataService, state *AppState, notify Notifier) *Controller {
	if notify == nil {
		notify = func(err error) { log.Printf("Board view: %v", err) }
	}
	return &Controller{ds: ds, state: state, notify: notify, users: map[string]models.User{}}
}

// Load fetches the board, its columns, the cards of each column in turn and
// the user directory.
func (c *Controller) Load(ctx context.Context, boardID string) error {
	board, err := c.ds.GetBoard(ctx, boardID)
	if err != nil {
		return err
	}
	if board == nil {
		return ErrBoardNotFound
	}
	columns, err := c.ds.ListColumns(ctx, boardID)
	if err != nil {
		return err
	}
	var cards []models.Card
	for _, column := range columns {
		list, err := c.ds.ListCards(ctx, column.ID)
		if err != nil {
			return err
		}
		cards = append(cards, list...)
	}

	users := map[string]models.User{}
	list, err := c.ds.ListUsers(ctx)
	switch {
	case err == nil:
		for _, u := range list {
			users[u.ID] = u
		}
	case errors.Is(err, services.ErrAdminRequired):
		// non admins resolve names from the author snapshots on the cards
		for _, card := range cards {
			if card.AuthorID != "" {
				users[card.AuthorID] = models.User{ID: card.AuthorID, Name: card.AuthorName, AvatarURL: card.AuthorAvatar}
			}
		}
	default:
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.board = board
	c.columns = columns
	c.cards = cards
	c.users = users
	c.drag = nil
	c.state.SetFlags(board.BoardOptions)
	return nil
}

// Board returns a copy of the loaded board
func (c *Controller) Board() (models.Board, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.board == nil {
		return models.Board{}, false
	}
	return *c.board, true
}

// Columns returns the columns left to right
func (c *Controller) Columns() []models.Column {
	c.mu.Lock()
	defer c.mu.Unlock()
	columns := append([]models.Column(nil), c.columns...)
	sort.SliceStable(columns, func(i, j int) bool { return columns[i].OrderIndex < columns[j].OrderIndex })
	return columns
}

// Card returns a copy of one card
func (c *Controller) Card(id string) (models.Card, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.cardIndex(id); i >= 0 {
		return c.cards[i], true
	}
	return models.Card{}, false
}

// UserName resolves a user id from the directory fetched by Load
func (c *Controller) UserName(id string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if u, ok := c.users[id]; ok {
		return u.DisplayName()
	}
	return ""
}

// CanEdit reports whether the session user may mutate the board.
// Admins always can; nobody else can once the board is completed.
func (c *Controller) CanEdit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canEdit()
}

func (c *Controller) canEdit() bool {
	if c.board == nil {
		return false
	}
	return c.state.IsAdmin() || !c.board.IsCompleted
}

func (c *Controller) checkEditable() error {
	if c.board == nil {
		return ErrNoBoard
	}
	if !c.canEdit() {
		return services.ErrBoardLocked
	}
	return nil
}

func (c *Controller) cardIndex(id string) int {
	for i := range c.cards {
		if c.cards[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Controller) columnIndex(id string) int {
	for i := range c.columns {
		if c.columns[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Controller) fail(err error) error {
	c.notify(err)
	return err
}

// run applies a change prepared under the lock, confirms it without the lock
// and undoes it when the confirmation fails
func (c *Controller) run(ctx context.Context, prepare func() (*change, error)) error {
	c.mu.Lock()
	ch, err := prepare()
	c.mu.Unlock()
	if err != nil {
		return c.fail(err)
	}
	if ch == nil {
		return nil
	}
	if err := ch.confirm(ctx); err != nil {
		c.mu.Lock()
		ch.undo()
		c.mu.Unlock()
		return c.fail(err)
	}
	return nil
}

// mergeCard replaces the local copy with the server's, keeping local
// comments when the server sent none
func (c *Controller) mergeCard(card *models.Card) {
	if card == nil {
		return
	}
	i := c.cardIndex(card.ID)
	if i < 0 {
		c.cards = append(c.cards, *card)
		return
	}
	if card.Comments == nil {
		card.Comments = c.cards[i].Comments
	}
	c.cards[i] = *card
}

// ToggleVote flips the session user's vote on a card. A new vote past the
// board's max_votes is refused before any call is made.
func (c *Controller) ToggleVote(ctx context.Context, cardID string) error {
	userID := c.state.UserID()
	return c.run(ctx, func() (*change, error) {
		if err := c.checkEditable(); err != nil {
			return nil, err
		}
		if c.board.VotingDisabled {
			return nil, services.ErrVotingDisabled
		}
		i := c.cardIndex(cardID)
		if i < 0 {
			return nil, ErrCardNotFound
		}
		if !c.cards[i].HasVoted(userID) && c.board.MaxVotes > 0 &&
			models.CountUserVotes(c.cards, userID) >= c.board.MaxVotes {
			return nil, services.ErrVoteLimit
		}
		c.cards[i].ToggleVote(userID)

		return &change{
			undo: func() {
				if i := c.cardIndex(cardID); i >= 0 {
					c.cards[i].ToggleVote(userID)
				}
			},
			confirm: func(ctx context.Context) error {
				res, err := c.ds.ToggleVote(ctx, cardID, "")
				if err != nil {
					return err
				}
				c.mu.Lock()
				defer c.mu.Unlock()
				c.mergeCard(res.Card)
				return nil
			},
		}, nil
	})
}

// DragOver shows a dragged card under columnID. Nothing is persisted.
func (c *Controller) DragOver(cardID, columnID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.canEdit() || c.columnIndex(columnID) < 0 {
		return false
	}
	i := c.cardIndex(cardID)
	if i < 0 {
		return false
	}
	if c.drag == nil || c.drag.cardID != cardID {
		c.drag = &dragStart{cardID: cardID, columnID: c.cards[i].ColumnID, position: c.cards[i].Position}
	}
	c.cards[i].ColumnID = columnID
	return true
}

// DragEnd drops a card at index within columnID and persists the move with
// one call, unless the card ends where the drag started.
func (c *Controller) DragEnd(ctx context.Context, cardID, columnID string, index int) error {
	return c.run(ctx, func() (*change, error) {
		start := c.drag
		c.drag = nil
		i := c.cardIndex(cardID)
		if i < 0 {
			return nil, ErrCardNotFound
		}
		if start == nil || start.cardID != cardID {
			start = &dragStart{cardID: cardID, columnID: c.cards[i].ColumnID, position: c.cards[i].Position}
		}
		c.cards[i].ColumnID = start.columnID

		if err := c.checkEditable(); err != nil {
			return nil, err
		}
		if c.columnIndex(columnID) < 0 {
			return nil, services.ErrNotFound
		}
		if index < 0 {
			index = 0
		}
		if start.columnID == columnID && start.position == index {
			return nil, nil
		}

		before := c.placements()
		c.placeCard(cardID, columnID, index)

		return &change{
			undo: func() { c.restore(before) },
			confirm: func(ctx context.Context) error {
				card, err := c.ds.UpdateCard(ctx, cardID, types.CardCommand{
					Op:       types.CardOpMove,
					ColumnID: columnID,
					Position: types.FlexInt64(index),
				})
				if err != nil {
					return err
				}
				c.mu.Lock()
				defer c.mu.Unlock()
				c.mergeCard(card)
				return nil
			},
		}, nil
	})
}

// columnOrder returns the ids of a column's cards top to bottom, without skip
func (c *Controller) columnOrder(columnID, skip string) []string {
	var cards []models.Card
	for _, card := range c.cards {
		if card.ColumnID == columnID && card.ID != skip {
			cards = append(cards, card)
		}
	}
	sort.SliceStable(cards, func(i, j int) bool { return cards[i].Position < cards[j].Position })
	ids := make([]string, len(cards))
	for i, card := range cards {
		ids[i] = card.ID
	}
	return ids
}

func (c *Controller) renumber(ids []string) {
	for pos, id := range ids {
		if i := c.cardIndex(id); i >= 0 {
			c.cards[i].Position = pos
		}
	}
}

// placeCard moves a card to index within columnID and renumbers both columns densely
func (c *Controller) placeCard(cardID, columnID string, index int) {
	i := c.cardIndex(cardID)
	from := c.cards[i].ColumnID

	ids := c.columnOrder(columnID, cardID)
	if index > len(ids) {
		index = len(ids)
	}
	ids = append(ids[:index], append([]string{cardID}, ids[index:]...)...)
	c.cards[i].ColumnID = columnID
	c.renumber(ids)
	if from != columnID {
		c.renumber(c.columnOrder(from, ""))
	}
}

func (c *Controller) placements() map[string]placement {
	out := make(map[string]placement, len(c.cards))
	for _, card := range c.cards {
		out[card.ID] = placement{columnID: card.ColumnID, position: card.Position}
	}
	return out
}

func (c *Controller) restore(before map[string]placement) {
	for i := range c.cards {
		if p, ok := before[c.cards[i].ID]; ok {
			c.cards[i].ColumnID = p.columnID
			c.cards[i].Position = p.position
		}
	}
}
