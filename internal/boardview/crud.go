package boardview

import (
	"context"
	"strings"

	"github.com/localnerve/retroboard/internal/models"
	"github.com/localnerve/retroboard/internal/types"
)

// editable runs the lock check for handlers that call the server first
func (c *Controller) editable() error {
	c.mu.Lock()
	err := c.checkEditable()
	c.mu.Unlock()
	if err != nil {
		return c.fail(err)
	}
	return nil
}

func (c *Controller) boardID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.board == nil {
		return ""
	}
	return c.board.ID
}

// AddCard creates a card at the bottom of a column
func (c *Controller) AddCard(ctx context.Context, columnID, content string, opts types.CardOptions) (*models.Card, error) {
	if err := c.editable(); err != nil {
		return nil, err
	}
	card, err := c.ds.CreateCard(ctx, types.CreateCardRequest{ColumnID: columnID, Content: content, Options: opts})
	if err != nil {
		return nil, c.fail(err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mergeCard(card)
	return card, nil
}

// EditCard replaces a card's content, showing it before the server confirms
func (c *Controller) EditCard(ctx context.Context, cardID, content string) error {
	content = strings.TrimSpace(content)
	return c.run(ctx, func() (*change, error) {
		if err := c.checkEditable(); err != nil {
			return nil, err
		}
		i := c.cardIndex(cardID)
		if i < 0 {
			return nil, ErrCardNotFound
		}
		previous := c.cards[i].Content
		c.cards[i].Content = content
		return &change{
			undo: func() {
				if i := c.cardIndex(cardID); i >= 0 {
					c.cards[i].Content = previous
				}
			},
			confirm: func(ctx context.Context) error {
				card, err := c.ds.UpdateCard(ctx, cardID, types.CardCommand{Op: types.CardOpEdit, Content: content})
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

// RecolorCard sets or clears a card's color override
func (c *Controller) RecolorCard(ctx context.Context, cardID, color string) error {
	if err := c.editable(); err != nil {
		return err
	}
	card, err := c.ds.UpdateCard(ctx, cardID, types.CardCommand{Op: types.CardOpRecolor, Color: color})
	if err != nil {
		return c.fail(err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mergeCard(card)
	return nil
}

// DeleteCard removes a card
func (c *Controller) DeleteCard(ctx context.Context, cardID string) error {
	if err := c.editable(); err != nil {
		return err
	}
	if err := c.ds.DeleteCard(ctx, cardID); err != nil {
		return c.fail(err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cards = filterCards(c.cards, func(card models.Card) bool { return card.ID != cardID })
	return nil
}

// AddColumn appends a column; an empty color picks one from the palette
func (c *Controller) AddColumn(ctx context.Context, title, color string) (*models.Column, error) {
	if err := c.editable(); err != nil {
		return nil, err
	}
	column, err := c.ds.CreateColumn(ctx, types.CreateColumnRequest{BoardID: c.boardID(), Title: title, Color: color})
	if err != nil {
		return nil, c.fail(err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.spliceColumn(column)
	return column, nil
}

// RenameColumn changes a column title
func (c *Controller) RenameColumn(ctx context.Context, columnID, title string) error {
	return c.updateColumn(ctx, columnID, types.ColumnCommand{Op: types.ColumnOpRename, Title: title})
}

// RecolorColumn changes a column color
func (c *Controller) RecolorColumn(ctx context.Context, columnID, color string) error {
	return c.updateColumn(ctx, columnID, types.ColumnCommand{Op: types.ColumnOpRecolor, Color: color})
}

// MoveColumn moves a column to orderIndex. The server renumbers every column,
// so the columns are fetched again afterwards.
func (c *Controller) MoveColumn(ctx context.Context, columnID string, orderIndex int) error {
	if err := c.updateColumn(ctx, columnID, types.ColumnCommand{Op: types.ColumnOpMove, OrderIndex: types.FlexInt64(orderIndex)}); err != nil {
		return err
	}
	columns, err := c.ds.ListColumns(ctx, c.boardID())
	if err != nil {
		return c.fail(err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.columns = columns
	return nil
}

func (c *Controller) updateColumn(ctx context.Context, columnID string, cmd types.ColumnCommand) error {
	if err := c.editable(); err != nil {
		return err
	}
	column, err := c.ds.UpdateColumn(ctx, columnID, cmd)
	if err != nil {
		return c.fail(err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.spliceColumn(column)
	return nil
}

func (c *Controller) spliceColumn(column *models.Column) {
	if i := c.columnIndex(column.ID); i >= 0 {
		c.columns[i] = *column
		return
	}
	c.columns = append(c.columns, *column)
}

// DeleteColumn removes a column and every card in it
func (c *Controller) DeleteColumn(ctx context.Context, columnID string) error {
	if err := c.editable(); err != nil {
		return err
	}
	if err := c.ds.DeleteColumn(ctx, columnID); err != nil {
		return c.fail(err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	columns := c.columns[:0]
	for _, column := range c.columns {
		if column.ID != columnID {
			columns = append(columns, column)
		}
	}
	c.columns = columns
	c.cards = filterCards(c.cards, func(card models.Card) bool { return card.ColumnID != columnID })
	return nil
}

// AddComment attaches a comment to a card
func (c *Controller) AddComment(ctx context.Context, cardID, content string, anonymous bool) (*models.Comment, error) {
	if err := c.editable(); err != nil {
		return nil, err
	}
	comment, err := c.ds.AddComment(ctx, cardID, types.CommentRequest{Content: content, IsAnonymous: anonymous})
	if err != nil {
		return nil, c.fail(err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.cardIndex(cardID); i >= 0 {
		c.cards[i].Comments = append(c.cards[i].Comments, *comment)
	}
	return comment, nil
}

// DeleteComment removes a comment from a card
func (c *Controller) DeleteComment(ctx context.Context, cardID, commentID string) error {
	if err := c.editable(); err != nil {
		return err
	}
	if err := c.ds.DeleteComment(ctx, cardID, commentID); err != nil {
		return c.fail(err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.cardIndex(cardID); i >= 0 {
		kept := c.cards[i].Comments[:0]
		for _, comment := range c.cards[i].Comments {
			if comment.ID != commentID {
				kept = append(kept, comment)
			}
		}
		c.cards[i].Comments = kept
	}
	return nil
}

// UpdateSettings changes the facilitator controls of the board
func (c *Controller) UpdateSettings(ctx context.Context, patch types.BoardPatch) error {
	return c.boardCommand(ctx, types.BoardCommand{Op: types.BoardOpUpdate, Fields: patch})
}

// SetCompleted locks or reopens the board
func (c *Controller) SetCompleted(ctx context.Context, completed bool) error {
	op := types.BoardOpReopen
	if completed {
		op = types.BoardOpComplete
	}
	return c.boardCommand(ctx, types.BoardCommand{Op: op})
}

func (c *Controller) boardCommand(ctx context.Context, cmd types.BoardCommand) error {
	if err := c.editable(); err != nil {
		return err
	}
	board, err := c.ds.UpdateBoard(ctx, c.boardID(), cmd)
	if err != nil {
		return c.fail(err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.board = board
	c.state.SetFlags(board.BoardOptions)
	return nil
}

func filterCards(cards []models.Card, keep func(models.Card) bool) []models.Card {
	out := cards[:0]
	for _, card := range cards {
		if keep(card) {
			out = append(out, card)
		}
	}
	return out
}
