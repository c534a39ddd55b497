package types

import (
	"strings"
)

// Board command ops
const (
	BoardOpUpdate       = "update"
	BoardOpInvite       = "invite"
	BoardOpRemoveMember = "remove_member"
	BoardOpComplete     = "complete"
	BoardOpReopen       = "reopen"
	BoardOpArchive      = "archive"
	BoardOpUnarchive    = "unarchive"
)

// Column command ops
const (
	ColumnOpRename  = "rename"
	ColumnOpRecolor = "recolor"
	ColumnOpMove    = "move"
)

// Card command ops
const (
	CardOpEdit    = "edit"
	CardOpMove    = "move"
	CardOpRecolor = "recolor"
)

// BoardPatch holds the board fields an update command may change.
// Nil fields are left untouched.
type BoardPatch struct {
	Title            *string    `json:"title,omitempty"`
	TeamID           *string    `json:"teamId,omitempty"`
	VotingDisabled   *bool      `json:"votingDisabled,omitempty"`
	VotesHidden      *bool      `json:"votesHidden,omitempty"`
	CardsBlurred     *bool      `json:"cardsBlurred,omitempty"`
	GifsEnabled      *bool      `json:"gifsEnabled,omitempty"`
	ReactionsEnabled *bool      `json:"reactionsEnabled,omitempty"`
	CommentsEnabled  *bool      `json:"commentsEnabled,omitempty"`
	MaxVotes         *FlexInt64 `json:"maxVotes,omitempty"`
}

// BoardCommand is the body of PUT /api/boards/:id
type BoardCommand struct {
	Op      string           `json:"op"`
	Fields  BoardPatch       `json:"fields"`
	UserIDs FlexList[string] `json:"userIds,omitempty"`
}

// Validate checks that the fields required by Op are present
func (c *BoardCommand) Validate() error {
	switch c.Op {
	case BoardOpUpdate:
		if c.Fields.Title != nil && strings.TrimSpace(*c.Fields.Title) == "" {
			return BadRequest("title must not be empty")
		}
		if c.Fields.MaxVotes != nil && *c.Fields.MaxVotes < 0 {
			return BadRequest("maxVotes must not be negative")
		}
	case BoardOpInvite, BoardOpRemoveMember:
		if len(Unique(c.UserIDs)) == 0 {
			return BadRequest("userIds is required for %s", c.Op)
		}
	case BoardOpComplete, BoardOpReopen, BoardOpArchive, BoardOpUnarchive:
	case "":
		return BadRequest("op is required")
	default:
		return BadRequest("unknown board op %q", c.Op)
	}
	return nil
}

// ColumnCommand is the body of PUT /api/columns/:id
type ColumnCommand struct {
	Op         string    `json:"op"`
	Title      string    `json:"title,omitempty"`
	Color      string    `json:"color,omitempty"`
	OrderIndex FlexInt64 `json:"orderIndex,omitempty"`
}

// Validate checks that the fields required by Op are present
func (c *ColumnCommand) Validate() error {
	switch c.Op {
	case ColumnOpRename:
		if strings.TrimSpace(c.Title) == "" {
			return BadRequest("title is required")
		}
	case ColumnOpRecolor:
		if strings.TrimSpace(c.Color) == "" {
			return BadRequest("color is required")
		}
	case ColumnOpMove:
		if c.OrderIndex < 0 {
			return BadRequest("orderIndex must not be negative")
		}
	case "":
		return BadRequest("op is required")
	default:
		return BadRequest("unknown column op %q", c.Op)
	}
	return nil
}

// CardCommand is the body of PUT /api/cards/:id
type CardCommand struct {
	Op       string    `json:"op"`
	Content  string    `json:"content,omitempty"`
	ColumnID string    `json:"columnId,omitempty"`
	Position FlexInt64 `json:"position,omitempty"`
	Color    string    `json:"color,omitempty"`
}

// Validate checks that the fields required by Op are present
func (c *CardCommand) Validate() error {
	switch c.Op {
	case CardOpEdit:
		if strings.TrimSpace(c.Content) == "" {
			return BadRequest("content is required")
		}
	case CardOpMove:
		if c.ColumnID == "" {
			return BadRequest("columnId is required")
		}
		if c.Position < 0 {
			return BadRequest("position must not be negative")
		}
	case CardOpRecolor:
		// an empty color clears the override
	case "":
		return BadRequest("op is required")
	default:
		return BadRequest("unknown card op %q", c.Op)
	}
	return nil
}
