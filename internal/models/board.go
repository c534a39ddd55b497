package models

import (
	"time"
)

// DefaultMaxVotes is the per-user vote allowance of a new board
const DefaultMaxVotes = 5

// BoardOptions are the facilitator controls of a board
type BoardOptions struct {
	VotingDisabled   bool `json:"voting_disabled"`
	VotesHidden      bool `json:"votes_hidden"`
	CardsBlurred     bool `json:"cards_blurred"`
	GifsEnabled      bool `json:"gifs_enabled"`
	ReactionsEnabled bool `json:"reactions_enabled"`
	CommentsEnabled  bool `json:"comments_enabled"`
	MaxVotes         int  `gorm:"not null" json:"max_votes"`
}

// DefaultBoardOptions returns the options of a board created without explicit settings
func DefaultBoardOptions() BoardOptions {
	return BoardOptions{
		GifsEnabled:      true,
		ReactionsEnabled: true,
		CommentsEnabled:  true,
		MaxVotes:         DefaultMaxVotes,
	}
}

// Board is a single retrospective session
type Board struct {
	ID             string `gorm:"primaryKey;size:36" json:"id"`
	Title          string `gorm:"size:255;not null" json:"title"`
	TeamID         string `gorm:"size:64;index" json:"team_id"`
	CreatorID      string `gorm:"size:36;index" json:"creator_id"`
	BoardOptions   `gorm:"embedded"`
	AllowedUserIDs StringList `json:"allowed_user_ids"`
	IsArchived     bool       `json:"is_archived"`
	IsCompleted    bool       `json:"is_completed"`
	ColumnColors   StringList `json:"column_colors"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName overrides the table name for Board
func (Board) TableName() string {
	return "boards"
}

// Editable reports whether user may mutate the board.
// Admins can always edit; a completed board is read-only for everybody else.
func (b *Board) Editable(user *User) bool {
	if user.IsAdmin() {
		return true
	}
	return !b.IsCompleted
}

// IsMember reports whether userID created the board or was invited to it
func (b *Board) IsMember(userID string) bool {
	return b.CreatorID == userID || b.AllowedUserIDs.Contains(userID)
}

// Column is an ordered lane of cards within a board
type Column struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	BoardID    string    `gorm:"size:36;not null;index:idx_columns_board_order" json:"board_id"`
	Title      string    `gorm:"size:255;not null" json:"title"`
	Color      string    `gorm:"size:32" json:"color"`
	OrderIndex int       `gorm:"not null;index:idx_columns_board_order" json:"order_index"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName overrides the table name for Column
func (Column) TableName() string {
	return "columns"
}

// DefaultColumns are seeded into every new board
var DefaultColumns = []Column{
	{Title: "Start", Color: "#22c55e"},
	{Title: "Stop", Color: "#ef4444"},
	{Title: "Continue", Color: "#3b82f6"},
}

// Snapshot is the full database content used by the export
type Snapshot struct {
	Users     []User          `json:"users"`
	Boards    []Board         `json:"boards"`
	Columns   []Column        `json:"columns"`
	Cards     []Card          `json:"cards"`
	Comments  []Comment       `json:"comments"`
	Reactions []ReactionEvent `json:"reactions"`
}
