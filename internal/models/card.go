package models

import (
	"time"
)

// AnonymousAuthor is the author name recorded for anonymous cards and comments
const AnonymousAuthor = "Anonymous"

// Card is a sticky note inside a column.
// Votes always equals len(VotedUserIDs); use ToggleVote to change either.
type Card struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	ColumnID     string     `gorm:"size:36;not null;index:idx_cards_column_position" json:"column_id"`
	BoardID      string     `gorm:"size:36;not null;index" json:"board_id"`
	Content      string     `gorm:"type:text" json:"content"`
	AuthorID     string     `gorm:"size:36;index" json:"author_id"`
	AuthorName   string     `gorm:"size:255" json:"author_name"`
	AuthorAvatar string     `gorm:"size:1024" json:"author_avatar,omitempty"`
	IsAnonymous  bool       `json:"is_anonymous"`
	Votes        int        `gorm:"not null" json:"votes"`
	VotedUserIDs StringList `json:"voted_user_ids"`
	Color        string     `gorm:"size:32" json:"color,omitempty"`
	Position     int        `gorm:"not null;index:idx_cards_column_position" json:"position"`
	Version      uint64     `gorm:"not null" json:"version"`
	Comments     []Comment  `gorm:"foreignKey:CardID;constraint:OnDelete:CASCADE" json:"comments"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName overrides the table name for Card
func (Card) TableName() string {
	return "cards"
}

// HasVoted reports whether userID currently votes for the card
func (c *Card) HasVoted(userID string) bool {
	return c.VotedUserIDs.Contains(userID)
}

// ToggleVote flips userID's membership in the voter set and recomputes Votes.
// It returns true when the user now votes for the card.
func (c *Card) ToggleVote(userID string) bool {
	voted := !c.HasVoted(userID)
	if voted {
		c.VotedUserIDs = c.VotedUserIDs.With(userID)
	} else {
		c.VotedUserIDs = c.VotedUserIDs.Without(userID)
	}
	c.Votes = len(c.VotedUserIDs)
	return voted
}

// ResetVotes clears the voter set
func (c *Card) ResetVotes() {
	c.VotedUserIDs = StringList{}
	c.Votes = 0
}

// CountUserVotes returns how many of cards userID votes for
func CountUserVotes(cards []Card, userID string) int {
	n := 0
	for i := range cards {
		if cards[i].HasVoted(userID) {
			n++
		}
	}
	return n
}

// Comment is a note attached to a card
type Comment struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	CardID     string    `gorm:"size:36;not null;index" json:"card_id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	AuthorID   string    `gorm:"size:36" json:"author_id,omitempty"`
	AuthorName string    `gorm:"size:255" json:"author_name"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName overrides the table name for Comment
func (Comment) TableName() string {
	return "comments"
}

// ReactionEvent is an ephemeral emoji or GIF broadcast on a board.
// Timestamp is in Unix milliseconds.
type ReactionEvent struct {
	ID        string `json:"id"`
	BoardID   string `json:"board_id"`
	Emoji     string `json:"emoji,omitempty"`
	GifURL    string `json:"gif_url,omitempty"`
	UserID    string `json:"user_id"`
	Timestamp int64  `json:"timestamp"`
}
