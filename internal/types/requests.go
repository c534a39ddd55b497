package types

import (
	"net/mail"
	"strings"
)

// AuthRequest is the body of POST /api/auth/login and /api/auth/signup
type AuthRequest struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// NormalizedEmail returns the trimmed, lower cased email or an INVALID_REQUEST error
func (r *AuthRequest) NormalizedEmail() (string, error) {
	return NormalizeEmail(r.Email)
}

// NormalizeEmail trims and lower cases email after checking its syntax
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", BadRequest("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", BadRequest("invalid email %q", email)
	}
	return email, nil
}

// LogoutRequest is the body of POST /api/auth/logout
type LogoutRequest struct {
	UserID string `json:"userId"`
}

// ColumnSpec describes a column seeded into a new board
type ColumnSpec struct {
	Title string `json:"title"`
	Color string `json:"color,omitempty"`
}

// BoardOptionsRequest carries the optional settings of a new board
type BoardOptionsRequest struct {
	BoardPatch
	Columns        []ColumnSpec     `json:"columns,omitempty"`
	AllowedUserIDs FlexList[string] `json:"allowedUserIds,omitempty"`
}

// CreateBoardRequest is the body of POST /api/boards
type CreateBoardRequest struct {
	Title     string              `json:"title"`
	TeamID    string              `json:"teamId"`
	CreatorID string              `json:"creatorId,omitempty"`
	Options   BoardOptionsRequest `json:"options"`
}

// Validate checks the required fields
func (r *CreateBoardRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return BadRequest("title is required")
	}
	if r.Options.MaxVotes != nil && *r.Options.MaxVotes < 0 {
		return BadRequest("maxVotes must not be negative")
	}
	for _, c := range r.Options.Columns {
		if strings.TrimSpace(c.Title) == "" {
			return BadRequest("column title is required")
		}
	}
	return nil
}

// CloneBoardRequest is the body of POST /api/boards/:id/clone
type CloneBoardRequest struct {
	Title     string `json:"title,omitempty"`
	CreatorID string `json:"creatorId,omitempty"`
}

// CreateColumnRequest is the body of POST /api/columns
type CreateColumnRequest struct {
	BoardID string `json:"boardId"`
	Title   string `json:"title"`
	Color   string `json:"color,omitempty"`
}

// Validate checks the required fields
func (r *CreateColumnRequest) Validate() error {
	if r.BoardID == "" {
		return BadRequest("boardId is required")
	}
	if strings.TrimSpace(r.Title) == "" {
		return BadRequest("title is required")
	}
	return nil
}

// CardOptions are the optional settings of a new card
type CardOptions struct {
	IsAnonymous bool   `json:"isAnonymous,omitempty"`
	Color       string `json:"color,omitempty"`
}

// CreateCardRequest is the body of POST /api/cards
type CreateCardRequest struct {
	ColumnID string      `json:"columnId"`
	Content  string      `json:"content"`
	AuthorID string      `json:"authorId,omitempty"`
	Options  CardOptions `json:"options"`
}

// Validate checks the required fields
func (r *CreateCardRequest) Validate() error {
	if r.ColumnID == "" {
		return BadRequest("columnId is required")
	}
	if strings.TrimSpace(r.Content) == "" {
		return BadRequest("content is required")
	}
	return nil
}

// VoteRequest is the body of POST /api/cards/:id/vote
type VoteRequest struct {
	UserID string `json:"userId"`
}

// CommentRequest is the body of POST /api/cards/:id/comments
type CommentRequest struct {
	Content     string `json:"content"`
	AuthorID    string `json:"authorId,omitempty"`
	IsAnonymous bool   `json:"isAnonymous,omitempty"`
}

// Validate checks the required fields
func (r *CommentRequest) Validate() error {
	if strings.TrimSpace(r.Content) == "" {
		return BadRequest("content is required")
	}
	return nil
}

// ReactionRequest is the body of POST /api/reactions
type ReactionRequest struct {
	BoardID    string `json:"boardId"`
	Emoji      string `json:"emoji,omitempty"`
	GifURL     string `json:"gifUrl,omitempty"`
	UserID     string `json:"userId,omitempty"`
	ReactionID string `json:"reactionId,omitempty"`
}

// Validate checks the required fields
func (r *ReactionRequest) Validate() error {
	if r.BoardID == "" {
		return BadRequest("boardId is required")
	}
	if r.Emoji == "" && r.GifURL == "" {
		return BadRequest("emoji or gifUrl is required")
	}
	return nil
}

// UserRequest is the body of POST /api/users and PUT /api/users/:id.
// On update nil fields are left untouched.
type UserRequest struct {
	Email     *string `json:"email,omitempty"`
	Name      *string `json:"name,omitempty"`
	Role      *string `json:"role,omitempty"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
}

// Validate checks role values
func (r *UserRequest) Validate() error {
	if r.Role != nil && *r.Role != "admin" && *r.Role != "user" {
		return BadRequest("role must be admin or user")
	}
	return nil
}
