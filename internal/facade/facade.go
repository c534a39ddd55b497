// Package facade gives clients one DataService whether the board lives in
// this process or behind the HTTP API.
package facade

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/localnerve/retroboard/internal/models"
	"github.com/localnerve/retroboard/internal/services"
	"github.com/localnerve/retroboard/internal/types"
)

// Modes accepted by RETRO_DATA_SERVICE
const (
	ModeRemote = "remote"
	ModeLocal  = "local"
)

// DataService is every board operation a client can perform. Calls act as the
// user whose token was last set by SignIn, SignUp or UseToken.
// Single-entity reads return nil and list reads an empty slice when nothing is found.
type DataService interface {
	SignIn(ctx context.Context, email string) (*services.Session, error)
	SignUp(ctx context.Context, email, name string) (*services.Session, error)
	GetCurrentUser(ctx context.Context) (*models.User, error)
	SignOut(ctx context.Context, userID string) error
	UseToken(token string)

	ListBoards(ctx context.Context, teamID string) ([]models.Board, error)
	GetBoard(ctx context.Context, id string) (*models.Board, error)
	CreateBoard(ctx context.Context, req types.CreateBoardRequest) (*models.Board, error)
	UpdateBoard(ctx context.Context, id string, cmd types.BoardCommand) (*models.Board, error)
	DeleteBoard(ctx context.Context, id string) error
	CloneBoard(ctx context.Context, id string, req types.CloneBoardRequest) (*models.Board, error)

	ListColumns(ctx context.Context, boardID string) ([]models.Column, error)
	CreateColumn(ctx context.Context, req types.CreateColumnRequest) (*models.Column, error)
	UpdateColumn(ctx context.Context, id string, cmd types.ColumnCommand) (*models.Column, error)
	DeleteColumn(ctx context.Context, id string) error

	ListCards(ctx context.Context, columnID string) ([]models.Card, error)
	CreateCard(ctx context.Context, req types.CreateCardRequest) (*models.Card, error)
	UpdateCard(ctx context.Context, id string, cmd types.CardCommand) (*models.Card, error)
	DeleteCard(ctx context.Context, id string) error
	ToggleVote(ctx context.Context, cardID, userID string) (*services.VoteResult, error)
	AddComment(ctx context.Context, cardID string, req types.CommentRequest) (*models.Comment, error)
	DeleteComment(ctx context.Context, cardID, commentID string) error

	PublishReaction(ctx context.Context, req types.ReactionRequest) (*models.ReactionEvent, error)
	ReactionsSince(ctx context.Context, boardID string, since int64) ([]models.ReactionEvent, error)
	// SubscribeReactions pushes the board's reactions until ctx is done.
	// The channel is closed when the subscription ends.
	SubscribeReactions(ctx context.Context, boardID string) (<-chan models.ReactionEvent, error)

	ListUsers(ctx context.Context) ([]models.User, error)
	CreateUser(ctx context.Context, req types.UserRequest) (*models.User, error)
	UpdateUser(ctx context.Context, id string, req types.UserRequest) (*models.User, error)
	DeleteUser(ctx context.Context, id string) error
	Export(ctx context.Context) (*models.Snapshot, error)
}

// Settings select and configure the DataService
type Settings struct {
	Mode     string
	APIURL   string
	DataFile string
	Timeout  time.Duration
}

// SettingsFromEnv reads RETRO_DATA_SERVICE, RETRO_API_URL and RETRO_DATA_FILE
func SettingsFromEnv() Settings {
	s := Settings{
		Mode:     os.Getenv("RETRO_DATA_SERVICE"),
		APIURL:   os.Getenv("RETRO_API_URL"),
		DataFile: os.Getenv("RETRO_DATA_FILE"),
		Timeout:  10 * time.Second,
	}
	if s.Mode == "" {
		s.Mode = ModeRemote
	}
	if s.APIURL == "" {
		s.APIURL = "http://localhost:3000"
	}
	if s.DataFile == "" {
		s.DataFile = "retroboard.json"
	}
	return s
}

// New constructs the single DataService selected by s.Mode.
// The returned close func releases the local store, if any.
func New(s Settings) (DataService, func() error, error) {
	switch s.Mode {
	case ModeRemote:
		return NewRemote(s.APIURL, s.Timeout), func() error { return nil }, nil
	case ModeLocal:
		local, err := OpenLocal(s.DataFile)
		if err != nil {
			return nil, nil, err
		}
		return local, local.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown data service %q, want %s or %s", s.Mode, ModeRemote, ModeLocal)
}
