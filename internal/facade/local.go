package facade

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/localnerve/retroboard/internal/models"
	"github.com/localnerve/retroboard/internal/reactions"
	"github.com/localnerve/retroboard/internal/services"
	"github.com/localnerve/retroboard/internal/store"
	"github.com/localnerve/retroboard/internal/types"
)

// Local runs the board services in process
type Local struct {
	svc *services.Service

	mu    sync.RWMutex
	token string
}

// NewLocal wraps an existing service
func NewLocal(svc *services.Service) *Local {
	return &Local{svc: svc}
}

// OpenLocal serves boards from a JSON data file. Session tokens are signed with
// a key kept next to the file so they survive restarts.
func OpenLocal(path string) (*Local, error) {
	st, err := store.OpenFileStore(path)
	if err != nil {
		return nil, err
	}
	secret, err := loadKey(path + ".key")
	if err != nil {
		return nil, err
	}
	hub := reactions.NewHub(time.Minute, 256)
	return NewLocal(services.New(st, hub, services.NewTokenIssuer(secret, 30*24*time.Hour))), nil
}

func loadKey(path string) ([]byte, error) {
	key, err := os.ReadFile(path)
	if err == nil && len(key) > 0 {
		return key, nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read key: %w", err)
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	key = []byte(hex.EncodeToString(b))
	if err := os.WriteFile(path, key, 0o600); err != nil {
		return nil, fmt.Errorf("write key: %w", err)
	}
	return key, nil
}

// Close flushes the store
func (l *Local) Close() error {
	return l.svc.Store.Close()
}

// UseToken sets the session token later calls act with
func (l *Local) UseToken(token string) {
	l.mu.Lock()
	l.token = token
	l.mu.Unlock()
}

func (l *Local) actor(ctx context.Context) (*models.User, error) {
	l.mu.RLock()
	token := l.token
	l.mu.RUnlock()
	return l.svc.Authenticate(ctx, token)
}

func (l *Local) admin(ctx context.Context) error {
	user, err := l.actor(ctx)
	if err != nil {
		return err
	}
	if !user.IsAdmin() {
		return services.ErrAdminRequired
	}
	return nil
}

func (l *Local) session(s *services.Session, err error) (*services.Session, error) {
	if err != nil {
		return nil, err
	}
	l.UseToken(s.Token)
	return s, nil
}

// SignIn starts a session and keeps its token
func (l *Local) SignIn(ctx context.Context, email string) (*services.Session, error) {
	return l.session(l.svc.SignIn(ctx, email))
}

// SignUp creates the user and keeps the session token
func (l *Local) SignUp(ctx context.Context, email, name string) (*services.Session, error) {
	return l.session(l.svc.SignUp(ctx, email, name))
}

// GetCurrentUser resolves the kept token, nil when signed out
func (l *Local) GetCurrentUser(ctx context.Context) (*models.User, error) {
	l.mu.RLock()
	token := l.token
	l.mu.RUnlock()
	return l.svc.CurrentUser(ctx, token)
}

// SignOut ends the session of userID, or of the caller when empty
func (l *Local) SignOut(ctx context.Context, userID string) error {
	user, err := l.actor(ctx)
	if err != nil {
		return err
	}
	return l.svc.SignOut(ctx, user, userID)
}

// ListBoards lists the boards of a team
func (l *Local) ListBoards(ctx context.Context, teamID string) ([]models.Board, error) {
	if _, err := l.actor(ctx); err != nil {
		return nil, err
	}
	return nonNil(l.svc.ListBoards(ctx, teamID))
}

// GetBoard returns a board, nil when it does not exist
func (l *Local) GetBoard(ctx context.Context, id string) (*models.Board, error) {
	if _, err := l.actor(ctx); err != nil {
		return nil, err
	}
	return l.svc.GetBoard(ctx, id)
}

// CreateBoard creates a board owned by the caller
func (l *Local) CreateBoard(ctx context.Context, req types.CreateBoardRequest) (*models.Board, error) {
	user, err := l.actor(ctx)
	if err != nil {
		return nil, err
	}
	return l.svc.CreateBoard(ctx, user, req)
}

// UpdateBoard applies a board command
func (l *Local) UpdateBoard(ctx context.Context, id string, cmd types.BoardCommand) (*models.Board, error) {
	user, err := l.actor(ctx)
	if err != nil {
		return nil, err
	}
	return l.svc.UpdateBoard(ctx, user, id, cmd)
}

// DeleteBoard removes a board
func (l *Local) DeleteBoard(ctx context.Context, id string) error {
	user, err := l.actor(ctx)
	if err != nil {
		return err
	}
	return l.svc.DeleteBoard(ctx, user, id)
}

// CloneBoard copies a board
func (l *Local) CloneBoard(ctx context.Context, id string, req types.CloneBoardRequest) (*models.Board, error) {
	user, err := l.actor(ctx)
	if err != nil {
		return nil, err
	}
	return l.svc.CloneBoard(ctx, user, id, req)
}

// ListColumns lists a board's columns
func (l *Local) ListColumns(ctx context.Context, boardID string) ([]models.Column, error) {
	if _, err := l.actor(ctx); err != nil {
		return nil, err
	}
	return nonNil(l.svc.ListColumns(ctx, boardID))
}

// CreateColumn appends a column
func (l *Local) CreateColumn(ctx context.Context, req types.CreateColumnRequest) (*models.Column, error) {
	user, err := l.actor(ctx)
	if err != nil {
		return nil, err
	}
	return l.svc.CreateColumn(ctx, user, req)
}

// UpdateColumn applies a column command
func (l *Local) UpdateColumn(ctx context.Context, id string, cmd types.ColumnCommand) (*models.Column, error) {
	user, err := l.actor(ctx)
	if err != nil {
		return nil, err
	}
	return l.svc.UpdateColumn(ctx, user, id, cmd)
}

// DeleteColumn removes a column
func (l *Local) DeleteColumn(ctx context.Context, id string) error {
	user, err := l.actor(ctx)
	if err != nil {
		return err
	}
	return l.svc.DeleteColumn(ctx, user, id)
}

// ListCards lists a column's cards
func (l *Local) ListCards(ctx context.Context, columnID string) ([]models.Card, error) {
	if _, err := l.actor(ctx); err != nil {
		return nil, err
	}
	return nonNil(l.svc.ListCards(ctx, columnID))
}

// CreateCard adds a card
func (l *Local) CreateCard(ctx context.Context, req types.CreateCardRequest) (*models.Card, error) {
	user, err := l.actor(ctx)
	if err != nil {
		return nil, err
	}
	return l.svc.CreateCard(ctx, user, req)
}

// UpdateCard applies a card command
func (l *Local) UpdateCard(ctx context.Context, id string, cmd types.CardCommand) (*models.Card, error) {
	user, err := l.actor(ctx)
	if err != nil {
		return nil, err
	}
	return l.svc.UpdateCard(ctx, user, id, cmd)
}

// DeleteCard removes a card
func (l *Local) DeleteCard(ctx context.Context, id string) error {
	user, err := l.actor(ctx)
	if err != nil {
		return err
	}
	return l.svc.DeleteCard(ctx, user, id)
}

// ToggleVote flips a vote
func (l *Local) ToggleVote(ctx context.Context, cardID, userID string) (*services.VoteResult, error) {
	user, err := l.actor(ctx)
	if err != nil {
		return nil, err
	}
	return l.svc.ToggleVote(ctx, user, cardID, userID)
}

// AddComment comments on a card
func (l *Local) AddComment(ctx context.Context, cardID string, req types.CommentRequest) (*models.Comment, error) {
	user, err := l.actor(ctx)
	if err != nil {
		return nil, err
	}
	return l.svc.AddComment(ctx, user, cardID, req)
}

// DeleteComment removes a comment
func (l *Local) DeleteComment(ctx context.Context, cardID, commentID string) error {
	user, err := l.actor(ctx)
	if err != nil {
		return err
	}
	return l.svc.DeleteComment(ctx, user, cardID, commentID)
}

// PublishReaction broadcasts a reaction
func (l *Local) PublishReaction(ctx context.Context, req types.ReactionRequest) (*models.ReactionEvent, error) {
	user, err := l.actor(ctx)
	if err != nil {
		return nil, err
	}
	return l.svc.PublishReaction(ctx, user, req)
}

// ReactionsSince returns retained reactions newer than since
func (l *Local) ReactionsSince(ctx context.Context, boardID string, since int64) ([]models.ReactionEvent, error) {
	if _, err := l.actor(ctx); err != nil {
		return nil, err
	}
	return nonNil(l.svc.ReactionsSince(ctx, boardID, since))
}

// SubscribeReactions feeds the board's reactions until ctx ends
func (l *Local) SubscribeReactions(ctx context.Context, boardID string) (<-chan models.ReactionEvent, error) {
	if _, err := l.actor(ctx); err != nil {
		return nil, err
	}
	events, cancel, err := l.svc.SubscribeReactions(ctx, boardID)
	if err != nil {
		return nil, err
	}
	out := make(chan models.ReactionEvent)
	go func() {
		defer close(out)
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// ListUsers lists every user (admin)
func (l *Local) ListUsers(ctx context.Context) ([]models.User, error) {
	if err := l.admin(ctx); err != nil {
		return nil, err
	}
	return nonNil(l.svc.ListUsers(ctx))
}

// CreateUser adds a user (admin)
func (l *Local) CreateUser(ctx context.Context, req types.UserRequest) (*models.User, error) {
	if err := l.admin(ctx); err != nil {
		return nil, err
	}
	return l.svc.CreateUser(ctx, req)
}

// UpdateUser edits a user (admin)
func (l *Local) UpdateUser(ctx context.Context, id string, req types.UserRequest) (*models.User, error) {
	if err := l.admin(ctx); err != nil {
		return nil, err
	}
	return l.svc.UpdateUser(ctx, id, req)
}

// DeleteUser removes a user (admin)
func (l *Local) DeleteUser(ctx context.Context, id string) error {
	if err := l.admin(ctx); err != nil {
		return err
	}
	return l.svc.DeleteUser(ctx, id)
}

// Export returns the full snapshot (admin)
func (l *Local) Export(ctx context.Context) (*models.Snapshot, error) {
	if err := l.admin(ctx); err != nil {
		return nil, err
	}
	return l.svc.Snapshot(ctx)
}

// nonNil turns a nil list into an empty one
func nonNil[T any](list []T, err error) ([]T, error) {
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []T{}
	}
	return list, nil
}
