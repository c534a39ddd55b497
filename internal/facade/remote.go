// remote.go
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

package facade

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/retroboard/internal/models"
	"github.com/localnerve/retroboard/internal/services"
	"github.com/localnerve/retroboard/internal/types"
	"github.com/localnerve/retroboard/internal/utils"
)

// Remote calls the board HTTP API
type Remote struct {
	baseURL string
	timeout time.Duration
	// stream is used for the reaction event stream only
	stream *http.Client

	mu    sync.RWMutex
	token string
}

// NewRemote targets the API served at baseURL
func NewRemote(baseURL string, timeout time.Duration) *Remote {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Remote{
		baseURL: strings.TrimRight(baseURL, "/") + "/api",
		timeout: timeout,
		stream:  &http.Client{},
	}
}

// UseToken sets the bearer token later calls send
func (r *Remote) UseToken(token string) {
	r.mu.Lock()
	r.token = token
	r.mu.Unlock()
}

func (r *Remote) bearer() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.token
}

// call sends one JSON request and decodes the JSON response into out
func (r *Remote) call(ctx context.Context, method, path string, body, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a := fiber.AcquireAgent()
	req := a.Request()
	req.Header.SetMethod(method)
	req.SetRequestURI(r.baseURL + path)
	if token := r.bearer(); token != "" {
		a.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	a.Set("X-Api-Version", "1.0.0")
	if body != nil {
		a.JSON(body)
	}
	timeout := r.timeout
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		timeout = time.Until(deadline)
	}
	a.Timeout(timeout)

	if err := a.Parse(); err != nil {
		fiber.ReleaseAgent(a)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	code, respBody, errs := a.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("%s %s: %w", method, path, errs[0])
	}
	if code >= fiber.StatusBadRequest {
		return decodeError(code, respBody)
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

// decodeError rebuilds the CustomError the server rendered
func decodeError(code int, body []byte) error {
	var env utils.ErrorResponseStruct
	if err := json.Unmarshal(body, &env); err != nil || env.Message == "" {
		return types.NewError(code, types.TypeInternal, "unexpected status %d", code)
	}
	if env.Status == 0 {
		env.Status = code
	}
	return &types.CustomError{Code: env.Status, Message: env.Message, Type: env.Type}
}

func (r *Remote) session(ctx context.Context, path string, body interface{}) (*services.Session, error) {
	var s services.Session
	if err := r.call(ctx, fiber.MethodPost, path, body, &s); err != nil {
		return nil, err
	}
	r.UseToken(s.Token)
	return &s, nil
}

// SignIn posts to /auth/login and keeps the returned token
func (r *Remote) SignIn(ctx context.Context, email string) (*services.Session, error) {
	return r.session(ctx, "/auth/login", types.AuthRequest{Email: email})
}

// SignUp posts to /auth/signup and keeps the returned token
func (r *Remote) SignUp(ctx context.Context, email, name string) (*services.Session, error) {
	return r.session(ctx, "/auth/signup", types.AuthRequest{Email: email, Name: name})
}

// GetCurrentUser fetches /auth/me
func (r *Remote) GetCurrentUser(ctx context.Context) (*models.User, error) {
	var user *models.User
	err := r.call(ctx, fiber.MethodGet, "/auth/me", nil, &user)
	return user, err
}

// SignOut posts to /auth/logout
func (r *Remote) SignOut(ctx context.Context, userID string) error {
	return r.call(ctx, fiber.MethodPost, "/auth/logout", types.LogoutRequest{UserID: userID}, nil)
}

// ListBoards lists the boards of a team
func (r *Remote) ListBoards(ctx context.Context, teamID string) ([]models.Board, error) {
	boards := []models.Board{}
	err := r.call(ctx, fiber.MethodGet, "/boards?teamId="+url.QueryEscape(teamID), nil, &boards)
	return boards, err
}

// GetBoard fetches one board
func (r *Remote) GetBoard(ctx context.Context, id string) (*models.Board, error) {
	var board *models.Board
	err := r.call(ctx, fiber.MethodGet, "/boards/"+url.PathEscape(id), nil, &board)
	return board, err
}

// CreateBoard posts a new board
func (r *Remote) CreateBoard(ctx context.Context, req types.CreateBoardRequest) (*models.Board, error) {
	var board models.Board
	if err := r.call(ctx, fiber.MethodPost, "/boards", req, &board); err != nil {
		return nil, err
	}
	return &board, nil
}

// UpdateBoard sends a board command
func (r *Remote) UpdateBoard(ctx context.Context, id string, cmd types.BoardCommand) (*models.Board, error) {
	var board models.Board
	if err := r.call(ctx, fiber.MethodPut, "/boards/"+url.PathEscape(id), cmd, &board); err != nil {
		return nil, err
	}
	return &board, nil
}

// DeleteBoard removes a board
func (r *Remote) DeleteBoard(ctx context.Context, id string) error {
	return r.call(ctx, fiber.MethodDelete, "/boards/"+url.PathEscape(id), nil, nil)
}

// CloneBoard copies a board with its columns and cards
func (r *Remote) CloneBoard(ctx context.Context, id string, req types.CloneBoardRequest) (*models.Board, error) {
	var board models.Board
	if err := r.call(ctx, fiber.MethodPost, "/boards/"+url.PathEscape(id)+"/clone", req, &board); err != nil {
		return nil, err
	}
	return &board, nil
}

// ListColumns lists a board's columns in order
func (r *Remote) ListColumns(ctx context.Context, boardID string) ([]models.Column, error) {
	columns := []models.Column{}
	err := r.call(ctx, fiber.MethodGet, "/columns?boardId="+url.QueryEscape(boardID), nil, &columns)
	return columns, err
}

// CreateColumn appends a column
func (r *Remote) CreateColumn(ctx context.Context, req types.CreateColumnRequest) (*models.Column, error) {
	var column models.Column
	if err := r.call(ctx, fiber.MethodPost, "/columns", req, &column); err != nil {
		return nil, err
	}
	return &column, nil
}

// UpdateColumn sends a column command
func (r *Remote) UpdateColumn(ctx context.Context, id string, cmd types.ColumnCommand) (*models.Column, error) {
	var column models.Column
	if err := r.call(ctx, fiber.MethodPut, "/columns/"+url.PathEscape(id), cmd, &column); err != nil {
		return nil, err
	}
	return &column, nil
}

// DeleteColumn removes a column with its cards
func (r *Remote) DeleteColumn(ctx context.Context, id string) error {
	return r.call(ctx, fiber.MethodDelete, "/columns/"+url.PathEscape(id), nil, nil)
}

// ListCards lists a column's cards in order
func (r *Remote) ListCards(ctx context.Context, columnID string) ([]models.Card, error) {
	cards := []models.Card{}
	err := r.call(ctx, fiber.MethodGet, "/cards?columnId="+url.QueryEscape(columnID), nil, &cards)
	return cards, err
}

// CreateCard posts a new card
func (r *Remote) CreateCard(ctx context.Context, req types.CreateCardRequest) (*models.Card, error) {
	var card models.Card
	if err := r.call(ctx, fiber.MethodPost, "/cards", req, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

// UpdateCard sends a card command
func (r *Remote) UpdateCard(ctx context.Context, id string, cmd types.CardCommand) (*models.Card, error) {
	var card models.Card
	if err := r.call(ctx, fiber.MethodPut, "/cards/"+url.PathEscape(id), cmd, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

// DeleteCard removes a card
func (r *Remote) DeleteCard(ctx context.Context, id string) error {
	return r.call(ctx, fiber.MethodDelete, "/cards/"+url.PathEscape(id), nil, nil)
}

// ToggleVote flips userID's vote on a card
func (r *Remote) ToggleVote(ctx context.Context, cardID, userID string) (*services.VoteResult, error) {
	var result services.VoteResult
	if err := r.call(ctx, fiber.MethodPost, "/cards/"+url.PathEscape(cardID)+"/vote", types.VoteRequest{UserID: userID}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// AddComment posts a comment on a card
func (r *Remote) AddComment(ctx context.Context, cardID string, req types.CommentRequest) (*models.Comment, error) {
	var comment models.Comment
	if err := r.call(ctx, fiber.MethodPost, "/cards/"+url.PathEscape(cardID)+"/comments", req, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// DeleteComment removes a comment
func (r *Remote) DeleteComment(ctx context.Context, cardID, commentID string) error {
	return r.call(ctx, fiber.MethodDelete, "/cards/"+url.PathEscape(cardID)+"/comments/"+url.PathEscape(commentID), nil, nil)
}

// PublishReaction posts a reaction
func (r *Remote) PublishReaction(ctx context.Context, req types.ReactionRequest) (*models.ReactionEvent, error) {
	var ev models.ReactionEvent
	if err := r.call(ctx, fiber.MethodPost, "/reactions", req, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// ReactionsSince polls reactions newer than since (Unix ms)
func (r *Remote) ReactionsSince(ctx context.Context, boardID string, since int64) ([]models.ReactionEvent, error) {
	events := []models.ReactionEvent{}
	path := "/reactions?boardId=" + url.QueryEscape(boardID) + "&since=" + strconv.FormatInt(since, 10)
	err := r.call(ctx, fiber.MethodGet, path, nil, &events)
	return events, err
}

// SubscribeReactions reads the server-sent event stream of a board
func (r *Remote) SubscribeReactions(ctx context.Context, boardID string) (<-chan models.ReactionEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/reactions/stream?boardId="+url.QueryEscape(boardID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	if token := r.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := r.stream.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open reaction stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return nil, decodeError(resp.StatusCode, body)
	}

	out := make(chan models.ReactionEvent)
	go func() {
		defer close(out)
		defer resp.Body.Close()
		_ = readEvents(ctx, resp.Body, out)
	}()
	return out, nil
}

// readEvents parses "reaction" server-sent events from body into out
func readEvents(ctx context.Context, body io.Reader, out chan<- models.ReactionEvent) error {
	scanner := bufio.NewScanner(body)
	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if data.Len() == 0 {
				continue
			}
			var ev models.ReactionEvent
			err := json.Unmarshal([]byte(data.String()), &ev)
			data.Reset()
			if err != nil {
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	return scanner.Err()
}

// ListUsers lists every user (admin)
func (r *Remote) ListUsers(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	err := r.call(ctx, fiber.MethodGet, "/users", nil, &users)
	return users, err
}

// CreateUser adds a user (admin)
func (r *Remote) CreateUser(ctx context.Context, req types.UserRequest) (*models.User, error) {
	var user models.User
	if err := r.call(ctx, fiber.MethodPost, "/users", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser edits a user (admin)
func (r *Remote) UpdateUser(ctx context.Context, id string, req types.UserRequest) (*models.User, error) {
	var user models.User
	if err := r.call(ctx, fiber.MethodPut, "/users/"+url.PathEscape(id), req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteUser removes a user (admin)
func (r *Remote) DeleteUser(ctx context.Context, id string) error {
	return r.call(ctx, fiber.MethodDelete, "/users/"+url.PathEscape(id), nil, nil)
}

// Export downloads the full snapshot (admin)
func (r *Remote) Export(ctx context.Context) (*models.Snapshot, error) {
	var snap models.Snapshot
	if err := r.call(ctx, fiber.MethodGet, "/admin/export", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
