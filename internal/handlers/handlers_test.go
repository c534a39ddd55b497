// handlers_test.go
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

package handlers

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/retroboard/internal/config"
	"github.com/localnerve/retroboard/internal/export"
	"github.com/localnerve/retroboard/internal/models"
	"github.com/localnerve/retroboard/internal/reactions"
	"github.com/localnerve/retroboard/internal/services"
	"github.com/localnerve/retroboard/internal/store"
	"github.com/localnerve/retroboard/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	t   *testing.T
	app *fiber.App
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	path := filepath.Join(t.TempDir(), "retro.json")
	st, err := store.OpenFileStore(path)
	require.NoError(t, err)
	svc := services.New(st, reactions.NewHub(time.Minute, 32), services.NewTokenIssuer([]byte("secret"), time.Hour))
	cfg := &config.Config{DBType: "jsonfile", DBDatabase: path, LoginRateLimit: 100, ExportRateLimit: 100}
	return &testAPI{t: t, app: NewApp(Options{Service: svc, Config: cfg, Quiet: true})}
}

func (a *testAPI) do(method, path, token string, body interface{}) *http.Response {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(a.t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (a *testAPI) signup(email string) services.Session {
	a.t.Helper()
	resp := a.do("POST", "/api/auth/signup", "", map[string]string{"email": email, "name": email})
	require.Equal(a.t, fiber.StatusCreated, resp.StatusCode)
	return decode[services.Session](a.t, resp)
}

func TestAuthFlow(t *testing.T) {
	api := newTestAPI(t)
	admin := api.signup("admin@example.com")
	assert.Equal(t, models.RoleAdmin, admin.User.Role)
	assert.NotEmpty(t, admin.Token)

	resp := api.do("POST", "/api/auth/signup", "", map[string]string{"email": "ADMIN@example.com"})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	env := decode[utils.ErrorResponseStruct](t, resp)
	assert.Equal(t, "AUTH_USER_EXISTS", env.Type)
	assert.False(t, env.Ok)

	resp = api.do("POST", "/api/auth/login", "", map[string]string{"email": "ghost@example.com"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "AUTH_USER_NOT_FOUND", decode[utils.ErrorResponseStruct](t, resp).Type)

	resp = api.do("POST", "/api/auth/login", "", map[string]string{"email": "admin@example.com"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = api.do("GET", "/api/auth/me", admin.Token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, admin.User.ID, decode[models.User](t, resp).ID)

	resp = api.do("GET", "/api/auth/me", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "null", string(body))
}

func TestBoardRoutes(t *testing.T) {
	api := newTestAPI(t)
	api.signup("admin@example.com")
	user := api.signup("user@example.com")

	resp := api.do("GET", "/api/boards", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = api.do("POST", "/api/boards", user.Token, map[string]interface{}{
		"title":   "Retro",
		"teamId":  "team-1",
		"options": map[string]interface{}{"maxVotes": "1"},
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	board := decode[models.Board](t, resp)
	assert.Equal(t, 1, board.MaxVotes)

	resp = api.do("GET", "/api/boards?teamId=team-1", user.Token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.Board](t, resp), 1)

	resp = api.do("GET", "/api/boards/missing", user.Token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "null", string(body))

	resp = api.do("GET", "/api/columns?boardId="+board.ID, user.Token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	columns := decode[[]models.Column](t, resp)
	require.Len(t, columns, 3)

	resp = api.do("POST", "/api/cards", user.Token, map[string]interface{}{"columnId": columns[0].ID, "content": "one"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	first := decode[models.Card](t, resp)
	resp = api.do("POST", "/api/cards", user.Token, map[string]interface{}{"columnId": columns[0].ID, "content": "two"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	second := decode[models.Card](t, resp)

	resp = api.do("POST", "/api/cards/"+first.ID+"/vote", user.Token, map[string]string{})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	vote := decode[services.VoteResult](t, resp)
	assert.Equal(t, 1, vote.Votes)

	resp = api.do("POST", "/api/cards/"+second.ID+"/vote", user.Token, nil)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "VOTE_LIMIT_REACHED", decode[utils.ErrorResponseStruct](t, resp).Type)

	resp = api.do("PUT", "/api/cards/"+second.ID, user.Token, map[string]interface{}{"op": "move", "columnId": columns[2].ID, "position": 0})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, columns[2].ID, decode[models.Card](t, resp).ColumnID)

	resp = api.do("PUT", "/api/cards/"+second.ID, user.Token, map[string]interface{}{"op": "explode"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_REQUEST", decode[utils.ErrorResponseStruct](t, resp).Type)

	resp = api.do("POST", "/api/cards/"+first.ID+"/comments", user.Token, map[string]interface{}{"content": "+1"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = api.do("GET", "/api/cards?boardId="+board.ID, user.Token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.Card](t, resp), 2)

	resp = api.do("PUT", "/api/boards/"+board.ID, user.Token, map[string]string{"op": "complete"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, decode[models.Board](t, resp).IsCompleted)

	resp = api.do("DELETE", "/api/cards/"+first.ID, user.Token, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "BOARD_LOCKED", decode[utils.ErrorResponseStruct](t, resp).Type)

	resp = api.do("POST", "/api/boards/"+board.ID+"/clone", user.Token, map[string]string{"title": "Next"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	clone := decode[models.Board](t, resp)
	assert.Equal(t, "Next", clone.Title)
	assert.False(t, clone.IsCompleted)
}

func TestReactionRoutes(t *testing.T) {
	api := newTestAPI(t)
	user := api.signup("user@example.com")

	resp := api.do("POST", "/api/boards", user.Token, map[string]string{"title": "Retro"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	board := decode[models.Board](t, resp)

	resp = api.do("POST", "/api/reactions", user.Token, map[string]string{"boardId": board.ID, "emoji": "🔥", "reactionId": "r-1"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	ev := decode[models.ReactionEvent](t, resp)
	assert.Equal(t, "r-1", ev.ID)

	resp = api.do("GET", "/api/reactions?boardId="+board.ID+"&since=0", user.Token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.ReactionEvent](t, resp), 1)

	resp = api.do("GET", "/api/reactions?boardId="+board.ID+"&since=abc", user.Token, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = api.do("GET", "/api/reactions?boardId="+board.ID+"&since="+jsonNumber(ev.Timestamp), user.Token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]models.ReactionEvent](t, resp))
}

func TestReactionsForUnknownBoardAreEmpty(t *testing.T) {
	api := newTestAPI(t)
	user := api.signup("user@example.com")

	resp := api.do("GET", "/api/reactions?boardId=nope&since=0", user.Token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.JSONEq(t, `[]`, string(body))

	resp = api.do("GET", "/api/columns?boardId=nope", user.Token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]models.Column](t, resp))

	resp = api.do("POST", "/api/reactions", user.Token, map[string]string{"boardId": "nope", "emoji": "🔥"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func jsonNumber(n int64) string {
	data, _ := json.Marshal(n)
	return string(data)
}

func TestAdminRoutes(t *testing.T) {
	api := newTestAPI(t)
	admin := api.signup("admin@example.com")
	user := api.signup("user@example.com")

	resp := api.do("GET", "/api/users", user.Token, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = api.do("GET", "/api/users", admin.Token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.User](t, resp), 2)

	resp = api.do("POST", "/api/users", admin.Token, map[string]string{"email": "new@example.com", "role": "admin"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	created := decode[models.User](t, resp)
	assert.Equal(t, models.RoleAdmin, created.Role)

	resp = api.do("PUT", "/api/users/"+created.ID, admin.Token, map[string]string{"role": "owner"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = api.do("DELETE", "/api/users/"+created.ID, admin.Token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp = api.do("GET", "/api/users/"+created.ID, admin.Token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "null", string(body))

	resp = api.do("GET", "/api/admin/export", admin.Token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	snap := decode[models.Snapshot](t, resp)
	assert.Len(t, snap.Users, 2)

	resp = api.do("GET", "/api/admin/export?format=xlsx", admin.Token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, export.ContentType, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), ".xlsx")

	resp = api.do("GET", "/api/admin/export?format=csv", admin.Token, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHealthAndSetup(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do("GET", "/api/health", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", decode[services.HealthCheckResult](t, resp).Status)

	resp = api.do("GET", "/api/setup-db", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = api.do("GET", "/api/nowhere", "", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestStreamReactionsWritesBacklogThenEvents(t *testing.T) {
	events := make(chan models.ReactionEvent, 2)
	events <- models.ReactionEvent{ID: "old", Timestamp: 5}
	events <- models.ReactionEvent{ID: "new", BoardID: "b", Emoji: "👍", Timestamp: 9}
	close(events)

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	backlog := []models.ReactionEvent{{ID: "old", Timestamp: 5}}
	require.NoError(t, streamReactions(w, backlog, events, time.Hour))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, ": connected\n\n"))
	assert.Equal(t, 1, strings.Count(out, "id: old\n"))
	assert.Contains(t, out, "id: new\nevent: reaction\ndata: {")
	assert.Contains(t, out, `"emoji":"👍"`)
}
