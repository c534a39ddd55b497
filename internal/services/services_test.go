// services_test.go
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

package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/localnerve/retroboard/internal/models"
	"github.com/localnerve/retroboard/internal/reactions"
	"github.com/localnerve/retroboard/internal/store"
	"github.com/localnerve/retroboard/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) *Service {
	t.Helper()
	st, err := store.OpenFileStore(filepath.Join(t.TempDir(), "retro.json"))
	require.NoError(t, err)
	return New(st, reactions.NewHub(time.Minute, 64), NewTokenIssuer([]byte("test-secret"), time.Hour))
}

func signUp(t *testing.T, s *Service, email string) *models.User {
	t.Helper()
	session, err := s.SignUp(context.Background(), email, "")
	require.NoError(t, err)
	return session.User
}

func ptr[T any](v T) *T { return &v }

type boardFixture struct {
	admin   *models.User
	user    *models.User
	board   *models.Board
	columns []models.Column
}

func newBoard(t *testing.T, s *Service, opts types.BoardPatch) boardFixture {
	t.Helper()
	ctx := context.Background()
	admin := signUp(t, s, "admin@example.com")
	user := signUp(t, s, "user@example.com")
	board, err := s.CreateBoard(ctx, user, types.CreateBoardRequest{
		Title:   "Sprint 7",
		TeamID:  "team-a",
		Options: types.BoardOptionsRequest{BoardPatch: opts},
	})
	require.NoError(t, err)
	columns, err := s.ListColumns(ctx, board.ID)
	require.NoError(t, err)
	return boardFixture{admin: admin, user: user, board: board, columns: columns}
}

func (f boardFixture) card(t *testing.T, s *Service, column int, content string) *models.Card {
	t.Helper()
	card, err := s.CreateCard(context.Background(), f.user, types.CreateCardRequest{
		ColumnID: f.columns[column].ID,
		Content:  content,
	})
	require.NoError(t, err)
	return card
}

func TestFirstUserIsAdmin(t *testing.T) {
	s := newService(t)
	first := signUp(t, s, "First@Example.com")
	second := signUp(t, s, "second@example.com")

	assert.Equal(t, models.RoleAdmin, first.Role)
	assert.Equal(t, "first@example.com", first.Email)
	assert.Equal(t, models.RoleUser, second.Role)

	_, err := s.SignUp(context.Background(), "FIRST@example.com", "")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestSignInUnknownEmail(t *testing.T) {
	s := newService(t)
	_, err := s.SignIn(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestTokenRejectedAfterSignOut(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	session, err := s.SignUp(ctx, "a@example.com", "A")
	require.NoError(t, err)

	user, err := s.Authenticate(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, user.ID)

	require.NoError(t, s.SignOut(ctx, user, ""))

	_, err = s.Authenticate(ctx, session.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)

	current, err := s.CurrentUser(ctx, session.Token)
	assert.NoError(t, err)
	assert.Nil(t, current)

	// a fresh sign-in in the same second works, the old token stays dead
	again, err := s.SignIn(ctx, "a@example.com")
	require.NoError(t, err)
	user, err = s.Authenticate(ctx, again.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.SessionVersion)
	_, err = s.Authenticate(ctx, session.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, s.SignOut(ctx, user, ""))
	_, err = s.Authenticate(ctx, again.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestActingForAnotherUser(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	admin := signUp(t, s, "admin@example.com")
	user := signUp(t, s, "user@example.com")

	assert.ErrorIs(t, s.SignOut(ctx, user, admin.ID), ErrForbidden)
	assert.NoError(t, s.SignOut(ctx, admin, user.ID))
}

func TestCreateBoardDefaults(t *testing.T) {
	s := newService(t)
	f := newBoard(t, s, types.BoardPatch{})

	assert.Equal(t, f.user.ID, f.board.CreatorID)
	assert.Equal(t, models.DefaultMaxVotes, f.board.MaxVotes)
	assert.True(t, f.board.CommentsEnabled)
	require.Len(t, f.columns, 3)
	assert.Equal(t, "Start", f.columns[0].Title)
	assert.Equal(t, "Continue", f.columns[2].Title)

	board, err := s.GetBoard(context.Background(), f.board.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StringList{"#22c55e", "#ef4444", "#3b82f6"}, board.ColumnColors)
}

func TestToggleVoteTwiceRestores(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	f := newBoard(t, s, types.BoardPatch{})
	card := f.card(t, s, 0, "ship it")

	res, err := s.ToggleVote(ctx, f.user, card.ID, "")
	require.NoError(t, err)
	assert.True(t, res.Voted)
	assert.Equal(t, 1, res.Votes)
	assert.Equal(t, models.StringList{f.user.ID}, res.VotedUserIDs)

	res, err = s.ToggleVote(ctx, f.user, card.ID, "")
	require.NoError(t, err)
	assert.False(t, res.Voted)
	assert.Equal(t, 0, res.Votes)
	assert.Empty(t, res.VotedUserIDs)
}

func TestVoteLimit(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	f := newBoard(t, s, types.BoardPatch{MaxVotes: ptr(types.FlexInt64(2))})
	a := f.card(t, s, 0, "a")
	b := f.card(t, s, 1, "b")
	c := f.card(t, s, 2, "c")

	_, err := s.ToggleVote(ctx, f.user, a.ID, "")
	require.NoError(t, err)
	_, err = s.ToggleVote(ctx, f.user, b.ID, "")
	require.NoError(t, err)

	_, err = s.ToggleVote(ctx, f.user, c.ID, "")
	assert.ErrorIs(t, err, ErrVoteLimit)

	// removing is always possible
	_, err = s.ToggleVote(ctx, f.user, a.ID, "")
	require.NoError(t, err)
	_, err = s.ToggleVote(ctx, f.user, c.ID, "")
	assert.NoError(t, err)

	// another user has an allowance of their own
	_, err = s.ToggleVote(ctx, f.admin, c.ID, "")
	assert.NoError(t, err)
}

func TestVotingDisabled(t *testing.T) {
	s := newService(t)
	f := newBoard(t, s, types.BoardPatch{VotingDisabled: ptr(true)})
	card := f.card(t, s, 0, "x")

	_, err := s.ToggleVote(context.Background(), f.user, card.ID, "")
	assert.ErrorIs(t, err, ErrVotingDisabled)
}

func TestConcurrentVotesKeepCountConsistent(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	f := newBoard(t, s, types.BoardPatch{MaxVotes: ptr(types.FlexInt64(0))})
	card := f.card(t, s, 0, "contended")

	voters := make([]*models.User, 8)
	for i := range voters {
		voters[i] = signUp(t, s, string(rune('a'+i))+"@voters.example.com")
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	applied := 0
	for _, v := range voters {
		wg.Add(1)
		go func(v *models.User) {
			defer wg.Done()
			_, err := s.ToggleVote(ctx, v, card.ID, "")
			if err == nil {
				mu.Lock()
				applied++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrVersion)
		}(v)
	}
	wg.Wait()

	got, err := s.Store.GetCard(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, len(got.VotedUserIDs), got.Votes)
	assert.Equal(t, applied, got.Votes)
}

func TestCompletedBoardIsLocked(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	f := newBoard(t, s, types.BoardPatch{})
	card := f.card(t, s, 0, "before")

	_, err := s.UpdateBoard(ctx, f.user, f.board.ID, types.BoardCommand{Op: types.BoardOpComplete})
	require.NoError(t, err)

	_, err = s.CreateCard(ctx, f.user, types.CreateCardRequest{ColumnID: f.columns[0].ID, Content: "after"})
	assert.ErrorIs(t, err, ErrBoardLocked)
	_, err = s.ToggleVote(ctx, f.user, card.ID, "")
	assert.ErrorIs(t, err, ErrBoardLocked)
	_, err = s.UpdateBoard(ctx, f.user, f.board.ID, types.BoardCommand{Op: types.BoardOpReopen})
	assert.ErrorIs(t, err, ErrBoardLocked)

	// reactions stay open
	_, err = s.PublishReaction(ctx, f.user, types.ReactionRequest{BoardID: f.board.ID, Emoji: "🎉"})
	assert.NoError(t, err)

	// admins are not locked out
	_, err = s.CreateCard(ctx, f.admin, types.CreateCardRequest{ColumnID: f.columns[0].ID, Content: "admin"})
	require.NoError(t, err)
	board, err := s.UpdateBoard(ctx, f.admin, f.board.ID, types.BoardCommand{Op: types.BoardOpReopen})
	require.NoError(t, err)
	assert.False(t, board.IsCompleted)
}

func TestAnonymousCardHidesAuthor(t *testing.T) {
	s := newService(t)
	f := newBoard(t, s, types.BoardPatch{})
	card, err := s.CreateCard(context.Background(), f.user, types.CreateCardRequest{
		ColumnID: f.columns[1].ID,
		Content:  "  quiet  ",
		Options:  types.CardOptions{IsAnonymous: true, Color: "#fff"},
	})
	require.NoError(t, err)

	assert.Equal(t, "quiet", card.Content)
	assert.True(t, card.IsAnonymous)
	assert.Empty(t, card.AuthorID)
	assert.Equal(t, models.AnonymousAuthor, card.AuthorName)
	assert.Equal(t, "#fff", card.Color)
}

func TestMoveCardAcrossBoardsRejected(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	f := newBoard(t, s, types.BoardPatch{})
	card := f.card(t, s, 0, "x")

	other, err := s.CreateBoard(ctx, f.user, types.CreateBoardRequest{Title: "Other"})
	require.NoError(t, err)
	otherColumns, err := s.ListColumns(ctx, other.ID)
	require.NoError(t, err)

	_, err = s.UpdateCard(ctx, f.user, card.ID, types.CardCommand{Op: types.CardOpMove, ColumnID: otherColumns[0].ID})
	var ce *types.CustomError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 400, ce.Code)

	moved, err := s.UpdateCard(ctx, f.user, card.ID, types.CardCommand{Op: types.CardOpMove, ColumnID: f.columns[2].ID})
	require.NoError(t, err)
	assert.Equal(t, f.columns[2].ID, moved.ColumnID)
	assert.Equal(t, 0, moved.Position)
}

func TestCommentsRespectBoardOption(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	f := newBoard(t, s, types.BoardPatch{})
	card := f.card(t, s, 0, "x")

	comment, err := s.AddComment(ctx, f.user, card.ID, types.CommentRequest{Content: "agreed", IsAnonymous: true})
	require.NoError(t, err)
	assert.Empty(t, comment.AuthorID)
	assert.Equal(t, models.AnonymousAuthor, comment.AuthorName)

	got, err := s.Store.GetCard(ctx, card.ID)
	require.NoError(t, err)
	require.Len(t, got.Comments, 1)

	require.NoError(t, s.DeleteComment(ctx, f.user, card.ID, comment.ID))

	_, err = s.UpdateBoard(ctx, f.user, f.board.ID, types.BoardCommand{
		Op:     types.BoardOpUpdate,
		Fields: types.BoardPatch{CommentsEnabled: ptr(false)},
	})
	require.NoError(t, err)
	_, err = s.AddComment(ctx, f.user, card.ID, types.CommentRequest{Content: "again"})
	assert.ErrorIs(t, err, ErrCommentsOff)
}

func TestDeleteBoardCascades(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	f := newBoard(t, s, types.BoardPatch{})
	card := f.card(t, s, 0, "x")
	_, err := s.AddComment(ctx, f.user, card.ID, types.CommentRequest{Content: "c"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteBoard(ctx, f.user, f.board.ID))

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Boards)
	assert.Empty(t, snap.Columns)
	assert.Empty(t, snap.Cards)
	assert.Empty(t, snap.Comments)

	assert.ErrorIs(t, s.DeleteBoard(ctx, f.user, f.board.ID), ErrNotFound)
}

func TestCloneBoardResetsVotes(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	f := newBoard(t, s, types.BoardPatch{GifsEnabled: ptr(false)})
	card := f.card(t, s, 1, "keep me")
	_, err := s.ToggleVote(ctx, f.user, card.ID, "")
	require.NoError(t, err)
	_, err = s.AddComment(ctx, f.user, card.ID, types.CommentRequest{Content: "left behind"})
	require.NoError(t, err)

	clone, err := s.CloneBoard(ctx, f.admin, f.board.ID, types.CloneBoardRequest{})
	require.NoError(t, err)
	assert.NotEqual(t, f.board.ID, clone.ID)
	assert.Equal(t, "Copy of Sprint 7", clone.Title)
	assert.Equal(t, f.admin.ID, clone.CreatorID)
	assert.False(t, clone.GifsEnabled)

	columns, err := s.ListColumns(ctx, clone.ID)
	require.NoError(t, err)
	require.Len(t, columns, 3)
	cards, err := s.ListCards(ctx, columns[1].ID)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "keep me", cards[0].Content)
	assert.Zero(t, cards[0].Votes)
	assert.Empty(t, cards[0].Comments)
}

func TestInviteAndRemoveMembers(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	f := newBoard(t, s, types.BoardPatch{})

	board, err := s.UpdateBoard(ctx, f.user, f.board.ID, types.BoardCommand{
		Op:      types.BoardOpInvite,
		UserIDs: types.FlexList[string]{f.admin.ID, f.admin.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StringList{f.admin.ID}, board.AllowedUserIDs)

	board, err = s.UpdateBoard(ctx, f.user, f.board.ID, types.BoardCommand{
		Op:      types.BoardOpRemoveMember,
		UserIDs: types.FlexList[string]{f.admin.ID},
	})
	require.NoError(t, err)
	assert.Empty(t, board.AllowedUserIDs)
}

func TestColumnLifecycle(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	f := newBoard(t, s, types.BoardPatch{})

	column, err := s.CreateColumn(ctx, f.user, types.CreateColumnRequest{BoardID: f.board.ID, Title: "Kudos"})
	require.NoError(t, err)
	assert.Equal(t, 3, column.OrderIndex)
	assert.Equal(t, Palette[3], column.Color)

	moved, err := s.UpdateColumn(ctx, f.user, column.ID, types.ColumnCommand{Op: types.ColumnOpMove, OrderIndex: 0})
	require.NoError(t, err)
	assert.Equal(t, 0, moved.OrderIndex)

	renamed, err := s.UpdateColumn(ctx, f.user, column.ID, types.ColumnCommand{Op: types.ColumnOpRename, Title: "Thanks"})
	require.NoError(t, err)
	assert.Equal(t, "Thanks", renamed.Title)

	require.NoError(t, s.DeleteColumn(ctx, f.user, column.ID))
	columns, err := s.ListColumns(ctx, f.board.ID)
	require.NoError(t, err)
	assert.Len(t, columns, 3)
	assert.Equal(t, "Start", columns[0].Title)
}

func TestReactionFeatureFlags(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	f := newBoard(t, s, types.BoardPatch{GifsEnabled: ptr(false)})

	_, err := s.PublishReaction(ctx, f.user, types.ReactionRequest{BoardID: f.board.ID, GifURL: "https://gifs.example.com/x.gif"})
	assert.ErrorIs(t, err, ErrGifsOff)

	ev, err := s.PublishReaction(ctx, f.user, types.ReactionRequest{BoardID: f.board.ID, Emoji: "👍"})
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, ev.UserID)
	assert.NotEmpty(t, ev.ID)

	events, err := s.ReactionsSince(ctx, f.board.ID, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, ev.ID, events[0].ID)

	_, err = s.UpdateBoard(ctx, f.user, f.board.ID, types.BoardCommand{
		Op:     types.BoardOpUpdate,
		Fields: types.BoardPatch{ReactionsEnabled: ptr(false)},
	})
	require.NoError(t, err)
	_, err = s.PublishReaction(ctx, f.user, types.ReactionRequest{BoardID: f.board.ID, Emoji: "👍"})
	assert.ErrorIs(t, err, ErrReactionsOff)

	events, err = s.ReactionsSince(ctx, "missing", 0)
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)

	_, err = s.PublishReaction(ctx, f.user, types.ReactionRequest{BoardID: "missing", Emoji: "👍"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHealthCheck(t *testing.T) {
	s := newService(t)
	res := s.HealthCheck(context.Background(), "jsonfile", "retro.json")
	assert.Equal(t, "healthy", res.Status)
	assert.Equal(t, "ok", res.Database)
	assert.Equal(t, "jsonfile", res.Details["database_type"])
}
