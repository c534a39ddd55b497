package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/localnerve/retroboard/internal/config"
	"github.com/localnerve/retroboard/internal/database"
	"github.com/localnerve/retroboard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGormStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := database.Connect(&config.Config{
		DBType:            "sqlite",
		DBDatabase:        filepath.Join(t.TempDir(), "store.db"),
		DBConnectionLimit: 4,
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return NewGormStore(db)
}

func newFileStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := OpenFileStore(filepath.Join(t.TempDir(), "store.json"))
	require.NoError(t, err)
	return s
}

// forEachStore runs fn against every Store implementation
func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("gorm", func(t *testing.T) { fn(t, newGormStore(t)) })
	t.Run("file", func(t *testing.T) { fn(t, newFileStore(t)) })
}

type fixture struct {
	board   models.Board
	columns []models.Column
}

func seedBoard(t *testing.T, s Store) fixture {
	t.Helper()
	board := models.Board{ID: uuid.NewString(), Title: "Sprint 1", TeamID: "team", BoardOptions: models.DefaultBoardOptions()}
	columns := []models.Column{
		{ID: uuid.NewString(), Title: "Start", Color: "#1"},
		{ID: uuid.NewString(), Title: "Stop", Color: "#2"},
		{ID: uuid.NewString(), Title: "Continue", Color: "#3"},
	}
	require.NoError(t, s.CreateBoard(context.Background(), &board, columns, nil))
	return fixture{board: board, columns: columns}
}

func addCard(t *testing.T, s Store, f fixture, column int, content string) models.Card {
	t.Helper()
	card := models.Card{
		ID:       uuid.NewString(),
		ColumnID: f.columns[column].ID,
		BoardID:  f.board.ID,
		Content:  content,
	}
	require.NoError(t, s.CreateCard(context.Background(), &card))
	return card
}

func cardIDs(t *testing.T, s Store, columnID string) []string {
	t.Helper()
	cards, err := s.ListCards(context.Background(), columnID)
	require.NoError(t, err)
	ids := make([]string, len(cards))
	for i, c := range cards {
		assert.Equal(t, i, c.Position, "positions must be dense")
		ids[i] = c.ID
	}
	return ids
}

func TestReadsReturnNilWhenMissing(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		u, err := s.GetUser(ctx, "nope")
		assert.NoError(t, err)
		assert.Nil(t, u)

		b, err := s.GetBoard(ctx, "nope")
		assert.NoError(t, err)
		assert.Nil(t, b)

		c, err := s.GetCard(ctx, "nope")
		assert.NoError(t, err)
		assert.Nil(t, c)

		cols, err := s.ListColumns(ctx, "nope")
		assert.NoError(t, err)
		assert.NotNil(t, cols)
		assert.Empty(t, cols)

		assert.ErrorIs(t, s.DeleteBoard(ctx, "nope"), ErrNotFound)
		assert.ErrorIs(t, s.DeleteCard(ctx, "nope"), ErrNotFound)
	})
}

func TestUsers(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		u := models.User{ID: uuid.NewString(), Email: "a@example.com", Name: "A", Role: models.RoleUser}
		require.NoError(t, s.CreateUser(ctx, &u))

		dup := models.User{ID: uuid.NewString(), Email: "a@example.com", Role: models.RoleUser}
		assert.ErrorIs(t, s.CreateUser(ctx, &dup), ErrDuplicate)

		got, err := s.GetUserByEmail(ctx, "a@example.com")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, u.ID, got.ID)

		got.Name = "Alice"
		got.Role = models.RoleAdmin
		require.NoError(t, s.UpdateUser(ctx, got))
		again, err := s.GetUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "Alice", again.Name)
		assert.True(t, again.IsAdmin())

		n, err := s.CountUsers(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		require.NoError(t, s.DeleteUser(ctx, u.ID))
		assert.ErrorIs(t, s.DeleteUser(ctx, u.ID), ErrNotFound)
	})
}

func TestCreateBoardSeedsOrderedColumns(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		f := seedBoard(t, s)

		cols, err := s.ListColumns(ctx, f.board.ID)
		require.NoError(t, err)
		require.Len(t, cols, 3)
		for i, c := range cols {
			assert.Equal(t, i, c.OrderIndex)
			assert.Equal(t, f.columns[i].ID, c.ID)
		}

		b, err := s.GetBoard(ctx, f.board.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StringList{"#1", "#2", "#3"}, b.ColumnColors)
		assert.Equal(t, models.DefaultMaxVotes, b.MaxVotes)
		assert.True(t, b.CommentsEnabled)

		boards, err := s.ListBoards(ctx, "other-team")
		require.NoError(t, err)
		assert.Empty(t, boards)
		boards, err = s.ListBoards(ctx, "")
		require.NoError(t, err)
		assert.Len(t, boards, 1)
	})
}

func TestUpdateBoardKeepsColumnColors(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		f := seedBoard(t, s)

		b, err := s.GetBoard(ctx, f.board.ID)
		require.NoError(t, err)
		b.Title = "Renamed"
		b.VotingDisabled = true
		b.CommentsEnabled = false
		b.ColumnColors = nil
		b.AllowedUserIDs = models.StringList{"u1"}
		require.NoError(t, s.UpdateBoard(ctx, b))

		got, err := s.GetBoard(ctx, f.board.ID)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.Title)
		assert.True(t, got.VotingDisabled)
		assert.False(t, got.CommentsEnabled)
		assert.Equal(t, models.StringList{"u1"}, got.AllowedUserIDs)
		assert.Len(t, got.ColumnColors, 3)
	})
}

func TestDeleteBoardCascades(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		f := seedBoard(t, s)
		card := addCard(t, s, f, 0, "Fix bug")
		addCard(t, s, f, 2, "Keep demos")
		require.NoError(t, s.AddComment(ctx, &models.Comment{ID: uuid.NewString(), CardID: card.ID, Content: "agreed"}))

		require.NoError(t, s.DeleteBoard(ctx, f.board.ID))

		cols, err := s.ListColumns(ctx, f.board.ID)
		require.NoError(t, err)
		assert.Empty(t, cols)
		cards, err := s.ListBoardCards(ctx, f.board.ID)
		require.NoError(t, err)
		assert.Empty(t, cards)

		snap, err := s.Snapshot(ctx)
		require.NoError(t, err)
		assert.Empty(t, snap.Boards)
		assert.Empty(t, snap.Columns)
		assert.Empty(t, snap.Cards)
		assert.Empty(t, snap.Comments)
	})
}

func TestDeleteColumnRemovesCardsAndRenumbers(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		f := seedBoard(t, s)
		doomed := addCard(t, s, f, 0, "one")
		addCard(t, s, f, 0, "two")
		kept := addCard(t, s, f, 1, "three")

		require.NoError(t, s.DeleteColumn(ctx, f.columns[0].ID))

		cards, err := s.ListBoardCards(ctx, f.board.ID)
		require.NoError(t, err)
		require.Len(t, cards, 1)
		assert.Equal(t, kept.ID, cards[0].ID)

		gone, err := s.GetCard(ctx, doomed.ID)
		require.NoError(t, err)
		assert.Nil(t, gone)

		cols, err := s.ListColumns(ctx, f.board.ID)
		require.NoError(t, err)
		require.Len(t, cols, 2)
		assert.Equal(t, 0, cols[0].OrderIndex)
		assert.Equal(t, 1, cols[1].OrderIndex)

		b, err := s.GetBoard(ctx, f.board.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StringList{"#2", "#3"}, b.ColumnColors)
	})
}

func TestCreateAndMoveColumns(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		f := seedBoard(t, s)

		extra := models.Column{ID: uuid.NewString(), BoardID: f.board.ID, Title: "Kudos", Color: "#4"}
		require.NoError(t, s.CreateColumn(ctx, &extra))
		assert.Equal(t, 3, extra.OrderIndex)

		cols, err := s.MoveColumn(ctx, extra.ID, 0)
		require.NoError(t, err)
		require.Len(t, cols, 4)
		assert.Equal(t, extra.ID, cols[0].ID)
		assert.Equal(t, f.columns[0].ID, cols[1].ID)
		for i, c := range cols {
			assert.Equal(t, i, c.OrderIndex)
		}

		// out of range indexes clamp to the end
		cols, err = s.MoveColumn(ctx, extra.ID, 99)
		require.NoError(t, err)
		assert.Equal(t, extra.ID, cols[3].ID)

		extra.Title = "Thanks"
		extra.Color = "#5"
		require.NoError(t, s.UpdateColumn(ctx, &extra))

		b, err := s.GetBoard(ctx, f.board.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StringList{"#1", "#2", "#3", "#5"}, b.ColumnColors)

		_, err = s.MoveColumn(ctx, "nope", 0)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMoveCard(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		f := seedBoard(t, s)
		a0 := addCard(t, s, f, 0, "a0")
		a1 := addCard(t, s, f, 0, "a1")
		a2 := addCard(t, s, f, 0, "a2")
		b0 := addCard(t, s, f, 1, "b0")
		assert.Equal(t, 2, a2.Position)

		moved, err := s.MoveCard(ctx, a1.ID, f.columns[1].ID, 0)
		require.NoError(t, err)
		assert.Equal(t, f.columns[1].ID, moved.ColumnID)
		assert.Equal(t, 0, moved.Position)

		assert.Equal(t, []string{a0.ID, a2.ID}, cardIDs(t, s, f.columns[0].ID))
		assert.Equal(t, []string{a1.ID, b0.ID}, cardIDs(t, s, f.columns[1].ID))

		// reorder within a column
		_, err = s.MoveCard(ctx, a0.ID, f.columns[0].ID, 5)
		require.NoError(t, err)
		assert.Equal(t, []string{a2.ID, a0.ID}, cardIDs(t, s, f.columns[0].ID))

		_, err = s.MoveCard(ctx, a0.ID, "nope", 0)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestDeleteCardRenumbers(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		f := seedBoard(t, s)
		c0 := addCard(t, s, f, 0, "c0")
		c1 := addCard(t, s, f, 0, "c1")
		c2 := addCard(t, s, f, 0, "c2")

		require.NoError(t, s.DeleteCard(ctx, c1.ID))
		assert.Equal(t, []string{c0.ID, c2.ID}, cardIDs(t, s, f.columns[0].ID))
	})
}

func TestUpdateCardComparesVersion(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		f := seedBoard(t, s)
		card := addCard(t, s, f, 0, "Fix bug")
		assert.Equal(t, uint64(1), card.Version)

		stale := card
		stale.VotedUserIDs = card.VotedUserIDs.Clone()

		card.ToggleVote("u1")
		require.NoError(t, s.UpdateCard(ctx, &card))
		assert.Equal(t, uint64(2), card.Version)

		stale.Content = "lost update"
		assert.ErrorIs(t, s.UpdateCard(ctx, &stale), ErrVersionConflict)

		got, err := s.GetCard(ctx, card.ID)
		require.NoError(t, err)
		assert.Equal(t, "Fix bug", got.Content)
		assert.Equal(t, 1, got.Votes)
		assert.Equal(t, models.StringList{"u1"}, got.VotedUserIDs)
		assert.Equal(t, uint64(2), got.Version)

		missing := models.Card{ID: "nope", Version: 1}
		assert.ErrorIs(t, s.UpdateCard(ctx, &missing), ErrNotFound)
	})
}

func TestComments(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		f := seedBoard(t, s)
		card := addCard(t, s, f, 0, "Fix bug")

		assert.ErrorIs(t, s.AddComment(ctx, &models.Comment{ID: uuid.NewString(), CardID: "nope", Content: "x"}), ErrNotFound)

		c := models.Comment{ID: uuid.NewString(), CardID: card.ID, Content: "+1", AuthorName: "A"}
		require.NoError(t, s.AddComment(ctx, &c))

		got, err := s.GetCard(ctx, card.ID)
		require.NoError(t, err)
		require.Len(t, got.Comments, 1)
		assert.Equal(t, "+1", got.Comments[0].Content)

		assert.ErrorIs(t, s.DeleteComment(ctx, "other-card", c.ID), ErrNotFound)
		require.NoError(t, s.DeleteComment(ctx, card.ID, c.ID))

		got, err = s.GetCard(ctx, card.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Comments)
	})
}

func TestFileStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "retro.json")
	s, err := OpenFileStore(path)
	require.NoError(t, err)
	f := seedBoard(t, s)
	card := addCard(t, s, f, 1, "persisted")
	require.NoError(t, s.AddComment(context.Background(), &models.Comment{ID: "c1", CardID: card.ID, Content: "hi"}))

	reopened, err := OpenFileStore(path)
	require.NoError(t, err)

	got, err := reopened.GetCard(context.Background(), card.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "persisted", got.Content)
	assert.Len(t, got.Comments, 1)

	cols, err := reopened.ListColumns(context.Background(), f.board.ID)
	require.NoError(t, err)
	assert.Len(t, cols, 3)
}

func TestInsertAt(t *testing.T) {
	assert.Equal(t, []string{"x", "a", "b"}, insertAt([]string{"a", "b"}, "x", 0))
	assert.Equal(t, []string{"a", "b", "x"}, insertAt([]string{"a", "b"}, "x", 10))
	assert.Equal(t, []string{"x", "a", "b"}, insertAt([]string{"a", "b"}, "x", -3))
	assert.Equal(t, []string{"b", "a"}, insertAt([]string{"a", "b"}, "a", 1))
	assert.Equal(t, []string{"b", "a", "c"}, insertAt([]string{"a", "b", "c"}, "a", 1))
}
