package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/localnerve/retroboard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func snapshot() *models.Snapshot {
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return &models.Snapshot{
		Users: []models.User{{ID: "u1", Email: "a@example.com", Name: "A", Role: models.RoleAdmin, CreatedAt: created}},
		Boards: []models.Board{{
			ID: "b1", Title: "Retro", BoardOptions: models.DefaultBoardOptions(),
			AllowedUserIDs: models.StringList{"u1", "u2"}, ColumnColors: models.StringList{"#1", "#2"}, CreatedAt: created,
		}},
		Columns: []models.Column{{ID: "c1", BoardID: "b1", Title: "Start", Color: "#1"}},
		Cards: []models.Card{{
			ID: "k1", BoardID: "b1", ColumnID: "c1", Content: "more tests", AuthorName: "A",
			Votes: 2, VotedUserIDs: models.StringList{"u1", "u2"}, CreatedAt: created,
		}},
		Comments:  []models.Comment{{ID: "m1", CardID: "k1", Content: "yes", AuthorName: models.AnonymousAuthor, CreatedAt: created}},
		Reactions: []models.ReactionEvent{{ID: "r1", BoardID: "b1", UserID: "u1", Emoji: "🎉", Timestamp: created.UnixMilli()}},
	}
}

func TestBuildSheets(t *testing.T) {
	f, err := Build(snapshot())
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetUsers, SheetBoards, SheetBoardMembers, SheetColumns, SheetCards, SheetComments, SheetReactions}, f.GetSheetList())

	members, err := f.GetRows(SheetBoardMembers)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Board ID", "User ID"}, {"b1", "u1"}, {"b1", "u2"}}, members)

	cards, err := f.GetRows(SheetCards)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "more tests", cards[1][4])
	assert.Equal(t, "u1, u2", cards[1][10])
}

func TestWriteRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, snapshot()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	users, err := f.GetRows(SheetUsers)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "a@example.com", users[1][1])
}

func TestEmptySnapshot(t *testing.T) {
	f, err := Build(&models.Snapshot{})
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetReactions)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
