package devcontainer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/localnerve/retroboard/internal/database"
	"github.com/localnerve/retroboard/internal/models"
	"github.com/localnerve/retroboard/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
)

func TestWithDefaults(t *testing.T) {
	opts := withDefaults(Options{})
	assert.Equal(t, "postgres", opts.DBType)
	assert.Equal(t, PostgresImage, opts.Image)
	assert.Equal(t, "retroboard", opts.Database)

	opts = withDefaults(Options{DBType: "mysql"})
	assert.Equal(t, "mariadb", opts.DBType)
	assert.Equal(t, MariaDBImage, opts.Image)
	assert.Contains(t, initEnv(opts), "MARIADB_DATABASE")
}

func TestPostgresSetupSchema(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	c, err := Start(ctx, Options{DBType: "postgres", Tmpfs: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	db, err := database.Connect(c.Config)
	require.NoError(t, err)
	defer database.Close(db)

	res, err := database.SetupSchema(db)
	require.NoError(t, err)
	assert.Equal(t, "postgres", res.Dialect)

	_, err = database.SetupSchema(db)
	require.NoError(t, err)

	card := models.Card{ID: "c1", ColumnID: "col", BoardID: "b", VotedUserIDs: models.StringList{"u1", "u2"}, Votes: 2}
	require.NoError(t, db.Omit("Comments").Create(&card).Error)

	var got models.Card
	require.NoError(t, db.First(&got, "id = ?", "c1").Error)
	assert.Equal(t, models.StringList{"u1", "u2"}, got.VotedUserIDs)
}

func TestPostgresConcurrentCardWritesStayDense(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	c, err := Start(ctx, Options{DBType: "postgres", Tmpfs: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	db, err := database.Connect(c.Config)
	require.NoError(t, err)
	defer database.Close(db)
	_, err = database.SetupSchema(db)
	require.NoError(t, err)

	s := store.NewGormStore(db)
	board := models.Board{ID: uuid.NewString(), Title: "Race", TeamID: "team", BoardOptions: models.DefaultBoardOptions()}
	columns := []models.Column{
		{ID: uuid.NewString(), Title: "Left"},
		{ID: uuid.NewString(), Title: "Right"},
	}
	require.NoError(t, s.CreateBoard(ctx, &board, columns, nil))

	const writers = 12
	var wg sync.WaitGroup
	errs := make(chan error, writers*2)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			card := models.Card{ID: uuid.NewString(), ColumnID: columns[0].ID, BoardID: board.ID, Content: "card"}
			if err := s.CreateCard(ctx, &card); err != nil {
				errs <- err
				return
			}
			if i%2 == 0 {
				if _, err := s.MoveCard(ctx, card.ID, columns[1].ID, 0); err != nil {
					errs <- err
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	total := 0
	for _, col := range columns {
		list, err := s.ListCards(ctx, col.ID)
		require.NoError(t, err)
		for i, card := range list {
			assert.Equal(t, i, card.Position, "positions in %s must be dense", col.Title)
		}
		total += len(list)
	}
	assert.Equal(t, writers, total)
}
