package database

import (
	"path/filepath"
	"testing"

	"github.com/localnerve/retroboard/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectorPerType(t *testing.T) {
	cases := map[string]string{
		"mysql":      "mysql",
		"mariadb":    "mysql",
		"postgres":   "postgres",
		"postgresql": "postgres",
		"sqlite":     "sqlite",
		"sqlserver":  "sqlserver",
	}
	for dbType, want := range cases {
		t.Run(dbType, func(t *testing.T) {
			d, err := Dialector(&config.Config{
				DBType:     dbType,
				DBHost:     "localhost",
				DBPort:     "1234",
				DBDatabase: "retro",
				DBUser:     "u",
				DBPassword: "p w@d",
			})
			require.NoError(t, err)
			assert.Equal(t, want, d.Name())
		})
	}

	_, err := Dialector(&config.Config{DBType: "oracle"})
	assert.ErrorContains(t, err, "unsupported database type")
}

func TestSetupSchemaIsRepeatable(t *testing.T) {
	cfg := &config.Config{
		DBType:            "sqlite",
		DBDatabase:        filepath.Join(t.TempDir(), "setup.db"),
		DBConnectionLimit: 2,
	}
	db, err := Connect(cfg)
	require.NoError(t, err)
	defer Close(db)

	first, err := SetupSchema(db)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", first.Dialect)
	assert.Equal(t, len(Models), first.Migrated)
	assert.Equal(t, 4, first.Statements)

	second, err := SetupSchema(db)
	require.NoError(t, err)
	assert.Equal(t, first.Statements, second.Statements)

	for _, table := range []string{"users", "boards", "columns", "cards", "comments"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}

	var n int64
	require.NoError(t, db.Raw("SELECT count(*) FROM sqlite_master WHERE type = 'index' AND name = ?", "idx_cards_board_votes").Scan(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestSplitStatements(t *testing.T) {
	script := `-- header comment
CREATE TABLE a (x TEXT DEFAULT '--not a comment'); -- trailing
INSERT INTO a VALUES ("semi"); 

CREATE INDEX i
  ON a (x);
`
	got := SplitStatements(script)
	require.Len(t, got, 3)
	assert.Equal(t, "CREATE TABLE a (x TEXT DEFAULT '--not a comment')", got[0])
	assert.Equal(t, `INSERT INTO a VALUES ("semi")`, got[1])
	assert.Contains(t, got[2], "CREATE INDEX i")
	assert.Contains(t, got[2], "ON a (x)")
}
