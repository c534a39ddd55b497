package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsInDevMode(t *testing.T) {
	t.Setenv("ENV_FILE", "")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_TYPE", "")
	t.Setenv("DB_DATABASE", "")
	t.Setenv("PORT", "")
	t.Setenv("REACTION_WINDOW", "")
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBType)
	assert.Equal(t, "retroboard.db", cfg.DBDatabase)
	assert.NotEmpty(t, cfg.JWTSecret)
	assert.Equal(t, 60*time.Second, cfg.ReactionWindow)
	assert.False(t, cfg.IsServerDatabase())
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("ENV_FILE", "")
	t.Setenv("DEV_MODE", "false")
	t.Setenv("JWT_SECRET", "")
	t.Chdir(t.TempDir())

	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestLoadRequiresUserForServerDatabases(t *testing.T) {
	t.Setenv("ENV_FILE", "")
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("DB_TYPE", "postgres")
	t.Setenv("DB_DATABASE", "retro")
	t.Setenv("DB_USER", "")
	t.Chdir(t.TempDir())

	_, err := Load()
	assert.ErrorContains(t, err, "DB_USER")
}

func TestLoadReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, "retro.env")
	require.NoError(t, os.WriteFile(envPath, []byte("RETRO_TEST_PORT_VALUE=4100\nSESSION_TTL=2h\n"), 0o600))

	t.Setenv("ENV_FILE", envPath)
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("PORT", "")
	t.Setenv("SESSION_TTL", "")
	t.Setenv("DB_TYPE", "jsonfile")
	t.Setenv("DB_DATABASE", "")
	t.Setenv("RETRO_TEST_PORT_VALUE", "")
	// godotenv never overrides variables that already exist, even when empty
	require.NoError(t, os.Unsetenv("SESSION_TTL"))
	require.NoError(t, os.Unsetenv("RETRO_TEST_PORT_VALUE"))
	t.Chdir(dir)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "retroboard.json", cfg.DBDatabase)
	assert.Equal(t, "4100", os.Getenv("RETRO_TEST_PORT_VALUE"))
}
