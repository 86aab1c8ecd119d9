package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/doxlab/passbot/core/config"
	coredatabase "github.com/doxlab/passbot/core/database"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
database:
  driver: sqlite
  path: ":memory:"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, coreconfig.RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, coredatabase.DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, ":memory:", cfg.Database.Path)
	assert.Equal(t, 4, cfg.Database.MaxConnections)
	require.NotNil(t, cfg.CoreConfig())
	assert.Equal(t, "123:abc", cfg.CoreConfig().Telegram.Token)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
database:
  driver: sqlite
  path: "bot.db"
`)
	t.Setenv("DB_PATH", "/var/lib/passbot/bot.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/passbot/bot.db", cfg.Database.Path)
}

func TestLoadRejectsMissingToken(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: sqlite
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsPostgresWithoutHost(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
database:
  driver: postgres
  name: passbot
`)

	_, err := Load(path)
	assert.Error(t, err)
}
