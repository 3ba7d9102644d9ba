package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/carebook-portal/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	t.Setenv("FOLDER", t.TempDir())
	t.Setenv("CAREBOOK_API_URL", "")
	t.Setenv("STORAGE", "")

	c := config.New()
	require.Equal(t, "https://carebook.example.com/api/v1", c.GetAPIBaseURL())
	require.Equal(t, "https://carebook.example.com/api/token", c.GetTokenBaseURL())
	require.Equal(t, "file", c.GetStorageBackend())
	require.Equal(t, 5*time.Minute, c.GetRefreshLeadTime())
	require.Equal(t, 5*time.Hour, c.GetFallbackTokenLifetime())
	require.Equal(t, 7*24*time.Hour, c.GetDefaultRefreshTokenLifetime())
}

func TestConfig_BrokenDefaultFileIsLogged(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FOLDER", dir)
	t.Setenv("STORAGE", "")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("storage: [sqlite\n"), 0o600))

	var buf bytes.Buffer
	c := config.NewWithLogger(zerolog.New(&buf))
	require.Equal(t, "file", c.GetStorageBackend())
	require.Contains(t, buf.String(), "ignoring unreadable config file")
	require.Contains(t, buf.String(), "config.yaml")
}

func TestConfig_FileAndEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	err := os.WriteFile(path, []byte("api_url: https://file.example.com/api/v1/\nstorage: SQLite\nlog_level: debug\n"), 0o600)
	require.NoError(t, err)

	t.Setenv("CAREBOOK_API_URL", "")
	t.Setenv("STORAGE", "")
	t.Setenv("LOG_LEVEL", "warn")

	c, err := config.NewWithFile(path)
	require.NoError(t, err)
	require.Equal(t, "https://file.example.com/api/v1", c.GetAPIBaseURL())
	require.Equal(t, "sqlite", c.GetStorageBackend())
	require.Equal(t, "warn", c.GetLogLevel())
}

func TestLoadFile(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		f, err := config.LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
		require.Nil(t, f)
	})

	t.Run("bad yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("api_url: [unterminated"), 0o600))
		_, err := config.LoadFile(path)
		require.Error(t, err)
	})
}
