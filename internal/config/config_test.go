package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9000"
redis:
  addr: localhost:6379
quiz:
  default_time_limit: 20s
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "9000", cfg.Server.Port)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr)
	require.Equal(t, "10m", cfg.Redis.TTL)
	require.Equal(t, "20s", cfg.Quiz.DefaultTimeLimit)
	require.Equal(t, 64, cfg.WebSocket.SendBuffer)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: \"9000\"\n")
	t.Setenv("SERVER_PORT", "7000")
	t.Setenv("POSTGRES_URL", "postgres://quiz@localhost/quiz")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "7000", cfg.Server.Port)
	require.Equal(t, "postgres://quiz@localhost/quiz", cfg.Postgres.URL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestTTLDuration(t *testing.T) {
	require.Equal(t, time.Minute, TTLDuration("", time.Minute))
	require.Equal(t, 5*time.Second, TTLDuration("5s", time.Minute))
	require.Equal(t, time.Minute, TTLDuration("soon", time.Minute))
}
