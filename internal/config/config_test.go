package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
database:
  host: db.local
  port: 5432
engine:
  status_eta_minutes:
    confirmed: 90
  location_min_interval_seconds: 2
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "db.local", cfg.Database.Host)
	require.Equal(t, 2, cfg.Engine.LocationMinIntervalSeconds)

	d, ok := cfg.Engine.ETAFor("confirmed")
	require.True(t, ok)
	require.Equal(t, 90*time.Minute, d)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "database:\n  host: localhost\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 10, cfg.Engine.AutoProgress.ScanIntervalSeconds)
	require.Equal(t, 3, cfg.Engine.StoreRetry.Attempts)
	require.Equal(t, 16, cfg.Engine.EventBufferSize)

	_, ok := cfg.Engine.ETAFor("pending")
	require.False(t, ok)
	_, ok = cfg.Engine.ETAFor("delivered")
	require.False(t, ok)

	dwell, ok := cfg.Engine.AutoProgress.DwellFor("confirmed")
	require.True(t, ok)
	require.Equal(t, time.Minute, dwell)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoad_Malformed(t *testing.T) {
	path := writeConfig(t, "database: [not: a: map")
	_, err := Load(path)
	require.Error(t, err)
}
