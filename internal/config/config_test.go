package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astei/schem2mesh/stream"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schem2mesh.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvConfig, "")
	t.Setenv(EnvThreshold, "")
	t.Setenv(EnvWorkers, "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, stream.DefaultThresholdCells, cfg.Stream.ThresholdCells)
	assert.Equal(t, 16, cfg.Stream.ChunkLayers)
	assert.Positive(t, cfg.Stream.Workers)
	assert.True(t, cfg.Greedy())
	lvl, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)
}

func TestLoadFile(t *testing.T) {
	t.Setenv(EnvThreshold, "")
	t.Setenv(EnvWorkers, "")
	path := writeConfig(t, `
stream:
  threshold_cells: 1000
  chunk_layers: 4
  workers: 3
mesh:
  greedy: false
log:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, stream.Config{ThresholdCells: 1000, ChunkLayers: 4, Workers: 3}, cfg.StreamConfig())
	assert.False(t, cfg.Greedy())
	lvl, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)
}

func TestLoadFromEnv(t *testing.T) {
	path := writeConfig(t, "stream:\n  chunk_layers: 8\n  workers: 2\n")
	t.Setenv(EnvConfig, path)
	t.Setenv(EnvThreshold, "4096")
	t.Setenv(EnvWorkers, "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Stream.ChunkLayers)
	assert.Equal(t, 4096, cfg.Stream.ThresholdCells)
	assert.Equal(t, 2, cfg.Stream.Workers)

	t.Setenv(EnvWorkers, "not a number")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Stream.Workers)
}

func TestLoadErrors(t *testing.T) {
	t.Setenv(EnvConfig, "")
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeConfig(t, "stream: [1, 2"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "log:\n  level: loud\n"))
	assert.ErrorContains(t, err, "unknown log level")
}
