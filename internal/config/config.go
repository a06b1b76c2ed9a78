// Package config loads the converter's YAML configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/astei/schem2mesh/stream"
)

const (
	EnvConfig    = "SCHEM2MESH_CONFIG"
	EnvThreshold = "SCHEM2MESH_THRESHOLD"
	EnvWorkers   = "SCHEM2MESH_WORKERS"
)

type Config struct {
	Stream StreamConfig `yaml:"stream"`
	Mesh   MeshConfig   `yaml:"mesh"`
	Log    LogConfig    `yaml:"log"`
}

type StreamConfig struct {
	ThresholdCells int `yaml:"threshold_cells"`
	ChunkLayers    int `yaml:"chunk_layers"`
	Workers        int `yaml:"workers"`
}

type MeshConfig struct {
	Greedy *bool `yaml:"greedy"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func Default() *Config {
	greedy := true
	return &Config{
		Stream: StreamConfig{
			ThresholdCells: stream.DefaultThresholdCells,
			ChunkLayers:    stream.DefaultChunkLayers,
			Workers:        runtime.GOMAXPROCS(0),
		},
		Mesh: MeshConfig{Greedy: &greedy},
		Log:  LogConfig{Level: "info"},
	}
}

// Load reads a YAML file over the defaults. An empty path falls back to $SCHEM2MESH_CONFIG; when
// that is unset too, only the defaults and environment overrides apply.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}

	cfg.Stream.ThresholdCells = intWithEnvFallback(cfg.Stream.ThresholdCells, EnvThreshold, stream.DefaultThresholdCells)
	cfg.Stream.Workers = intWithEnvFallback(cfg.Stream.Workers, EnvWorkers, runtime.GOMAXPROCS(0))
	if cfg.Stream.ChunkLayers <= 0 {
		cfg.Stream.ChunkLayers = stream.DefaultChunkLayers
	}
	if cfg.Mesh.Greedy == nil {
		greedy := true
		cfg.Mesh.Greedy = &greedy
	}
	if _, err := cfg.Log.SlogLevel(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// intWithEnvFallback prefers a set environment variable, then the configured value, then def.
func intWithEnvFallback(configured int, env string, def int) int {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	if configured > 0 {
		return configured
	}
	return def
}

func (c *Config) StreamConfig() stream.Config {
	return stream.Config{
		ThresholdCells: c.Stream.ThresholdCells,
		ChunkLayers:    c.Stream.ChunkLayers,
		Workers:        c.Stream.Workers,
	}
}

func (c *Config) Greedy() bool {
	return c.Mesh.Greedy == nil || *c.Mesh.Greedy
}

func (l LogConfig) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(l.Level) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("config: unknown log level %q", l.Level)
}
