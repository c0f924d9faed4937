// Package config handles mesh preparation settings.
package config

import (
	"errors"
	"fmt"

	"github.com/Faultbox/midgard-meshprep/pkg/meshopt"
)

// Config holds all preparation settings.
type Config struct {
	Device    DeviceConfig    `yaml:"device" toml:"device"`
	Meshlet   MeshletConfig   `yaml:"meshlet" toml:"meshlet"`
	Optimizer OptimizerConfig `yaml:"optimizer" toml:"optimizer"`
	Batch     BatchConfig     `yaml:"batch" toml:"batch"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
}

// DeviceConfig describes the target GPU. When Probe is set the flags are
// read from a live OpenGL context instead.
type DeviceConfig struct {
	MeshShading bool `yaml:"mesh_shading" toml:"mesh_shading"`
	TaskShading bool `yaml:"task_shading" toml:"task_shading"`
	Probe       bool `yaml:"probe" toml:"probe"`
}

// MeshletConfig bounds the size of generated meshlets.
type MeshletConfig struct {
	MaxVertices  int `yaml:"max_vertices" toml:"max_vertices"`
	MaxTriangles int `yaml:"max_triangles" toml:"max_triangles"`
}

// OptimizerConfig tunes the index reordering passes.
type OptimizerConfig struct {
	CacheSize         int     `yaml:"cache_size" toml:"cache_size"`
	OverdrawThreshold float32 `yaml:"overdraw_threshold" toml:"overdraw_threshold"`
}

// BatchConfig controls directory-wide preparation.
type BatchConfig struct {
	Workers   int    `yaml:"workers" toml:"workers"`
	Extension string `yaml:"extension" toml:"extension"` // Fragment file extension
	OutputDir string `yaml:"output_dir" toml:"output_dir"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level" toml:"level"`
	LogFile    string `yaml:"log_file" toml:"log_file"`
	MaxSizeMB  int    `yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" toml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" toml:"max_age_days"`
	Compress   bool   `yaml:"compress" toml:"compress"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{},
		Meshlet: MeshletConfig{
			MaxVertices:  meshopt.DefaultMaxMeshletVertices,
			MaxTriangles: meshopt.DefaultMaxMeshletTriangles,
		},
		Optimizer: OptimizerConfig{
			CacheSize:         meshopt.DefaultCacheSize,
			OverdrawThreshold: meshopt.DefaultOverdrawThreshold,
		},
		Batch: BatchConfig{
			Workers:   4,
			Extension: ".mfrg",
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  20,
			MaxBackups: 5,
			MaxAgeDays: 14,
			Compress:   true,
		},
	}
}

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Optimizer.CacheSize < 4 {
		return fmt.Errorf("%w: optimizer.cache_size %d, want >= 4", ErrInvalidConfig, c.Optimizer.CacheSize)
	}
	if c.Optimizer.OverdrawThreshold < 1 {
		return fmt.Errorf("%w: optimizer.overdraw_threshold %.3f, want >= 1", ErrInvalidConfig, c.Optimizer.OverdrawThreshold)
	}
	if err := meshopt.ValidateMeshletLimits(c.Meshlet.MaxVertices, c.Meshlet.MaxTriangles); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Batch.Workers < 1 {
		return fmt.Errorf("%w: batch.workers %d, want >= 1", ErrInvalidConfig, c.Batch.Workers)
	}
	if c.Device.TaskShading && !c.Device.MeshShading {
		return fmt.Errorf("%w: device.task_shading requires device.mesh_shading", ErrInvalidConfig)
	}
	return nil
}
