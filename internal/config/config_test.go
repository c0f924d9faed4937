package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Device.MeshShading || cfg.Device.TaskShading || cfg.Device.Probe {
		t.Errorf("expected no device capabilities by default, got %+v", cfg.Device)
	}
	if cfg.Meshlet.MaxVertices != 64 {
		t.Errorf("expected max meshlet vertices 64, got %d", cfg.Meshlet.MaxVertices)
	}
	if cfg.Meshlet.MaxTriangles != 124 {
		t.Errorf("expected max meshlet triangles 124, got %d", cfg.Meshlet.MaxTriangles)
	}
	if cfg.Optimizer.CacheSize != 16 {
		t.Errorf("expected cache size 16, got %d", cfg.Optimizer.CacheSize)
	}
	if cfg.Optimizer.OverdrawThreshold != 1.05 {
		t.Errorf("expected overdraw threshold 1.05, got %f", cfg.Optimizer.OverdrawThreshold)
	}
	if cfg.Batch.Extension != ".mfrg" {
		t.Errorf("expected extension .mfrg, got %s", cfg.Batch.Extension)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "meshprep.yaml")

	yamlContent := `
device:
  mesh_shading: true
  task_shading: true

meshlet:
  max_vertices: 128
  max_triangles: 256

optimizer:
  cache_size: 32
  overdraw_threshold: 1.1

batch:
  workers: 8
  output_dir: "out"

logging:
  level: "debug"
  log_file: "meshprep.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if !cfg.Device.MeshShading || !cfg.Device.TaskShading {
		t.Errorf("expected mesh and task shading, got %+v", cfg.Device)
	}
	if cfg.Meshlet.MaxVertices != 128 || cfg.Meshlet.MaxTriangles != 256 {
		t.Errorf("expected meshlet limits 128/256, got %+v", cfg.Meshlet)
	}
	if cfg.Optimizer.CacheSize != 32 {
		t.Errorf("expected cache size 32, got %d", cfg.Optimizer.CacheSize)
	}
	if cfg.Optimizer.OverdrawThreshold != 1.1 {
		t.Errorf("expected threshold 1.1, got %f", cfg.Optimizer.OverdrawThreshold)
	}
	if cfg.Batch.Workers != 8 || cfg.Batch.OutputDir != "out" {
		t.Errorf("expected 8 workers into out, got %+v", cfg.Batch)
	}
	// Not in the file: default survives the merge.
	if cfg.Batch.Extension != ".mfrg" {
		t.Errorf("expected default extension to survive, got %s", cfg.Batch.Extension)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "meshprep.log" {
		t.Errorf("expected log file 'meshprep.log', got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromTOMLFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "meshprep.toml")
	tomlContent := `
[device]
mesh_shading = true

[meshlet]
max_vertices = 96
max_triangles = 64

[optimizer]
cache_size = 24
`
	if err := os.WriteFile(configPath, []byte(tomlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if !cfg.Device.MeshShading || cfg.Device.TaskShading {
		t.Errorf("expected mesh shading only, got %+v", cfg.Device)
	}
	if cfg.Meshlet.MaxVertices != 96 || cfg.Meshlet.MaxTriangles != 64 {
		t.Errorf("expected meshlet limits 96/64, got %+v", cfg.Meshlet)
	}
	if cfg.Optimizer.CacheSize != 24 {
		t.Errorf("expected cache size 24, got %d", cfg.Optimizer.CacheSize)
	}
	if cfg.Optimizer.OverdrawThreshold != 1.05 {
		t.Errorf("expected default threshold to survive, got %f", cfg.Optimizer.OverdrawThreshold)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "invalid.yaml")

	invalidYAML := `
meshlet:
  max_vertices: not a number
  invalid syntax here
`
	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFromFile(cfg, "/nonexistent/path/meshprep.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"cache too small", func(c *Config) { c.Optimizer.CacheSize = 2 }},
		{"threshold below one", func(c *Config) { c.Optimizer.OverdrawThreshold = 0.9 }},
		{"meshlet vertices too small", func(c *Config) { c.Meshlet.MaxVertices = 2 }},
		{"meshlet vertices too large", func(c *Config) { c.Meshlet.MaxVertices = 300 }},
		{"meshlet triangles zero", func(c *Config) { c.Meshlet.MaxTriangles = 0 }},
		{"no workers", func(c *Config) { c.Batch.Workers = 0 }},
		{"task without mesh", func(c *Config) { c.Device.TaskShading = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))
	os.Chdir(tmpDir)

	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	configPath := filepath.Join(tmpDir, "meshprep.toml")
	if err := os.WriteFile(configPath, []byte("[optimizer]\ncache_size = 20\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}
	if path := findConfigFile(); path == "" {
		t.Error("expected to find meshprep.toml in current directory")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	for _, ext := range []string{".yaml", ".toml"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", "meshprep"+ext)
			cfg := Default()
			cfg.Device.MeshShading = true
			cfg.Meshlet.MaxTriangles = 96

			if err := cfg.SaveTo(path); err != nil {
				t.Fatalf("SaveTo: %v", err)
			}
			got := &Config{}
			if err := loadFromFile(got, path); err != nil {
				t.Fatalf("loadFromFile: %v", err)
			}
			if *got != *cfg {
				t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, cfg)
			}
		})
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*testing.T, *Config)
		teardown func()
	}{
		{
			name:  "debug flag",
			setup: func() { *flagDebug = true },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() { *flagDebug = false },
		},
		{
			name:  "mesh shading flag",
			setup: func() { *flagMeshShading = true },
			verify: func(t *testing.T, cfg *Config) {
				if !cfg.Device.MeshShading || cfg.Device.TaskShading {
					t.Errorf("expected mesh shading only, got %+v", cfg.Device)
				}
			},
			teardown: func() { *flagMeshShading = false },
		},
		{
			name:  "task shading implies mesh shading",
			setup: func() { *flagTaskShading = true },
			verify: func(t *testing.T, cfg *Config) {
				if !cfg.Device.MeshShading || !cfg.Device.TaskShading {
					t.Errorf("expected mesh and task shading, got %+v", cfg.Device)
				}
			},
			teardown: func() { *flagTaskShading = false },
		},
		{
			name:  "workers and output flags",
			setup: func() { *flagWorkers = 12; *flagOutput = "prepared" },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Batch.Workers != 12 {
					t.Errorf("expected 12 workers, got %d", cfg.Batch.Workers)
				}
				if cfg.Batch.OutputDir != "prepared" {
					t.Errorf("expected output dir prepared, got %s", cfg.Batch.OutputDir)
				}
			},
			teardown: func() { *flagWorkers = 0; *flagOutput = "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)
			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "meshprep.yaml")
	yamlContent := `
optimizer:
  cache_size: 24
batch:
  workers: 2
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	*flagWorkers = 6
	defer func() {
		*flagConfig = ""
		*flagWorkers = 0
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Workers from flag (6), not file (2).
	if cfg.Batch.Workers != 6 {
		t.Errorf("expected 6 workers from flag, got %d", cfg.Batch.Workers)
	}
	// Cache size from file since no flag override.
	if cfg.Optimizer.CacheSize != 24 {
		t.Errorf("expected cache size 24 from file, got %d", cfg.Optimizer.CacheSize)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "meshprep.yaml")
	if err := os.WriteFile(configPath, []byte("meshlet:\n  max_vertices: 1000\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	*flagConfig = configPath
	defer func() { *flagConfig = "" }()

	if _, err := Load(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}
