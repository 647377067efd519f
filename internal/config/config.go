// Package config loads and validates sitepipe.yaml.
package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitepipe/internal/foundation/errors"
)

// DefaultFile is the configuration file looked up when none is given.
const DefaultFile = "sitepipe.yaml"

// Config is the root of sitepipe.yaml.
type Config struct {
	Input       string           `yaml:"input"`
	Output      string           `yaml:"output"`
	Settings    map[string]any   `yaml:"settings,omitempty"`
	Logging     LoggingConfig    `yaml:"logging"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	Watch       WatchConfig      `yaml:"watch"`
	Parallelism int              `yaml:"parallelism"`
	Pipelines   []PipelineConfig `yaml:"pipelines"`

	// BaseDir is the directory holding the configuration file. Relative
	// paths resolve against it.
	BaseDir string `yaml:"-"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// MetricsConfig controls the Prometheus endpoint served while watching.
type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
	Path       string `yaml:"path"`
}

// WatchConfig tunes the rebuild loop.
type WatchConfig struct {
	Debounce        Duration `yaml:"debounce"`
	RebuildInterval Duration `yaml:"rebuild_interval"`
	// Paths are watched in addition to Input.
	Paths []string `yaml:"paths,omitempty"`
}

// PipelineConfig declares one pipeline. An empty name is auto-assigned.
type PipelineConfig struct {
	Name          string         `yaml:"name,omitempty"`
	ErrorPolicy   string         `yaml:"error_policy,omitempty"`
	ProcessOnce   bool           `yaml:"process_once,omitempty"`
	InputPipeline string         `yaml:"input_pipeline,omitempty"`
	Dependencies  []string       `yaml:"dependencies,omitempty"`
	Metadata      map[string]any `yaml:"metadata,omitempty"`
	Modules       []ModuleConfig `yaml:"modules"`
}

// ModuleConfig names a registered module type and its options.
type ModuleConfig struct {
	Type    string         `yaml:"type"`
	Options map[string]any `yaml:"options,omitempty"`
}

// Spec returns the module as the generic mapping the module registry decodes.
func (m ModuleConfig) Spec() map[string]any {
	spec := map[string]any{"type": m.Type}
	if m.Options != nil {
		spec["options"] = m.Options
	}
	return spec
}

// ModuleSpecs returns every module of the pipeline as registry mappings.
func (p PipelineConfig) ModuleSpecs() []any {
	specs := make([]any, 0, len(p.Modules))
	for _, m := range p.Modules {
		specs = append(specs, m.Spec())
	}
	return specs
}

// ResolvePath makes a relative path absolute against BaseDir.
func (c *Config) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.BaseDir, p)
}

// InputDir is the resolved input directory.
func (c *Config) InputDir() string { return c.ResolvePath(c.Input) }

// OutputDir is the resolved output directory.
func (c *Config) OutputDir() string { return c.ResolvePath(c.Output) }

// Load reads, expands, defaults and validates the configuration at configPath.
// .env and .env.local next to the file are loaded first; variables already
// present in the environment win.
func Load(configPath string) (*Config, error) {
	dir := filepath.Dir(configPath)
	if _, err := loadEnvFiles(dir); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFoundError("configuration file not found").
				WithContext("path", configPath).
				Build()
		}
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to read configuration").
			WithContext("path", configPath).
			Build()
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	cfg.BaseDir = abs
	return cfg, nil
}

// Parse decodes configuration bytes after environment expansion, then applies
// normalization, defaults and validation. Unknown fields are rejected.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to parse configuration").Build()
	}

	if err := normalize(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
