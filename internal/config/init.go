package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitepipe/internal/foundation/errors"
)

const exampleHeader = "# sitepipe configuration. ${VAR} references are expanded from the\n" +
	"# environment, including .env and .env.local next to this file.\n"

// Example returns the configuration written by Init.
func Example() *Config {
	return &Config{
		Input:    "./input",
		Output:   "./output",
		Settings: map[string]any{"site_title": "My Site"},
		Logging:  LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
		Metrics:  MetricsConfig{Enabled: false, ListenAddr: defaultListenAddr, Path: defaultMetrics},
		Watch:    WatchConfig{Debounce: Duration(defaultDebounce)},
		Pipelines: []PipelineConfig{
			{
				Name:        "pages",
				ErrorPolicy: "abort",
				Modules: []ModuleConfig{
					{Type: "read_files", Options: map[string]any{"root": "./input", "pattern": "**/*.md"}},
					{Type: "front_matter"},
					{Type: "title"},
					{Type: "markdown"},
					{Type: "excerpt"},
					{Type: "write_files", Options: map[string]any{"root": "./output", "extension": ".html"}},
				},
			},
			{
				Name:         "index",
				Dependencies: []string{"pages"},
				Modules: []ModuleConfig{
					{Type: "documents", Options: map[string]any{"pipelines": []any{"pages"}}},
					{Type: "order_by", Options: map[string]any{"key": "Title"}},
					{Type: "index"},
				},
			},
		},
	}
}

// Init writes the example configuration to configPath. An existing file is
// only replaced when force is set.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("path", configPath).
			Build()
	}

	data, err := yaml.Marshal(Example())
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to marshal example configuration").Build()
	}
	data = append([]byte(exampleHeader), data...)

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write configuration").
			WithContext("path", configPath).
			Build()
	}
	return nil
}
