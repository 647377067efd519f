package config

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/sitepipe/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

// normalize canonicalizes enumerations and trims names. Unknown enumeration
// values are validation errors rather than silent fallbacks.
func normalize(cfg *Config) error {
	if cfg.Logging.Level != "" {
		level, err := logLevelNormalizer.Parse(string(cfg.Logging.Level))
		if err != nil {
			return err
		}
		cfg.Logging.Level = level
	}
	if cfg.Logging.Format != "" {
		format, err := logFormatNormalizer.Parse(string(cfg.Logging.Format))
		if err != nil {
			return err
		}
		cfg.Logging.Format = format
	}
	for i := range cfg.Pipelines {
		p := &cfg.Pipelines[i]
		p.Name = strings.TrimSpace(p.Name)
		p.InputPipeline = strings.TrimSpace(p.InputPipeline)
		policy, err := pipeline.ParseErrorPolicy(p.ErrorPolicy)
		if err != nil {
			return err
		}
		p.ErrorPolicy = policy.String()
		for j := range p.Modules {
			p.Modules[j].Type = strings.TrimSpace(p.Modules[j].Type)
		}
	}
	return nil
}

// validate checks cross-field constraints. Dependency cycles are left to the
// engine, which reports them when planning an execution.
func validate(cfg *Config) error {
	if cfg.Parallelism < 0 {
		return errors.ValidationError("parallelism must not be negative").
			WithContext("parallelism", cfg.Parallelism).
			Build()
	}
	if cfg.Watch.Debounce < 0 || cfg.Watch.RebuildInterval < 0 {
		return errors.ValidationError("watch durations must not be negative").Build()
	}
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return errors.ValidationError("metrics path must start with /").
			WithContext("path", cfg.Metrics.Path).
			Build()
	}
	if len(cfg.Pipelines) == 0 {
		return errors.ConfigError("no pipelines configured").Build()
	}

	names := make(map[string]bool, len(cfg.Pipelines))
	for _, p := range cfg.Pipelines {
		if p.Name == "" {
			continue
		}
		key := strings.ToLower(p.Name)
		if names[key] {
			return errors.ConfigError("duplicate pipeline name").WithContext("pipeline", p.Name).Build()
		}
		names[key] = true
	}

	for i, p := range cfg.Pipelines {
		label := p.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i+1)
		}
		for _, ref := range append([]string{p.InputPipeline}, p.Dependencies...) {
			if ref == "" {
				continue
			}
			if !names[strings.ToLower(strings.TrimSpace(ref))] {
				return errors.ConfigError("pipeline references an unknown pipeline").
					WithContext("pipeline", label).
					WithContext("reference", ref).
					Build()
			}
		}
		for j, m := range p.Modules {
			if m.Type == "" {
				return errors.ConfigError(fmt.Sprintf("module %d has no type", j+1)).
					WithContext("pipeline", label).
					Build()
			}
		}
	}
	return nil
}
