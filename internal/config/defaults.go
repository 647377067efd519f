package config

import "time"

const (
	defaultInput      = "input"
	defaultOutput     = "output"
	defaultListenAddr = ":9464"
	defaultMetrics    = "/metrics"
	defaultDebounce   = 300 * time.Millisecond
)

// applyDefaults fills unset fields. It runs after normalization so canonical
// values drive the defaults.
func applyDefaults(cfg *Config) {
	if cfg.Input == "" {
		cfg.Input = defaultInput
	}
	if cfg.Output == "" {
		cfg.Output = defaultOutput
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = LogLevelInfo
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = LogFormatText
	}
	if cfg.Metrics.ListenAddr == "" {
		cfg.Metrics.ListenAddr = defaultListenAddr
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = defaultMetrics
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = Duration(defaultDebounce)
	}
	if cfg.Settings == nil {
		cfg.Settings = map[string]any{}
	}
}
