// Package commands implements the sitepipe CLI commands.
package commands

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/sitepipe/internal/config"
)

// Global carries process-wide state into every command.
type Global struct {
	Context context.Context
	Stdout  io.Writer
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"sitepipe.yaml" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build     BuildCmd     `cmd:"" help:"Execute every configured pipeline once"`
	Watch     WatchCmd     `cmd:"" help:"Build, then rebuild incrementally when inputs change"`
	Init      InitCmd      `cmd:"" help:"Write an example configuration file"`
	Pipelines PipelinesCmd `cmd:"" help:"List configured pipelines in execution order"`
}

// AfterApply runs after flag parsing and installs a logger until the
// configuration is loaded.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// loadConfig loads the configuration and replaces the default logger with
// one matching its logging section. -v forces debug.
func (c *CLI) loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(os.Stderr, cfg.Logging, c.Verbose)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func newLogger(w io.Writer, lc config.LoggingConfig, verbose bool) *slog.Logger {
	level := lc.Level.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if lc.Format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
