package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/sitepipe/cmd/sitepipe/commands"
	"git.home.luguber.info/inful/sitepipe/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepipe/internal/version"
)

func main() {
	var cli commands.CLI
	kctx := kong.Parse(&cli,
		kong.Name("sitepipe"),
		kong.Description("Static site generation through configurable document pipelines."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.Bind(&cli),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := kctx.Run(&commands.Global{Context: ctx, Stdout: os.Stdout})
	stop()

	errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
