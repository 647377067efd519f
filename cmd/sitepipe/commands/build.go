package commands

import (
	"fmt"
	"io"
	"time"

	"git.home.luguber.info/inful/sitepipe/internal/build"
	"git.home.luguber.info/inful/sitepipe/internal/foundation/errors"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Parallelism int  `short:"p" help:"Override the configured parallelism (0 keeps the configuration)"`
	Strict      bool `help:"Fail when any document fails under the continue policy"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, logger, err := root.loadConfig()
	if err != nil {
		return err
	}
	if b.Parallelism > 0 {
		cfg.Parallelism = b.Parallelism
	}

	svc := build.NewService(build.WithLogger(logger))
	eng, err := svc.NewEngine(cfg)
	if err != nil {
		return err
	}
	res, err := svc.Run(g.Context, eng)
	if err != nil {
		return err
	}
	printSummary(g.Stdout, res)
	if b.Strict && res.Status == build.StatusDegraded {
		return errors.PipelineError("build completed with document failures").
			WithContext("status", string(res.Status)).
			Build()
	}
	return nil
}

func printSummary(w io.Writer, res *build.Result) {
	exec := res.Execution
	_, _ = fmt.Fprintf(w, "Build %s in %s: %d documents, %d changed\n",
		res.Status, res.Duration.Round(time.Millisecond), exec.Documents(), exec.Changed())
	for _, pr := range exec.Pipelines {
		state := "ran"
		if pr.Skipped {
			state = "kept"
		}
		_, _ = fmt.Fprintf(w, "  %-20s %-4s %5d docs %5d changed %5d removed %3d failed\n",
			pr.Name, state, pr.Documents, pr.Changed, pr.Removed, len(pr.Failures))
	}
}
