package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"git.home.luguber.info/inful/sitepipe/internal/build"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

// PipelinesCmd implements the 'pipelines' command.
type PipelinesCmd struct{}

func (p *PipelinesCmd) Run(g *Global, root *CLI) error {
	cfg, logger, err := root.loadConfig()
	if err != nil {
		return err
	}
	eng, err := build.NewService(build.WithLogger(logger)).NewEngine(cfg)
	if err != nil {
		return err
	}
	plan, err := eng.Plan()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(g.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "#\tPIPELINE\tPOLICY\tINPUT\tMODULES")
	for i, name := range plan {
		pl, _ := eng.Pipelines().Get(name)
		mods := pl.Modules()
		names := make([]string, len(mods))
		for j, m := range mods {
			names[j] = pipeline.NameOf(m)
		}
		input := pl.InputPipeline
		if input == "" {
			input = "-"
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i+1, name, pl.ErrorPolicy, input, strings.Join(names, " > "))
	}
	return tw.Flush()
}
