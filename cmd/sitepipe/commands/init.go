package commands

import (
	"fmt"
	"path/filepath"

	"git.home.luguber.info/inful/sitepipe/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool   `help:"Overwrite existing configuration file"`
	Dir   string `short:"d" name:"dir" help:"Directory to write sitepipe.yaml into (overrides --config)"`
}

func (i *InitCmd) Run(g *Global, root *CLI) error {
	path := root.Config
	if i.Dir != "" {
		path = filepath.Join(i.Dir, config.DefaultFile)
	}
	if err := config.Init(path, i.Force); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.Stdout, "Wrote %s\n", path)
	return nil
}
