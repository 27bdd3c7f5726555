// Package commands implements aidf's CLI surface — a thin adapter around
// the core Executor/ParallelExecutor/Watcher/mcpserver packages (spec.md §6).
package commands

import (
	"github.com/urfave/cli/v3"

	"github.com/rubenmavarezb/aidf/internal/config"
)

// NewRootCommand returns the top-level CLI command.
func NewRootCommand(version, commit string) *cli.Command {
	return &cli.Command{
		Name:    "aidf",
		Usage:   "Run autonomous AI coding agents against task files",
		Version: version + " (" + commit + ")",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   config.ConfigPath(),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			NewRunCommand(),
			NewMCPServeCommand(),
			NewWatchCommand(),
		},
	}
}
