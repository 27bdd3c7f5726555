package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/rubenmavarezb/aidf/internal/config"
	"github.com/rubenmavarezb/aidf/internal/executor"
	"github.com/rubenmavarezb/aidf/internal/watcher"
)

// NewWatchCommand returns the watch subcommand, feeding every task file
// dropped into .ai/tasks/pending to the Executor (spec.md §4.8).
func NewWatchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Watch .ai/tasks/pending and run new or edited task files automatically",
		Action: runWatch,
	}
}

func runWatch(ctx context.Context, cmd *cli.Command) error {
	setupLogging(cmd.Bool("debug"))

	cfg, err := loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	workDir, err := os.Getwd()
	if err != nil {
		return err
	}

	runner := watcher.RunnerFunc(func(ctx context.Context, taskPath string) error {
		result := executor.New(*cfg, workDir, executor.Options{}).Run(ctx, taskPath)
		fmt.Printf("%s: %s\n", taskPath, result.Status)
		if result.Error != nil {
			return result.Error
		}
		return nil
	})

	w := watcher.New(config.PendingDir(), runner, watcher.Options{
		OnError: func(path string, err error) {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		},
	})
	return w.Run(ctx)
}
