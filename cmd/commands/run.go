package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/rubenmavarezb/aidf/internal/config"
	"github.com/rubenmavarezb/aidf/internal/executor"
	"github.com/rubenmavarezb/aidf/internal/parallel"
	"github.com/rubenmavarezb/aidf/internal/task"
)

// NewRunCommand returns the run subcommand: the single-task or parallel
// entrypoint into the core Executor/ParallelExecutor.
func NewRunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run a task file to completion",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name:      "task",
				UsageText: "Task file path or name under .ai/tasks/pending (omitted with --parallel)",
			},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "provider", Usage: "Override provider.type"},
			&cli.IntFlag{Name: "max-iterations", Usage: "Override execution.maxIterations"},
			&cli.BoolFlag{Name: "dry-run", Usage: "Build the prompt and report it without calling the provider"},
			&cli.BoolFlag{Name: "resume", Usage: "Resume a task from .ai/tasks/blocked"},
			&cli.StringSliceFlag{Name: "parallel", Usage: "Run multiple tasks concurrently (mutually exclusive with the task argument)"},
			&cli.IntFlag{Name: "concurrency", Usage: "Concurrency cap for --parallel (default 3)"},
			&cli.BoolFlag{Name: "auto-pr", Usage: "Override permissions.autoPR"},
		},
		Action: runRun,
	}
}

func runRun(ctx context.Context, cmd *cli.Command) error {
	setupLogging(cmd.Bool("debug"))

	cfg, err := loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}
	applyRunOverrides(cfg, cmd)

	workDir, err := os.Getwd()
	if err != nil {
		return err
	}

	if parallelNames := cmd.StringSlice("parallel"); len(parallelNames) > 0 {
		return runParallel(ctx, *cfg, workDir, parallelNames, int(cmd.Int("concurrency")))
	}

	name := cmd.StringArg("task")
	if name == "" {
		return cli.Exit("usage: aidf run <task>", 2)
	}
	taskPath, err := resolveTaskPath(name, cmd.Bool("resume"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	e := executor.New(*cfg, workDir, executor.Options{DryRun: cmd.Bool("dry-run")})
	result := e.Run(ctx, taskPath)

	return reportResult(result)
}

func runParallel(ctx context.Context, cfg config.Config, workDir string, names []string, concurrency int) error {
	tasks := make([]task.Task, 0, len(names))
	for _, name := range names {
		p, err := resolveTaskPath(name, false)
		if err != nil {
			return cli.Exit(err.Error(), 2)
		}
		tasks = append(tasks, task.Task{FilePath: p})
	}

	s := parallel.New(cfg, workDir, parallel.Options{
		Concurrency: concurrency,
		OnOutput: func(name, chunk string) {
			fmt.Printf("[%s] %s", name, chunk)
		},
	})
	result := s.Run(ctx, tasks)

	exitCode := 0
	for _, r := range result.Results {
		fmt.Printf("%s: %s\n", r.Task.Name(), r.Result.Status)
		if r.Result.Status != task.StatusCompleted {
			exitCode = 1
		}
	}
	if exitCode != 0 {
		return cli.Exit("", exitCode)
	}
	return nil
}

func reportResult(result executor.Result) error {
	if result.DryRunPrompt != "" {
		fmt.Println(renderMarkdown(result.DryRunPrompt))
		return nil
	}

	switch result.Status {
	case task.StatusCompleted:
		fmt.Println(renderMarkdown(fmt.Sprintf("## Task completed\n\n%d iteration(s), %d file(s) modified.\n",
			result.Iterations, len(result.FilesModified))))
		return nil
	case task.StatusBlocked:
		fmt.Println(renderMarkdown(fmt.Sprintf("## Task blocked: %s\n\nResume with `aidf run --resume %s`.\n",
			result.BlockedReason, filepath.Base(result.TaskPath))))
		return cli.Exit("", 1)
	default:
		msg := fmt.Sprintf("[%s] %s", result.ErrorCode, result.ErrorDetails)
		if result.Error != nil && result.ErrorDetails == "" {
			msg = result.Error.Error()
		}
		return cli.Exit(msg, 1)
	}
}

func applyRunOverrides(cfg *config.Config, cmd *cli.Command) {
	if v := cmd.String("provider"); v != "" {
		cfg.Provider.Type = v
	}
	if cmd.IsSet("max-iterations") {
		cfg.Execution.MaxIterations = int(cmd.Int("max-iterations"))
	}
	if cmd.Bool("auto-pr") {
		cfg.Permissions.AutoPR = true
	}
}

// resolveTaskPath accepts either a literal path or a bare task name, and
// locates it under .ai/tasks/{pending,blocked} (blocked first when
// --resume is set, pending otherwise, falling back to the other).
func resolveTaskPath(name string, resume bool) (string, error) {
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}

	base := name
	if filepath.Ext(base) == "" {
		base += ".md"
	}

	dirs := []string{config.PendingDir(), config.BlockedDir()}
	if resume {
		dirs = []string{config.BlockedDir(), config.PendingDir()}
	}
	for _, dir := range dirs {
		candidate := filepath.Join(dir, base)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("task %q not found under %s", name, config.TasksDir())
}
