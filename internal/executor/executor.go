package executor

import (
	"context"
	"time"

	"github.com/rubenmavarezb/aidf/internal/task"
)

// Run drives the task file at taskPath through PreFlight, the
// ExecutionLoop, and PostFlight, returning its terminal Result.
func (e *Executor) Run(ctx context.Context, taskPath string) Result {
	return e.run(ctx, taskPath, nil)
}

// RunWithNotifier is Run plus a PostFlight notification collaborator.
func (e *Executor) RunWithNotifier(ctx context.Context, taskPath string, notifier Notifier) Result {
	return e.run(ctx, taskPath, notifier)
}

func (e *Executor) run(ctx context.Context, taskPath string, notifier Notifier) Result {
	startedAt := time.Now()
	state := newState()

	pf, err := e.preFlight(ctx, taskPath, state)
	if err != nil {
		return Result{
			Status:   task.StatusFailed,
			TaskPath: taskPath,
			Error:    err,
		}
	}

	exit := e.executionLoop(ctx, pf, state)

	if ctx.Err() != nil && exit.status != task.StatusCompleted {
		exit = loopExit{status: task.StatusBlocked, blockedReason: "interrupted"}
	}

	result := Result{
		Status:        exit.status,
		Iterations:    state.Iteration,
		FilesModified: state.filesModifiedList(),
		TaskPath:      pf.ctx.Task.FilePath,
		BlockedReason: exit.blockedReason,
		DryRunPrompt:  exit.dryRunPrompt,
	}
	if exit.err != nil {
		result.Error = exit.err
		result.ErrorCategory = exit.err.Category
		result.ErrorCode = exit.err.Code
		result.ErrorDetails = exit.err.Error()
	}

	if e.opts.DryRun {
		return result
	}

	e.postFlight(ctx, pf.ctx.Task, state, exit, startedAt, notifier)
	return result
}
