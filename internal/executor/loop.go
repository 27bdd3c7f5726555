package executor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rubenmavarezb/aidf/internal/aidferr"
	"github.com/rubenmavarezb/aidf/internal/gitops"
	"github.com/rubenmavarezb/aidf/internal/provider"
	"github.com/rubenmavarezb/aidf/internal/scopeguard"
	"github.com/rubenmavarezb/aidf/internal/task"
	"github.com/rubenmavarezb/aidf/internal/validator"
)

// loopExit is the terminal reason the ExecutionLoop stopped, threaded into
// the final Result.
type loopExit struct {
	status            task.Status
	blockedReason     string
	blockedAttempted  string
	blockedSuggestion string
	err               *aidferr.Error
	dryRunPrompt      string
}

// executionLoop runs the 9-step iteration of spec.md §4.6 until a terminal
// state, max_iterations, or max_failures is reached.
func (e *Executor) executionLoop(ctx context.Context, pf preFlightResult, state *State) loopExit {
	git := gitops.New(e.workDir)
	ownPaths := ownedPaths(e.workDir, pf.ctx.Task.FilePath)

	for {
		if state.Iteration >= e.cfg.Execution.MaxIterations {
			return loopExit{status: task.StatusBlocked, blockedReason: "max_iterations"}
		}
		if state.ConsecutiveFailures >= e.cfg.Execution.MaxConsecutiveFailures {
			return loopExit{status: task.StatusBlocked, blockedReason: "max_failures"}
		}

		e.emitPhase(PhaseIteration)
		prompt := buildPrompt(pf.ctx, state)

		if e.opts.DryRun {
			return loopExit{status: task.StatusIdle, blockedReason: "dry_run", dryRunPrompt: prompt}
		}

		iterCtx := ctx
		var cancel context.CancelFunc
		if e.cfg.Execution.TimeoutPerIteration > 0 {
			iterCtx, cancel = context.WithTimeout(ctx, time.Duration(e.cfg.Execution.TimeoutPerIteration)*time.Second)
		}

		result := pf.provider.Execute(iterCtx, prompt, provider.Options{
			WorkDir:           e.workDir,
			Model:             e.cfg.Provider.Model,
			Timeout:           e.cfg.Execution.TimeoutPerIteration,
			APIKey:            e.cfg.Provider.APIKey,
			Tools:             pf.toolHandler.Specs(),
			ToolHandler:       pf.toolHandler,
			ConversationState: state.ConversationState,
			History:           e.cfg.Execution.Conversation,
			Scope:             pf.ctx.Task.Scope,
			OnOutput:          e.emitOutput,
		})
		if cancel != nil {
			cancel()
		}

		hasCompletionSignal := result.IterationComplete
		hasBlockSignal := result.Blocked

		for _, f := range result.FilesChanged {
			state.FilesModified[f] = true
		}

		if !result.Success {
			if exit, stop := e.branchOnError(ctx, result.Err, state); stop {
				return exit
			}
			state.ConversationState = result.ConversationState
			state.Iteration++
			e.emitIteration(state)
			continue
		}

		state.ConversationState = result.ConversationState

		// Step 5: reactive scope check against what actually landed on disk.
		if exit, reverted := e.reactiveScopeCheck(ctx, git, pf.scopeGuard, ownPaths, state); reverted {
			if exit != nil {
				return *exit
			}
			state.ConsecutiveFailures++
			state.Iteration++
			e.emitIteration(state)
			continue
		}

		// Step 6: validation.
		vr := pf.validator.Run(ctx, validator.PreCommit)
		if !vr.Passed {
			if hasCompletionSignal {
				state.LastValidationError = formatValidationReport(vr)
			}
			state.ConsecutiveFailures++
			state.Iteration++
			e.emitIteration(state)
			continue
		}
		state.LastValidationError = ""

		// Step 7: commit.
		if e.cfg.Permissions.AutoCommit {
			e.commitIteration(ctx, git, pf.ctx.Task, state)
		}

		// Step 8: completion.
		if hasCompletionSignal {
			return loopExit{status: task.StatusCompleted}
		}
		if hasBlockSignal {
			state.BlockedReason = result.BlockReason
			return loopExit{
				status:            task.StatusBlocked,
				blockedReason:     result.BlockReason,
				blockedAttempted:  result.BlockAttempted,
				blockedSuggestion: result.BlockSuggestion,
			}
		}

		// Step 9: state update.
		state.ConsecutiveFailures = 0
		state.Iteration++
		state.ConversationMessageCount = len(state.ConversationState)
		e.emitIteration(state)
	}
}

// branchOnError implements spec.md §4.6 step 4's error-branching table.
// Returns (exit, true) when the loop must stop immediately.
func (e *Executor) branchOnError(ctx context.Context, err *aidferr.Error, state *State) (loopExit, bool) {
	if err == nil {
		return loopExit{}, false
	}

	switch {
	case err.Category == aidferr.CategoryConfig || err.Category == aidferr.CategoryPermission:
		return loopExit{status: task.StatusFailed, err: err}, true
	case err.Code == aidferr.CodeProviderNotAvailable:
		return loopExit{status: task.StatusFailed, err: err}, true
	case err.Code == aidferr.CodeProviderRateLimit:
		slog.Warn("executor: provider rate limited, backing off", "error", err)
		select {
		case <-time.After(5 * time.Second):
		case <-ctx.Done():
		}
		return loopExit{}, false
	case err.Code == aidferr.CodeGitRevertFailed:
		return loopExit{status: task.StatusFailed, err: err}, true
	case err.Code == aidferr.CodeProviderCrash, err.Code == aidferr.CodeProviderAPIError, err.Category == aidferr.CategoryTimeout:
		state.ConsecutiveFailures++
		return loopExit{}, false
	default:
		if err.Retryable {
			state.ConsecutiveFailures++
		}
		return loopExit{}, false
	}
}

// reactiveScopeCheck compares the working tree against git after a provider
// turn, reverting any out-of-scope changes. Returns a non-nil *loopExit only
// when the run must stop; reverted reports whether any file was rolled back
// (the caller still counts that as a consumed iteration).
func (e *Executor) reactiveScopeCheck(ctx context.Context, git *gitops.Client, guard *scopeguard.Guard, ownPaths map[string]bool, state *State) (*loopExit, bool) {
	statuses, err := git.Status(ctx)
	if err != nil {
		slog.Warn("executor: git status failed during scope check", "error", err)
		return nil, false
	}

	var changes []scopeguard.Change
	for _, s := range statuses {
		if ownPaths[s.Path] {
			continue
		}
		changes = append(changes, scopeguard.Change{Path: s.Path, Type: changeType(s.State)})
	}
	if len(changes) == 0 {
		return nil, false
	}

	decision, _ := guard.Validate(changes)
	switch decision {
	case scopeguard.Block:
		toRevert := guard.ChangesToRevert(changes)
		if err := e.revertChanges(ctx, git, toRevert); err != nil {
			gitErr := aidferr.New(aidferr.CategoryGit, aidferr.CodeGitRevertFailed, err)
			return &loopExit{status: task.StatusFailed, err: gitErr}, true
		}
		state.LastScopeViolation = guard.GenerateViolationReport(changes)
		return nil, true
	case scopeguard.AskUser:
		if e.opts.OnAskUser != nil {
			paths := make([]string, len(changes))
			for i, c := range changes {
				paths[i] = c.Path
			}
			if e.opts.OnAskUser("One or more changes touch ask-before paths. Approve?", paths) {
				for _, c := range changes {
					guard.Approve(c.Path)
				}
				return nil, false
			}
		}
		toRevert := guard.ChangesToRevert(changes)
		_ = e.revertChanges(ctx, git, toRevert)
		return nil, true
	default:
		return nil, false
	}
}

// revertChanges undoes a set of scope-violating changes: tracked
// modifications are restored via git checkout, newly created files are
// removed directly since git checkout has nothing to restore them to.
func (e *Executor) revertChanges(ctx context.Context, git *gitops.Client, changes []scopeguard.Change) error {
	var tracked []string
	for _, c := range changes {
		if c.Type == scopeguard.Created {
			if err := os.Remove(filepath.Join(e.workDir, c.Path)); err != nil && !os.IsNotExist(err) {
				return err
			}
			continue
		}
		tracked = append(tracked, c.Path)
	}
	if len(tracked) == 0 {
		return nil
	}
	return git.Checkout(ctx, tracked...)
}

func (e *Executor) commitIteration(ctx context.Context, git *gitops.Client, t task.Task, state *State) {
	statuses, err := git.Status(ctx)
	if err != nil || len(statuses) == 0 {
		return
	}
	if err := git.Add(ctx, "."); err != nil {
		slog.Warn("executor: git add failed", "error", err)
		return
	}

	message := e.cfg.Git.CommitPrefix + truncateGoal(t.Goal, 72)
	if err := git.Commit(ctx, message); err != nil {
		// retry once, per spec.md §4.6 step 7
		if err := git.Commit(ctx, message); err != nil {
			slog.Warn("executor: commit failed after retry, continuing without committing", "error", err)
		}
	}
}

func truncateGoal(goal string, max int) string {
	goal = strings.TrimSpace(goal)
	if len(goal) <= max {
		return goal
	}
	return goal[:max]
}

func changeType(gitState string) scopeguard.ChangeType {
	switch {
	case strings.Contains(gitState, "D"):
		return scopeguard.Deleted
	case strings.Contains(gitState, "?") || strings.Contains(gitState, "A"):
		return scopeguard.Created
	default:
		return scopeguard.Modified
	}
}

// ownedPaths returns the set of repo-relative paths the executor itself
// writes to and which must never be scope-checked: the task file.
func ownedPaths(workDir, taskPath string) map[string]bool {
	rel, err := filepath.Rel(workDir, taskPath)
	if err != nil {
		rel = taskPath
	}
	rel = filepath.ToSlash(rel)
	return map[string]bool{rel: true, filepath.ToSlash(taskPath): true}
}

func formatValidationReport(r validator.Result) string {
	var sb strings.Builder
	for _, cr := range r.Results {
		if !cr.Passed {
			fmt.Fprintf(&sb, "`%s` exited %d:\n%s\n", cr.Command, cr.ExitCode, cr.Output)
		}
	}
	return strings.TrimSpace(sb.String())
}
