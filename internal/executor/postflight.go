package executor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/rubenmavarezb/aidf/internal/config"
	"github.com/rubenmavarezb/aidf/internal/contextloader"
	"github.com/rubenmavarezb/aidf/internal/gitops"
	"github.com/rubenmavarezb/aidf/internal/task"
)

// Notifier is invoked once, in PostFlight, with the run's final status.
// External to the core state machine — a no-op Notifier is used by default.
type Notifier interface {
	Notify(ctx context.Context, taskName string, status task.Status, detail string)
}

// postFlight writes the status section back into the task file, moves it
// between lifecycle folders, and commits/pushes the result.
func (e *Executor) postFlight(ctx context.Context, t task.Task, state *State, exit loopExit, startedAt time.Time, notifier Notifier) {
	e.emitPhase(PhasePostFlight)

	body := statusBody(t, state, exit, startedAt)
	if err := contextloader.AppendStatusSection(t.FilePath, string(exit.status), body); err != nil {
		slog.Warn("executor: failed to write status section", "task", t.FilePath, "error", err)
	}

	newPath := moveTaskFile(t.FilePath, exit.status)

	git := gitops.New(e.workDir)
	if e.cfg.Permissions.AutoCommit {
		if err := git.Add(ctx, "."); err == nil {
			message := e.cfg.Git.CommitPrefix + "update task status: " + string(exit.status)
			if err := git.Commit(ctx, message); err != nil {
				slog.Warn("executor: postflight commit failed", "error", err)
			}
		}
	}
	if e.cfg.Permissions.AutoPush && exit.status == task.StatusCompleted {
		if err := git.Push(ctx); err != nil {
			slog.Warn("executor: postflight push failed", "error", err)
		}
	}

	if notifier != nil {
		notifier.Notify(ctx, t.Name(), exit.status, exit.blockedReason)
	}

	_ = newPath
}

func statusBody(t task.Task, state *State, exit loopExit, startedAt time.Time) string {
	entries := []contextloader.ExecutionLogEntry{{
		Iteration: state.Iteration,
		Summary:   summaryFor(exit),
		At:        startedAt,
	}}

	var body string
	body += contextloader.RenderExecutionLog(entries)
	body += "\n" + contextloader.RenderFilesModified(state.filesModifiedList())

	switch exit.status {
	case task.StatusBlocked:
		body += fmt.Sprintf("\n- Previous iteration: %d\n", state.Iteration)
		body += fmt.Sprintf("- Blocking issue: %s\n", exit.blockedReason)
		if files := state.filesModifiedList(); len(files) > 0 {
			body += "- Files modified: " + files[0]
			for _, f := range files[1:] {
				body += ", " + f
			}
			body += "\n"
		}
		if exit.blockedAttempted != "" {
			body += fmt.Sprintf("Attempted: %s\n", exit.blockedAttempted)
		}
		if exit.blockedSuggestion != "" {
			body += fmt.Sprintf("Suggestion: %s\n", exit.blockedSuggestion)
		}
		if state.LastScopeViolation != "" {
			body += "\n" + state.LastScopeViolation
		}
		body += "\n" + contextloader.RenderResumeInstruction(t.Name())
	case task.StatusFailed:
		if exit.err != nil {
			body += fmt.Sprintf("\nFailed: [%s] %s\n", exit.err.Code, exit.err.Error())
		}
	}

	return body
}

func summaryFor(exit loopExit) string {
	switch exit.status {
	case task.StatusCompleted:
		return "task completed"
	case task.StatusBlocked:
		return "blocked: " + exit.blockedReason
	case task.StatusFailed:
		if exit.err != nil {
			return "failed: " + exit.err.Error()
		}
		return "failed"
	default:
		return string(exit.status)
	}
}

// moveTaskFile relocates the task file between the recognized lifecycle
// folders. A file outside any recognized folder is left in place, matching
// the backward-compatibility rule of spec.md §4.6 PostFlight step 2. Move
// failure is logged, never fatal.
func moveTaskFile(path string, status task.Status) string {
	var destDir string
	switch status {
	case task.StatusCompleted:
		destDir = config.CompletedDir()
	case task.StatusBlocked, task.StatusFailed:
		destDir = config.BlockedDir()
	default:
		return path
	}

	if filepath.Dir(path) == destDir {
		return path
	}
	if !inRecognizedFolder(path) {
		return path
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		slog.Warn("executor: failed to create destination folder", "dir", destDir, "error", err)
		return path
	}
	newPath := filepath.Join(destDir, filepath.Base(path))
	if err := os.Rename(path, newPath); err != nil {
		slog.Warn("executor: failed to move task file", "from", path, "to", newPath, "error", err)
		return path
	}
	return newPath
}

func inRecognizedFolder(path string) bool {
	dir := filepath.Dir(path)
	return dir == config.PendingDir() || dir == config.CompletedDir() || dir == config.BlockedDir()
}
