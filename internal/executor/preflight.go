package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rubenmavarezb/aidf/internal/contextloader"
	"github.com/rubenmavarezb/aidf/internal/provider"
	"github.com/rubenmavarezb/aidf/internal/scopeguard"
	"github.com/rubenmavarezb/aidf/internal/task"
	"github.com/rubenmavarezb/aidf/internal/toolhandler"
	"github.com/rubenmavarezb/aidf/internal/validator"
)

// preFlightResult bundles everything PreFlight constructs for the loop.
type preFlightResult struct {
	ctx         contextloader.LoadedContext
	scopeGuard  *scopeguard.Guard
	validator   *validator.Validator
	provider    provider.Provider
	toolHandler *toolhandler.Handler
	resuming    bool
}

// preFlight loads context, constructs the per-run collaborators via the
// injected factory, and seeds resume state from task.BlockedStatus.
func (e *Executor) preFlight(ctx context.Context, taskPath string, state *State) (preFlightResult, error) {
	e.emitPhase(PhasePreFlight)

	loaded, err := contextloader.Load(taskPath, nil, e.cfg.Skills.Enabled, e.cfg.Skills.Directories)
	if err != nil {
		return preFlightResult{}, fmt.Errorf("load context: %w", err)
	}

	mode := task.ScopeEnforcement(e.cfg.Permissions.ScopeEnforcement)
	guard := scopeguard.New(loaded.Task.Scope, mode)
	v := validator.New(e.cfg.Validation, e.workDir)
	th := toolhandler.New(guard, e.cfg.Commands, e.workDir)

	p, err := e.opts.ProviderFactory(ctx, e.cfg.Provider)
	if err != nil {
		return preFlightResult{}, fmt.Errorf("build provider: %w", err)
	}

	resuming := false
	if bs := loaded.Task.BlockedStatus; bs != nil {
		resuming = true
		state.Iteration = bs.PreviousIteration
		for _, f := range bs.FilesModified {
			state.FilesModified[f] = true
		}
		slog.Info("executor: resuming blocked task", "task", taskPath, "previous_iteration", bs.PreviousIteration)
	}

	if e.cfg.Security.SkipPermissions && e.cfg.Security.WarnOnSkip {
		slog.Warn("executor: running with skip_permissions=true — scope and command policy enforcement is relaxed", "task", taskPath)
	}

	return preFlightResult{
		ctx:         loaded,
		scopeGuard:  guard,
		validator:   v,
		provider:    p,
		toolHandler: th,
		resuming:    resuming,
	}, nil
}
