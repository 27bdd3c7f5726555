// Package executor is the core state machine: it drives one task through
// PreFlight, an iterative ExecutionLoop against a Provider, and PostFlight.
package executor

import (
	"github.com/rubenmavarezb/aidf/internal/aidferr"
	"github.com/rubenmavarezb/aidf/internal/config"
	"github.com/rubenmavarezb/aidf/internal/convwindow"
	"github.com/rubenmavarezb/aidf/internal/provider"
	"github.com/rubenmavarezb/aidf/internal/task"
)

// PhaseEvent names a PreFlight/ExecutionLoop/PostFlight transition, for the
// OnPhase callback.
type PhaseEvent string

const (
	PhasePreFlight  PhaseEvent = "preflight"
	PhaseIteration  PhaseEvent = "iteration"
	PhasePostFlight PhaseEvent = "postflight"
)

// State is the mutable, per-run state the Executor owns exclusively. A
// snapshot is handed to OnIteration after each completed loop iteration.
type State struct {
	Status                   task.Status
	Iteration                int
	FilesModified            map[string]bool
	ConsecutiveFailures      int
	LastValidationError      string
	LastScopeViolation       string
	ConversationState        []convwindow.Message
	ConversationMessageCount int
	BlockedReason            string
}

func newState() *State {
	return &State{Status: task.StatusRunning, FilesModified: make(map[string]bool)}
}

func (s *State) filesModifiedList() []string {
	out := make([]string, 0, len(s.FilesModified))
	for f := range s.FilesModified {
		out = append(out, f)
	}
	return out
}

// Options carries the callbacks a caller may observe or steer a run with.
// All are optional.
type Options struct {
	OnPhase     func(event PhaseEvent)
	OnIteration func(state State)
	OnOutput    func(chunk string)
	OnAskUser   func(prompt string, files []string) bool

	// DryRun runs PreFlight and one simulated iteration that never calls
	// the provider; it reports the prompt that would have been sent.
	DryRun bool

	// ProviderFactory overrides provider.BuildProvider — the seam tests use
	// to substitute a fake Provider.
	ProviderFactory provider.Factory
}

// Result is the terminal outcome of one task run.
type Result struct {
	Status        task.Status
	Iterations    int
	FilesModified []string
	TaskPath      string

	Error         error
	ErrorCategory aidferr.Category
	ErrorCode     aidferr.Code
	ErrorDetails  string
	BlockedReason string

	// DryRunPrompt is populated only when Options.DryRun is set.
	DryRunPrompt string
}

// Executor drives a single task to a terminal state.
type Executor struct {
	cfg     config.Config
	workDir string
	opts    Options
}

// New constructs an Executor bound to a project working directory and
// configuration.
func New(cfg config.Config, workDir string, opts Options) *Executor {
	if opts.ProviderFactory == nil {
		opts.ProviderFactory = provider.BuildProvider
	}
	return &Executor{cfg: cfg, workDir: workDir, opts: opts}
}

func (e *Executor) emitPhase(event PhaseEvent) {
	if e.opts.OnPhase != nil {
		e.opts.OnPhase(event)
	}
}

func (e *Executor) emitIteration(s *State) {
	if e.opts.OnIteration != nil {
		e.opts.OnIteration(*s)
	}
}

func (e *Executor) emitOutput(chunk string) {
	if e.opts.OnOutput != nil {
		e.opts.OnOutput(chunk)
	}
}
