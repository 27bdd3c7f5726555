// Package validator runs a task's pre_commit/pre_push/pre_pr shell command
// phases, each an ordered list of command strings executed through a POSIX
// shell so pipes and operators work.
package validator

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/rubenmavarezb/aidf/internal/config"
)

// Phase identifies which validation gate is running.
type Phase string

const (
	PreCommit Phase = "pre_commit"
	PrePush   Phase = "pre_push"
	PrePR     Phase = "pre_pr"
)

const (
	defaultCommandTimeout = 5 * time.Minute
	maxOutputChars        = 5000
)

// CommandResult is the outcome of one command within a phase.
type CommandResult struct {
	Command  string
	Passed   bool
	Output   string
	Duration time.Duration
	ExitCode int
}

// Result is the outcome of running a full phase.
type Result struct {
	Phase         Phase
	Passed        bool
	Results       []CommandResult
	TotalDuration time.Duration
}

// Validator executes configured command phases with mvdan's POSIX shell
// interpreter rather than shelling out to /bin/sh, so a timeout cancels the
// parsed command tree directly instead of racing a spawned child process.
type Validator struct {
	cfg     config.ValidationConfig
	workDir string
}

// New constructs a Validator bound to a working directory.
func New(cfg config.ValidationConfig, workDir string) *Validator {
	return &Validator{cfg: cfg, workDir: workDir}
}

func (v *Validator) commandsFor(phase Phase) []string {
	switch phase {
	case PreCommit:
		return v.cfg.PreCommit
	case PrePush:
		return v.cfg.PrePush
	case PrePR:
		return v.cfg.PrePR
	default:
		return nil
	}
}

// stopOnFirstFailure reports whether phase aborts at the first failing
// command. pre_pr always runs every command, for a full report.
func stopOnFirstFailure(phase Phase) bool {
	return phase != PrePR
}

// Run executes every command in the named phase. An empty phase (no
// commands configured) trivially passes.
func (v *Validator) Run(ctx context.Context, phase Phase) Result {
	commands := v.commandsFor(phase)
	result := Result{Phase: phase, Passed: true}

	for _, command := range commands {
		cr := v.runOne(ctx, command)
		result.Results = append(result.Results, cr)
		result.TotalDuration += cr.Duration
		if !cr.Passed {
			result.Passed = false
			if stopOnFirstFailure(phase) {
				slog.Warn("validator: command failed, stopping phase", "phase", phase, "command", command, "exit_code", cr.ExitCode)
				break
			}
		}
	}

	return result
}

func (v *Validator) runOne(ctx context.Context, command string) CommandResult {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, defaultCommandTimeout)
	defer cancel()

	file, err := syntax.NewParser().Parse(strings.NewReader(command), "")
	if err != nil {
		return CommandResult{
			Command:  command,
			Output:   truncate(fmt.Sprintf("parse error: %v", err)),
			ExitCode: -1,
			Duration: time.Since(start),
		}
	}

	var stdout, stderr bytes.Buffer
	runner, err := interp.New(
		interp.Dir(v.workDir),
		interp.StdIO(nil, &stdout, &stderr),
	)
	if err != nil {
		return CommandResult{
			Command:  command,
			Output:   truncate(fmt.Sprintf("interpreter error: %v", err)),
			ExitCode: -1,
			Duration: time.Since(start),
		}
	}

	runErr := runner.Run(ctx, file)
	duration := time.Since(start)

	exitCode := 0
	passed := true
	if status, ok := interp.IsExitStatus(runErr); ok {
		exitCode = int(status)
		passed = exitCode == 0
	} else if ctx.Err() != nil {
		exitCode = -1
		passed = false
	} else if runErr != nil {
		exitCode = -1
		passed = false
		fmt.Fprintf(&stderr, "\n%v", runErr)
	}

	return CommandResult{
		Command:  command,
		Passed:   passed,
		Output:   truncate(stdout.String() + "\n--- stderr ---\n" + stderr.String()),
		Duration: duration,
		ExitCode: exitCode,
	}
}

func truncate(s string) string {
	if len(s) <= maxOutputChars {
		return s
	}
	return s[:maxOutputChars]
}
