package toolhandler

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

const (
	defaultRunCommandTimeout = 30 * time.Second
	maxRunCommandTimeout     = 300 * time.Second
)

var runCommandSpec = ToolSpec{
	Name:        "run_command",
	Description: "Execute a shell command with configurable timeout. Returns \"Exit code: <n>\\n<combined output>\".",
	Parameters: map[string]ParamSpec{
		"command":     {Type: "string", Description: "The shell command to execute", Required: true},
		"working_dir": {Type: "string", Description: "Working directory for the command, relative to the run's working directory"},
		"timeout":     {Type: "integer", Description: "Timeout in seconds (default: 30, max: 300)"},
	},
}

type runCommandInput struct {
	Command    string `json:"command"`
	WorkingDir string `json:"working_dir"`
	Timeout    int    `json:"timeout"`
}

// runCommand applies the two-layer command policy of spec.md §4.2 before
// spawning anything, then runs the command through mvdan's POSIX shell
// interpreter so a timeout terminates execution directly.
func (h *Handler) runCommand(ctx context.Context, argumentsJSON string) (Result, error) {
	var input runCommandInput
	if err := parseArgs(argumentsJSON, &input); err != nil {
		return errResult("run_command: invalid arguments: %v", err), nil
	}
	if input.Command == "" {
		return errResult("run_command: command is required"), nil
	}

	if reason := checkCommandPolicy(input.Command, h.Commands.Allowed, h.Commands.Blocked, h.Commands.Strict); reason != "" {
		return errResult("run_command: blocked (%s)", reason), nil
	}

	timeout := defaultRunCommandTimeout
	if input.Timeout > 0 {
		timeout = time.Duration(input.Timeout) * time.Second
		if timeout > maxRunCommandTimeout {
			timeout = maxRunCommandTimeout
		}
	}

	workDir := h.WorkDir
	if input.WorkingDir != "" {
		workDir = h.resolve(input.WorkingDir)
	}

	slog.Info("run_command: executing", "command", input.Command, "timeout", timeout)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	file, err := syntax.NewParser().Parse(strings.NewReader(input.Command), "")
	if err != nil {
		return errResult("run_command: parse: %v", err), nil
	}

	var stdout, stderr bytes.Buffer
	runner, err := interp.New(
		interp.Dir(workDir),
		interp.StdIO(nil, &stdout, &stderr),
	)
	if err != nil {
		return errResult("run_command: %v", err), nil
	}

	runErr := runner.Run(ctx, file)

	exitCode := 0
	if status, ok := interp.IsExitStatus(runErr); ok {
		exitCode = int(status)
	} else if ctx.Err() != nil {
		return errResult("run_command: %v", ctx.Err()), nil
	} else if runErr != nil {
		return errResult("run_command: %v", runErr), nil
	}

	output := stdout.String()
	if stderr.Len() > 0 {
		output += "\n--- stderr ---\n" + stderr.String()
	}

	return strResult(fmt.Sprintf("Exit code: %d\n%s", exitCode, output)), nil
}
