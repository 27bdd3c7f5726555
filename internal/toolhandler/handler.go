package toolhandler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rubenmavarezb/aidf/internal/config"
	"github.com/rubenmavarezb/aidf/internal/scopeguard"
)

// Handler dispatches tool calls against a fixed working directory, a
// per-run ScopeGuard, and the configured command policy.
type Handler struct {
	Guard    *scopeguard.Guard
	Commands config.CommandsConfig
	WorkDir  string

	// LastSignal is set by task_complete/task_blocked and read by the
	// tool-using providers after each round of tool calls.
	LastSignal Signal
}

// New constructs a Handler.
func New(guard *scopeguard.Guard, commands config.CommandsConfig, workDir string) *Handler {
	return &Handler{Guard: guard, Commands: commands, WorkDir: workDir}
}

// Specs returns the tool declarations, for translation into each
// provider's native tool-schema format.
func Specs() []ToolSpec {
	return []ToolSpec{readFileSpec, writeFileSpec, listFilesSpec, runCommandSpec, taskCompleteSpec, taskBlockedSpec}
}

// Specs is the method form, for callers holding a *Handler rather than the
// package itself — the tool set is fixed and doesn't depend on handler state.
func (h *Handler) Specs() []ToolSpec {
	return Specs()
}

// Call dispatches one tool invocation by name.
func (h *Handler) Call(ctx context.Context, name string, argumentsJSON string) (Result, error) {
	switch name {
	case "read_file":
		return h.readFile(argumentsJSON)
	case "write_file":
		return h.writeFile(argumentsJSON)
	case "list_files":
		return h.listFiles(argumentsJSON)
	case "run_command":
		return h.runCommand(ctx, argumentsJSON)
	case "task_complete":
		return h.taskComplete(argumentsJSON)
	case "task_blocked":
		return h.taskBlocked(argumentsJSON)
	default:
		return Result{}, fmt.Errorf("toolhandler: unknown tool %q", name)
	}
}

func parseArgs(argumentsJSON string, v any) error {
	if argumentsJSON == "" {
		return nil
	}
	return json.Unmarshal([]byte(argumentsJSON), v)
}

func errResult(format string, args ...any) Result {
	return Result{IsError: true, Content: fmt.Sprintf(format, args...)}
}

func okResult(v any) Result {
	out, err := json.Marshal(v)
	if err != nil {
		return errResult("marshal result: %v", err)
	}
	return Result{Content: string(out)}
}

// strResult wraps a literal string result, for the tools whose spec gives an
// exact text template rather than a structured payload.
func strResult(s string) Result {
	return Result{Content: s}
}
