// Package provider defines the Provider contract — the seam between the
// Executor's state machine and the concrete coding-agent backend (a
// subprocess CLI or a tool-calling HTTP API) that actually produces edits.
package provider

import (
	"context"
	"fmt"

	"github.com/rubenmavarezb/aidf/internal/aidferr"
	"github.com/rubenmavarezb/aidf/internal/config"
	"github.com/rubenmavarezb/aidf/internal/convwindow"
	"github.com/rubenmavarezb/aidf/internal/task"
	"github.com/rubenmavarezb/aidf/internal/toolhandler"
)

// OutputFunc streams raw text chunks back to the caller as they're produced.
type OutputFunc func(chunk string)

// Options carries everything a provider needs for one execute() call. It
// crosses the Provider/Executor boundary and is rebuilt every iteration.
type Options struct {
	WorkDir           string
	Model             string
	MaxTokens         int
	Timeout           int // seconds
	APIKey            string
	Tools             []toolhandler.ToolSpec
	ToolHandler       *toolhandler.Handler
	ConversationState []convwindow.Message
	History           config.ConversationHistoryConfig
	Scope             task.Scope
	OnOutput          OutputFunc
}

// ExecutionResult is one provider.execute() call's outcome.
type ExecutionResult struct {
	Success           bool
	Output            string
	FilesChanged      []string
	IterationComplete bool
	Blocked           bool
	BlockReason       string
	BlockAttempted    string
	BlockSuggestion   string
	ConversationState []convwindow.Message
	Metrics           convwindow.Metrics

	// Err is populated per the spec.md §4.1 error taxonomy whenever
	// Success is false.
	Err *aidferr.Error
}

// Provider is the flat three-operation contract of spec.md §4.1. Exactly
// one of its two shapes is active per run: a subprocess CLI driver, or a
// tool-calling HTTP API driver that dispatches through ToolHandler.
type Provider interface {
	Name() string
	IsAvailable(ctx context.Context) bool
	Execute(ctx context.Context, prompt string, opts Options) ExecutionResult
}

// Factory constructs the Provider named by config.Provider.Type. Injected
// into the Executor's PreFlight so tests can substitute a fake.
type Factory func(ctx context.Context, cfg config.ProviderConfig) (Provider, error)

// BuildProvider is the default Factory, dispatching on the provider type
// string the way the rest of the pack keys construction off a config enum.
func BuildProvider(ctx context.Context, cfg config.ProviderConfig) (Provider, error) {
	switch cfg.Type {
	case "claude-cli", "cursor-cli":
		return newSubprocessProvider(cfg), nil
	case "anthropic-api":
		return newAnthropicProvider(ctx, cfg)
	case "openai-api":
		return newOpenAIProvider(ctx, cfg)
	default:
		return nil, fmt.Errorf("provider: unknown provider type %q", cfg.Type)
	}
}
