package provider

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"

	"github.com/rubenmavarezb/aidf/internal/aidferr"
	"github.com/rubenmavarezb/aidf/internal/config"
	"github.com/rubenmavarezb/aidf/internal/convwindow"
	"github.com/rubenmavarezb/aidf/internal/toolhandler"
)

const (
	defaultAnthropicModel     = "claude-sonnet-4-6"
	defaultAnthropicMaxTokens = 4096
)

// anthropicProvider is a tool-using provider: it runs an inner loop against
// Anthropic's Messages API directly (not through eino's model abstraction,
// since tool dispatch here targets our own ToolHandler rather than eino's
// tool.InvokableTool registry), dispatching each tool_use block through
// ToolHandler and feeding results back until the model ends its turn or
// calls task_complete/task_blocked.
type anthropicProvider struct {
	client anthropic.Client
	cfg    config.ProviderConfig
}

func newAnthropicProvider(ctx context.Context, cfg config.ProviderConfig) (*anthropicProvider, error) {
	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	opts = append(opts, option.WithRequestTimeout(120*time.Second))

	return &anthropicProvider{
		client: anthropic.NewClient(opts...),
		cfg:    cfg,
	}, nil
}

func (p *anthropicProvider) Name() string { return "anthropic-api" }

func (p *anthropicProvider) IsAvailable(ctx context.Context) bool {
	return p.cfg.APIKey != "" || p.cfg.BaseURL != ""
}

func (p *anthropicProvider) Execute(ctx context.Context, prompt string, opts Options) ExecutionResult {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(opts.Timeout)*time.Second)
		defer cancel()
	}

	modelName := opts.Model
	if modelName == "" {
		modelName = defaultAnthropicModel
	}
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	messages := append([]convwindow.Message{}, opts.ConversationState...)
	messages = append(messages, convwindow.Message{Role: "user", Content: prompt})

	tools := anthropicToolParams(opts.Tools)

	var lastMetrics convwindow.Metrics

	for {
		params := anthropic.MessageNewParams{
			Model:     anthropic.Model(modelName),
			MaxTokens: int64(maxTokens),
			Messages:  toAnthropicMessages(messages),
			Tools:     tools,
		}

		resp, err := p.client.Messages.New(ctx, params)
		if err != nil {
			return ExecutionResult{Success: false, Err: classifyAnthropicError(err), ConversationState: messages}
		}

		assistantMsg, toolUses, text := fromAnthropicResponse(resp)
		if opts.OnOutput != nil && text != "" {
			opts.OnOutput(text)
		}
		messages = append(messages, assistantMsg)

		if len(toolUses) == 0 {
			return ExecutionResult{
				Success:           true,
				Output:            text,
				ConversationState: messages,
				Metrics:           lastMetrics,
			}
		}

		for _, tu := range toolUses {
			result, callErr := opts.ToolHandler.Call(ctx, tu.Name, tu.ArgsJSON)
			if callErr != nil {
				result.IsError = true
				result.Content = callErr.Error()
			}
			messages = append(messages, convwindow.Message{
				Role:       "tool",
				Content:    result.Content,
				ToolCallID: tu.ID,
				ToolUseID:  tu.ID,
			})
		}

		if opts.ToolHandler.LastSignal.Complete {
			return ExecutionResult{
				Success:           true,
				Output:            text,
				IterationComplete: true,
				ConversationState: messages,
				Metrics:           lastMetrics,
			}
		}
		if opts.ToolHandler.LastSignal.Blocked {
			return ExecutionResult{
				Success:           true,
				Output:            text,
				Blocked:           true,
				BlockReason:       opts.ToolHandler.LastSignal.Reason,
				BlockAttempted:    opts.ToolHandler.LastSignal.Attempted,
				BlockSuggestion:   opts.ToolHandler.LastSignal.Suggestion,
				ConversationState: messages,
				Metrics:           lastMetrics,
			}
		}

		window := convwindow.New(convwindow.Config{
			MaxMessages:         opts.History.MaxMessages,
			PreserveHead:        opts.History.PreserveHead,
			PreserveTail:        opts.History.PreserveTail,
			SummarizeOnTrim:     opts.History.SummarizeOnTrim,
			SummarizerMaxTokens: opts.History.SummarizerMaxTokens,
			SummarizeEveryN:     opts.History.SummarizeEveryN,
		}, nil)
		messages, lastMetrics = window.Trim(ctx, messages)

		if ctx.Err() != nil {
			return ExecutionResult{
				Success:           false,
				Err:               aidferr.New(aidferr.CategoryTimeout, aidferr.CodeIterationTimeout, ctx.Err()),
				ConversationState: messages,
			}
		}
	}
}

type toolUse struct {
	ID       string
	Name     string
	ArgsJSON string
}

func anthropicToolParams(specs []toolhandler.ToolSpec) []anthropic.ToolUnionParam {
	var out []anthropic.ToolUnionParam
	for _, s := range specs {
		inputSchema := anthropic.ToolInputSchemaParam{Properties: paramsToProperties(s.Parameters)}
		var required []string
		for name, p := range s.Parameters {
			if p.Required {
				required = append(required, name)
			}
		}
		inputSchema.Required = required

		tp := anthropic.ToolUnionParamOfTool(inputSchema, s.Name)
		if tp.OfTool != nil {
			tp.OfTool.Description = param.NewOpt(s.Description)
		}
		out = append(out, tp)
	}
	return out
}

func paramsToProperties(params map[string]toolhandler.ParamSpec) map[string]any {
	props := make(map[string]any, len(params))
	for name, p := range params {
		prop := map[string]any{"type": p.Type, "description": p.Description}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		props[name] = prop
	}
	return props
}

func toAnthropicMessages(messages []convwindow.Message) []anthropic.MessageParam {
	var out []anthropic.MessageParam
	for _, m := range messages {
		switch m.Role {
		case "user":
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case "assistant":
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		case "tool":
			out = append(out, anthropic.NewUserMessage(anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false)))
		}
	}
	return out
}

func fromAnthropicResponse(resp *anthropic.Message) (convwindow.Message, []toolUse, string) {
	var text strings.Builder
	var uses []toolUse
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			argsJSON, err := json.Marshal(block.Input)
			if err != nil {
				argsJSON = []byte("{}")
			}
			uses = append(uses, toolUse{ID: block.ID, Name: block.Name, ArgsJSON: string(argsJSON)})
		}
	}
	return convwindow.Message{Role: "assistant", Content: text.String()}, uses, text.String()
}

func classifyAnthropicError(err error) *aidferr.Error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 401, 403:
			return aidferr.New(aidferr.CategoryPermission, aidferr.CodePermissionAuth, err)
		case 429:
			return aidferr.New(aidferr.CategoryProvider, aidferr.CodeProviderRateLimit, err)
		default:
			return aidferr.New(aidferr.CategoryProvider, aidferr.CodeProviderAPIError, err).
				WithContext("status_code", apiErr.StatusCode)
		}
	}
	return aidferr.New(aidferr.CategoryProvider, aidferr.CodeProviderAPIError, err)
}

var _ Provider = (*anthropicProvider)(nil)
