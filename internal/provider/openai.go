package provider

import (
	"context"
	"strings"
	"time"

	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/rubenmavarezb/aidf/internal/aidferr"
	"github.com/rubenmavarezb/aidf/internal/config"
	"github.com/rubenmavarezb/aidf/internal/convwindow"
	"github.com/rubenmavarezb/aidf/internal/toolhandler"
)

const defaultOpenAIModel = "gpt-4o"

// openAIProvider is a tool-using provider built on eino-ext's OpenAI chat
// model component, the same construction the rest of the pack uses for
// OpenAI-compatible endpoints. Unlike the Anthropic provider it goes
// through eino's model.ToolCallingChatModel interface rather than a raw
// HTTP client, since eino-ext already carries the tool-schema marshaling
// this component needs.
type openAIProvider struct {
	model model.ToolCallingChatModel
	cfg   config.ProviderConfig
}

func newOpenAIProvider(ctx context.Context, cfg config.ProviderConfig) (*openAIProvider, error) {
	modelCfg := &einoopenai.ChatModelConfig{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		Timeout: 60 * time.Second,
	}
	if modelCfg.Model == "" {
		modelCfg.Model = defaultOpenAIModel
	}
	if cfg.BaseURL != "" {
		modelCfg.BaseURL = cfg.BaseURL
	}

	m, err := einoopenai.NewChatModel(ctx, modelCfg)
	if err != nil {
		return nil, err
	}
	return &openAIProvider{model: m, cfg: cfg}, nil
}

func (p *openAIProvider) Name() string { return "openai-api" }

func (p *openAIProvider) IsAvailable(ctx context.Context) bool {
	return p.cfg.APIKey != "" || p.cfg.BaseURL != ""
}

func (p *openAIProvider) Execute(ctx context.Context, prompt string, opts Options) ExecutionResult {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(opts.Timeout)*time.Second)
		defer cancel()
	}

	toolModel, err := p.model.WithTools(toEinoToolInfos(opts.Tools))
	if err != nil {
		return ExecutionResult{Success: false, Err: aidferr.New(aidferr.CategoryConfig, aidferr.CodeConfigInvalid, err)}
	}

	messages := append([]convwindow.Message{}, opts.ConversationState...)
	messages = append(messages, convwindow.Message{Role: "user", Content: prompt})

	var lastMetrics convwindow.Metrics

	for {
		resp, err := toolModel.Generate(ctx, toEinoMessages(messages))
		if err != nil {
			return ExecutionResult{Success: false, Err: classifyOpenAIError(err), ConversationState: messages}
		}

		if opts.OnOutput != nil && resp.Content != "" {
			opts.OnOutput(resp.Content)
		}
		messages = append(messages, convwindow.Message{Role: "assistant", Content: resp.Content})

		if len(resp.ToolCalls) == 0 {
			return ExecutionResult{Success: true, Output: resp.Content, ConversationState: messages, Metrics: lastMetrics}
		}

		for _, tc := range resp.ToolCalls {
			result, callErr := opts.ToolHandler.Call(ctx, tc.Function.Name, tc.Function.Arguments)
			if callErr != nil {
				result.IsError = true
				result.Content = callErr.Error()
			}
			messages = append(messages, convwindow.Message{
				Role:       "tool",
				Content:    result.Content,
				ToolCallID: tc.ID,
				ToolUseID:  tc.ID,
			})
		}

		if opts.ToolHandler.LastSignal.Complete {
			return ExecutionResult{Success: true, Output: resp.Content, IterationComplete: true, ConversationState: messages, Metrics: lastMetrics}
		}
		if opts.ToolHandler.LastSignal.Blocked {
			return ExecutionResult{
				Success:           true,
				Output:            resp.Content,
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
			return ExecutionResult{Success: false, Err: aidferr.New(aidferr.CategoryTimeout, aidferr.CodeIterationTimeout, ctx.Err()), ConversationState: messages}
		}
	}
}

func toEinoToolInfos(specs []toolhandler.ToolSpec) []*schema.ToolInfo {
	var out []*schema.ToolInfo
	for _, s := range specs {
		params := make(map[string]*schema.ParameterInfo, len(s.Parameters))
		for name, p := range s.Parameters {
			params[name] = &schema.ParameterInfo{
				Type:     toEinoDataType(p.Type),
				Desc:     p.Description,
				Required: p.Required,
				Enum:     p.Enum,
			}
		}
		out = append(out, &schema.ToolInfo{
			Name:        s.Name,
			Desc:        s.Description,
			ParamsOneOf: schema.NewParamsOneOfByParams(params),
		})
	}
	return out
}

func toEinoDataType(t string) schema.DataType {
	switch t {
	case "string":
		return schema.String
	case "number":
		return schema.Number
	case "integer":
		return schema.Integer
	case "boolean":
		return schema.Boolean
	case "array":
		return schema.Array
	case "object":
		return schema.Object
	default:
		return schema.String
	}
}

func toEinoMessages(messages []convwindow.Message) []*schema.Message {
	var out []*schema.Message
	for _, m := range messages {
		switch m.Role {
		case "user":
			out = append(out, &schema.Message{Role: schema.User, Content: m.Content})
		case "assistant":
			out = append(out, &schema.Message{Role: schema.Assistant, Content: m.Content})
		case "tool":
			out = append(out, &schema.Message{Role: schema.Tool, Content: m.Content, ToolCallID: m.ToolCallID})
		}
	}
	return out
}

func classifyOpenAIError(err error) *aidferr.Error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "401") || strings.Contains(msg, "403"):
		return aidferr.New(aidferr.CategoryPermission, aidferr.CodePermissionAuth, err)
	case strings.Contains(msg, "429"):
		return aidferr.New(aidferr.CategoryProvider, aidferr.CodeProviderRateLimit, err)
	default:
		return aidferr.New(aidferr.CategoryProvider, aidferr.CodeProviderAPIError, err)
	}
}

var _ Provider = (*openAIProvider)(nil)
