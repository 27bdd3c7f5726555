// Package mcpserver exposes a task's LoadedContext and the toolhandler's
// tool registry to external MCP clients — a thin adapter, not part of the
// core Executor state machine (spec.md §1 "related pieces").
package mcpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rubenmavarezb/aidf/internal/config"
	"github.com/rubenmavarezb/aidf/internal/contextloader"
	"github.com/rubenmavarezb/aidf/internal/scopeguard"
	"github.com/rubenmavarezb/aidf/internal/toolhandler"
)

const serverName = "aidf"

// serverVersion is stamped at build time; "dev" is the fallback for local
// builds run straight from source.
var serverVersion = "dev"

// New builds an MCP server exposing the fixed toolhandler tool set against
// workDir, plus a context_load resource-like tool that returns a task's
// LoadedContext as JSON for clients that want to read task state directly.
func New(workDir string, guard *scopeguard.Guard, commands config.CommandsConfig, skillsEnabled bool, skillDirs []string) *mcpsdk.Server {
	server := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, nil)

	h := toolhandler.New(guard, commands, workDir)
	for _, spec := range h.Specs() {
		mcpTool := toolSpecToMCPTool(spec)
		name := spec.Name

		server.AddTool(mcpTool, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
			result, err := h.Call(ctx, name, string(req.Params.Arguments))
			if err != nil {
				slog.Debug("mcpserver: tool call error", "tool", name, "error", err)
				return &mcpsdk.CallToolResult{
					IsError: true,
					Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
				}, nil
			}
			return &mcpsdk.CallToolResult{
				IsError: result.IsError,
				Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: result.Content}},
			}, nil
		})
		slog.Debug("mcpserver: tool registered", "tool", name)
	}

	server.AddTool(loadContextTool(), func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		var args struct {
			TaskPath string `json:"task_path"`
		}
		if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
			return &mcpsdk.CallToolResult{IsError: true, Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}}}, nil
		}

		loaded, err := contextloader.Load(args.TaskPath, nil, skillsEnabled, skillDirs)
		if err != nil {
			return &mcpsdk.CallToolResult{IsError: true, Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}}}, nil
		}

		body, err := json.Marshal(loaded)
		if err != nil {
			return &mcpsdk.CallToolResult{IsError: true, Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}}}, nil
		}
		return &mcpsdk.CallToolResult{Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(body)}}}, nil
	})

	return server
}

func loadContextTool() *mcpsdk.Tool {
	return &mcpsdk.Tool{
		Name:        "context_load",
		Description: "Load a task file's AGENTS.md/role/skills/task context as JSON",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"task_path": map[string]any{
					"type":        "string",
					"description": "Path to the task markdown file",
				},
			},
			"required": []string{"task_path"},
		},
	}
}

// toolSpecToMCPTool converts a toolhandler.ToolSpec into an MCP tool with a
// JSON Schema input shape.
func toolSpecToMCPTool(spec toolhandler.ToolSpec) *mcpsdk.Tool {
	props := make(map[string]any, len(spec.Parameters))
	var required []string

	for name, p := range spec.Parameters {
		prop := map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		props[name] = prop

		if p.Required {
			required = append(required, name)
		}
	}
	sort.Strings(required)

	inputSchema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		inputSchema["required"] = required
	}

	return &mcpsdk.Tool{
		Name:        spec.Name,
		Description: spec.Description,
		InputSchema: inputSchema,
	}
}
