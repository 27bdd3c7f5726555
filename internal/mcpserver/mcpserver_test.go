package mcpserver

import (
	"encoding/json"
	"testing"

	"github.com/rubenmavarezb/aidf/internal/config"
	"github.com/rubenmavarezb/aidf/internal/scopeguard"
	"github.com/rubenmavarezb/aidf/internal/task"
	"github.com/rubenmavarezb/aidf/internal/toolhandler"
)

func TestToolSpecToMCPTool(t *testing.T) {
	spec := toolhandler.ToolSpec{
		Name:        "test_tool",
		Description: "A test tool",
		Parameters: map[string]toolhandler.ParamSpec{
			"name":  {Type: "string", Description: "The name", Required: true},
			"count": {Type: "integer", Description: "A count"},
			"mode":  {Type: "string", Description: "The mode", Required: true, Enum: []string{"fast", "slow"}},
		},
	}

	mcpTool := toolSpecToMCPTool(spec)

	if mcpTool.Name != "test_tool" {
		t.Errorf("Name = %q, want %q", mcpTool.Name, "test_tool")
	}

	schemaBytes, err := json.Marshal(mcpTool.InputSchema)
	if err != nil {
		t.Fatalf("marshal InputSchema: %v", err)
	}
	var schema map[string]any
	if err := json.Unmarshal(schemaBytes, &schema); err != nil {
		t.Fatalf("unmarshal InputSchema: %v", err)
	}

	if schema["type"] != "object" {
		t.Errorf("schema type = %v, want %q", schema["type"], "object")
	}
	props, ok := schema["properties"].(map[string]any)
	if !ok || len(props) != 3 {
		t.Fatalf("schema properties = %v, want 3 entries", schema["properties"])
	}

	req, ok := schema["required"].([]any)
	if !ok || len(req) != 2 {
		t.Fatalf("schema required = %v, want 2 entries", schema["required"])
	}
	if req[0] != "mode" || req[1] != "name" {
		t.Errorf("schema required = %v, want [mode, name] (sorted)", req)
	}
}

func TestNew_RegistersFixedToolSetPlusContextLoad(t *testing.T) {
	guard := scopeguard.New(task.Scope{Allowed: []string{"src/**"}}, task.EnforcementStrict)
	server := New(t.TempDir(), guard, config.CommandsConfig{}, false, nil)
	if server == nil {
		t.Fatal("expected non-nil server")
	}
}
