package provider

import (
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/rubenmavarezb/aidf/internal/convwindow"
	"github.com/rubenmavarezb/aidf/internal/toolhandler"
)

func TestToEinoMessages_PreservesRoleAndToolCallID(t *testing.T) {
	in := []convwindow.Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
		{Role: "tool", Content: "result", ToolCallID: "call_1"},
	}
	out := toEinoMessages(in)

	if len(out) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(out))
	}
	if out[0].Role != schema.User || out[1].Role != schema.Assistant || out[2].Role != schema.Tool {
		t.Errorf("unexpected roles: %+v %+v %+v", out[0].Role, out[1].Role, out[2].Role)
	}
	if out[2].ToolCallID != "call_1" {
		t.Errorf("ToolCallID = %q, want call_1", out[2].ToolCallID)
	}
}

func TestToEinoToolInfos_ConvertsParams(t *testing.T) {
	specs := []toolhandler.ToolSpec{
		{
			Name:        "read_file",
			Description: "Read a file",
			Parameters: map[string]toolhandler.ParamSpec{
				"path": {Type: "string", Required: true, Description: "the path"},
			},
		},
	}
	infos := toEinoToolInfos(specs)
	if len(infos) != 1 || infos[0].Name != "read_file" {
		t.Fatalf("unexpected infos: %+v", infos)
	}
}

func TestToAnthropicMessages_PreservesToolResult(t *testing.T) {
	in := []convwindow.Message{
		{Role: "tool", Content: "42", ToolCallID: "tu_1"},
	}
	out := toAnthropicMessages(in)
	if len(out) != 1 {
		t.Fatalf("expected 1 message, got %d", len(out))
	}
}
