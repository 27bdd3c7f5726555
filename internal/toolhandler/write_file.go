package toolhandler

import (
	"os"
	"path/filepath"

	"github.com/rubenmavarezb/aidf/internal/scopeguard"
)

var writeFileSpec = ToolSpec{
	Name:        "write_file",
	Description: "Write content to a file. Creates parent directories by default. Returns \"File written: <path>\".",
	Parameters: map[string]ParamSpec{
		"path":        {Type: "string", Description: "Path to the file to write, relative to the working directory", Required: true},
		"content":     {Type: "string", Description: "Content to write to the file", Required: true},
		"create_dirs": {Type: "boolean", Description: "Create parent directories if they don't exist (default: true)"},
	},
}

type writeFileInput struct {
	Path       string `json:"path"`
	Content    string `json:"content"`
	CreateDirs *bool  `json:"create_dirs"`
}

// writeFile consults the ScopeGuard before touching disk. A path outside
// allowed under a non-permissive mode, or inside forbidden, is rejected
// with a message enumerating the scope so the model can self-correct on
// its next turn.
func (h *Handler) writeFile(argumentsJSON string) (Result, error) {
	var input writeFileInput
	if err := parseArgs(argumentsJSON, &input); err != nil {
		return errResult("write_file: invalid arguments: %v", err), nil
	}
	if input.Path == "" {
		return errResult("write_file: path is required"), nil
	}

	if h.Guard != nil {
		if decision, reason := h.Guard.Decide(input.Path); decision != scopeguard.Allow {
			return errResult("write_file: blocked by scope (%s): %s\n\n%s", decision, reason,
				h.Guard.GenerateViolationReport([]scopeguard.Change{{Path: input.Path, Type: scopeguard.Modified}})), nil
		}
	}

	createDirs := true
	if input.CreateDirs != nil {
		createDirs = *input.CreateDirs
	}

	path := h.resolve(input.Path)
	if createDirs {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return errResult("write_file: create dirs: %v", err), nil
		}
	}

	data := []byte(input.Content)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errResult("write_file: %v", err), nil
	}

	return strResult("File written: " + input.Path), nil
}
