package toolhandler

import (
	"os"
	"path/filepath"
	"strings"
)

var readFileSpec = ToolSpec{
	Name:        "read_file",
	Description: "Read the contents of a file. Returns the text content with optional line offset and limit.",
	Parameters: map[string]ParamSpec{
		"path":   {Type: "string", Description: "Path to the file to read, relative to the working directory", Required: true},
		"offset": {Type: "integer", Description: "Line offset (0-based) to start reading from"},
		"limit":  {Type: "integer", Description: "Maximum number of lines to return"},
	},
}

type readFileInput struct {
	Path   string `json:"path"`
	Offset int    `json:"offset"`
	Limit  int    `json:"limit"`
}

// readFile is never blocked by scope — reads and listings are always
// permitted regardless of the task's allowed/forbidden patterns.
func (h *Handler) readFile(argumentsJSON string) (Result, error) {
	var input readFileInput
	if err := parseArgs(argumentsJSON, &input); err != nil {
		return errResult("read_file: invalid arguments: %v", err), nil
	}
	if input.Path == "" {
		return errResult("read_file: path is required"), nil
	}

	path := h.resolve(input.Path)
	data, err := os.ReadFile(path)
	if err != nil {
		return errResult("read_file: %v", err), nil
	}

	lines := strings.Split(string(data), "\n")
	if input.Offset > 0 {
		if input.Offset >= len(lines) {
			lines = nil
		} else {
			lines = lines[input.Offset:]
		}
	}
	if input.Limit > 0 && input.Limit < len(lines) {
		lines = lines[:input.Limit]
	}

	return strResult(strings.Join(lines, "\n")), nil
}

func (h *Handler) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(h.WorkDir, path)
}
