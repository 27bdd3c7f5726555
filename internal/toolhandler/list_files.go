package toolhandler

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const maxListEntries = 1000

var listFilesSpec = ToolSpec{
	Name:        "list_files",
	Description: "List directory contents. Supports recursive listing and glob pattern filtering. Returns a newline-joined list of paths, directories suffixed with \"/\".",
	Parameters: map[string]ParamSpec{
		"path":      {Type: "string", Description: "Path to the directory to list, relative to the working directory", Required: true},
		"recursive": {Type: "boolean", Description: "List recursively (default: false)"},
		"pattern":   {Type: "string", Description: `Glob pattern to filter entries (e.g. "*.go")`},
	},
}

var skipDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true,
}

type listFilesInput struct {
	Path      string `json:"path"`
	Recursive bool   `json:"recursive"`
	Pattern   string `json:"pattern"`
}

type fileEntry struct {
	Path string
	Type string
}

// listFiles is never blocked by scope — reads and listings are always
// permitted regardless of the task's allowed/forbidden patterns.
func (h *Handler) listFiles(argumentsJSON string) (Result, error) {
	var input listFilesInput
	if err := parseArgs(argumentsJSON, &input); err != nil {
		return errResult("list_files: invalid arguments: %v", err), nil
	}
	if input.Path == "" {
		return errResult("list_files: path is required"), nil
	}

	root := h.resolve(input.Path)
	var entries []fileEntry
	var err error
	if input.Recursive {
		entries = listRecursive(root, input.Pattern)
	} else {
		entries, err = listFlat(root, input.Pattern)
	}
	if err != nil {
		return errResult("list_files: %v", err), nil
	}

	lines := make([]string, len(entries))
	for i, e := range entries {
		if e.Type == "dir" {
			lines[i] = e.Path + "/"
		} else {
			lines[i] = e.Path
		}
	}
	return strResult(strings.Join(lines, "\n")), nil
}

func listFlat(dir, pattern string) ([]fileEntry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var entries []fileEntry
	for _, de := range dirEntries {
		if pattern != "" {
			if matched, _ := filepath.Match(pattern, de.Name()); !matched {
				continue
			}
		}
		entries = append(entries, fileEntry{Path: filepath.Join(dir, de.Name()), Type: entryType(de)})
	}
	return entries, nil
}

func listRecursive(root, pattern string) []fileEntry {
	var entries []fileEntry
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() && skipDirs[d.Name()] {
			return filepath.SkipDir
		}
		if path == root {
			return nil
		}
		if pattern != "" {
			if matched, _ := filepath.Match(pattern, d.Name()); !matched {
				return nil
			}
		}
		entries = append(entries, fileEntry{Path: path, Type: entryType(d)})
		if len(entries) >= maxListEntries {
			return filepath.SkipAll
		}
		return nil
	})
	return entries
}

func entryType(d fs.DirEntry) string {
	if d.IsDir() {
		return "dir"
	}
	return "file"
}
