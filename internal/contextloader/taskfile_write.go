package contextloader

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// ExecutionLogEntry is one line of the per-iteration execution log appended
// to a task file's status section.
type ExecutionLogEntry struct {
	Iteration int
	Summary   string
	At        time.Time
}

// AppendStatusSection rewrites the task file, replacing any existing
// "## Status: ..." section (and everything after it) with a freshly
// rendered one. A task file has at most one status section at a time.
func AppendStatusSection(path string, status, body string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read task file: %w", err)
	}
	md := string(data)

	if idx := strings.Index(md, "## Status:"); idx >= 0 {
		md = strings.TrimRight(md[:idx], "\n")
	}

	var sb strings.Builder
	sb.WriteString(strings.TrimRight(md, "\n"))
	sb.WriteString("\n\n## Status: ")
	sb.WriteString(status)
	sb.WriteString("\n\n")
	sb.WriteString(body)
	sb.WriteString("\n")

	return os.WriteFile(path, []byte(sb.String()), 0644)
}

// RenderExecutionLog formats a fenced execution-log block for a status section.
func RenderExecutionLog(entries []ExecutionLogEntry) string {
	var sb strings.Builder
	sb.WriteString("```\n")
	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("[%s] iteration %d: %s\n", e.At.Format(time.RFC3339), e.Iteration, e.Summary))
	}
	sb.WriteString("```\n")
	return sb.String()
}

// RenderFilesModified formats a bullet list of modified files.
func RenderFilesModified(files []string) string {
	if len(files) == 0 {
		return "Files modified: (none)\n"
	}
	var sb strings.Builder
	sb.WriteString("Files modified:\n")
	for _, f := range files {
		sb.WriteString("- ")
		sb.WriteString(f)
		sb.WriteString("\n")
	}
	return sb.String()
}

// RenderResumeInstruction formats the recovery-instruction line shown on block.
func RenderResumeInstruction(taskName string) string {
	return fmt.Sprintf("Run `aidf run --resume %s` to continue.\n", taskName)
}
