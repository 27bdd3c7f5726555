package executor

import (
	"fmt"
	"strings"

	"github.com/rubenmavarezb/aidf/internal/contextloader"
)

const executionInstructions = `
## Execution Instructions

Work autonomously until the task's Definition of Done is satisfied. When you
are finished, emit <TASK_COMPLETE> (or call the task_complete tool). If you
cannot proceed, emit <TASK_BLOCKED: reason> (or call the task_blocked tool)
describing exactly what is blocking you.
`

// buildPrompt concatenates project context, role, skills, the task
// specification, resume/validation-feedback context, and the completion
// sentinel instructions into the single prompt sent to the provider.
func buildPrompt(loaded contextloader.LoadedContext, state *State) string {
	var sb strings.Builder

	if loaded.Agents != "" {
		sb.WriteString("## Project Context\n\n")
		sb.WriteString(loaded.Agents)
		sb.WriteString("\n\n")
	}
	if loaded.Role != "" {
		sb.WriteString("## Role\n\n")
		sb.WriteString(loaded.Role)
		sb.WriteString("\n\n")
	}
	for _, s := range loaded.Skills {
		fmt.Fprintf(&sb, "<skill name=%q>\n%s\n</skill>\n\n", s.Name, s.Body)
	}

	t := loaded.Task
	sb.WriteString("## Task\n\n")
	fmt.Fprintf(&sb, "Goal: %s\n", t.Goal)
	if t.TaskType != "" {
		fmt.Fprintf(&sb, "Task Type: %s\n", t.TaskType)
	}
	if t.Requirements != "" {
		fmt.Fprintf(&sb, "\nRequirements:\n%s\n", t.Requirements)
	}
	if len(t.DefinitionOfDone) > 0 {
		sb.WriteString("\nDefinition of Done:\n")
		for _, d := range t.DefinitionOfDone {
			fmt.Fprintf(&sb, "- [ ] %s\n", d)
		}
	}
	if t.Notes != "" {
		fmt.Fprintf(&sb, "\nNotes:\n%s\n", t.Notes)
	}
	if len(t.Scope.Allowed) > 0 || len(t.Scope.Forbidden) > 0 {
		sb.WriteString("\nScope:\n")
		if len(t.Scope.Allowed) > 0 {
			fmt.Fprintf(&sb, "- Allowed: %s\n", strings.Join(t.Scope.Allowed, ", "))
		}
		if len(t.Scope.Forbidden) > 0 {
			fmt.Fprintf(&sb, "- Forbidden: %s\n", strings.Join(t.Scope.Forbidden, ", "))
		}
	}

	if t.BlockedStatus != nil {
		sb.WriteString("\n## Resuming a Blocked Run\n\n")
		fmt.Fprintf(&sb, "Previous blocking issue: %s\n", t.BlockedStatus.BlockingIssue)
		if len(t.BlockedStatus.FilesModified) > 0 {
			fmt.Fprintf(&sb, "Previously modified files: %s\n", strings.Join(t.BlockedStatus.FilesModified, ", "))
		}
	}

	if state.LastValidationError != "" {
		fmt.Fprintf(&sb, "\n## Validation Feedback\n\nYour previous iteration signaled completion but validation failed: %s. Please fix and re-signal.\n", state.LastValidationError)
	}

	sb.WriteString(executionInstructions)

	return sb.String()
}
