// Package contextloader is the non-core collaborator that turns the
// on-disk .ai/ directory into a LoadedContext the Executor consumes by
// value. The Executor never parses Markdown itself.
package contextloader

import "github.com/rubenmavarezb/aidf/internal/task"

// Skill is a portable named prompt fragment injected as structured context.
type Skill struct {
	Name        string
	Description string
	Body        string
}

// Plan is an optional multi-task plan document accompanying a task.
type Plan struct {
	Title string
	Body  string
}

// LoadedContext aggregates everything the Executor needs to build a prompt.
// Produced by Load, passed by value, never mutated by the core.
type LoadedContext struct {
	Agents string
	Role   string
	Task   task.Task
	Plan   *Plan
	Skills []Skill
}
