// Package task defines the read-only data model for a unit of work the
// Executor drives to completion.
package task

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the terminal-or-in-progress state of an Executor run.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusBlocked   Status = "blocked"
	StatusFailed    Status = "failed"
)

// ScopeEnforcement is the ScopeGuard's operating mode.
type ScopeEnforcement string

const (
	EnforcementStrict     ScopeEnforcement = "strict"
	EnforcementAsk        ScopeEnforcement = "ask"
	EnforcementPermissive ScopeEnforcement = "permissive"
)

// Scope is the per-task set of allow/forbid/ask-before file path patterns.
type Scope struct {
	Allowed   []string `json:"allowed,omitempty"`
	Forbidden []string `json:"forbidden,omitempty"`
	AskBefore []string `json:"ask_before,omitempty"`
}

// BlockedStatus is present only when a task is resumed from a blocked run.
type BlockedStatus struct {
	PreviousIteration int       `json:"previous_iteration"`
	FilesModified     []string  `json:"files_modified"`
	BlockingIssue     string    `json:"blocking_issue"`
	StartedAt         time.Time `json:"started_at"`
	BlockedAt         time.Time `json:"blocked_at"`
}

// Task is the input to an Executor run: read-only for the duration of the run.
type Task struct {
	FilePath         string         `json:"file_path"`
	Goal             string         `json:"goal"`
	TaskType         string         `json:"task_type"`
	Requirements     string         `json:"requirements"`
	Notes            string         `json:"notes"`
	SuggestedRoles   []string       `json:"suggested_roles"`
	Scope            Scope          `json:"scope"`
	DefinitionOfDone []string       `json:"definition_of_done"`
	BlockedStatus    *BlockedStatus `json:"blocked_status,omitempty"`
}

// Name returns a short identifier for the task, derived from its file path,
// for use in log lines and parallel-execution output prefixes.
func (t Task) Name() string {
	base := t.FilePath
	if idx := strings.LastIndexByte(base, '/'); idx >= 0 {
		base = base[idx+1:]
	}
	return strings.TrimSuffix(base, ".md")
}

// GenerateID creates a short run identifier: "run_" followed by the first
// eight hex digits of a random UUID. Not persisted as part of the Task
// itself — the task file path is the durable identity.
func GenerateID() string {
	u := uuid.New().String()
	return "run_" + strings.ReplaceAll(u[:8], "-", "")
}
