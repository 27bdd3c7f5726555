// Package toolhandler serves the built-in tool calls exposed to the model:
// read_file, write_file, list_files, run_command, task_complete, and
// task_blocked. All paths are resolved relative to the run's working
// directory.
package toolhandler

// ParamSpec describes one parameter of a tool, shaped to convert cleanly
// into either the Anthropic or OpenAI tool-schema JSON.
type ParamSpec struct {
	Type        string
	Description string
	Required    bool
	Enum        []string
}

// ToolSpec is a provider-neutral tool declaration.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]ParamSpec
}

// Result is the outcome of a tool call. IsError mirrors the provider's
// tool-result error flag so a failed call reaches the model as feedback
// it can act on, rather than aborting the iteration.
type Result struct {
	IsError bool
	Content string
}

// Signal reports a task_complete or task_blocked call, surfaced to the
// Executor's ExecutionLoop as the iteration's completion/block signal.
type Signal struct {
	Complete bool
	Blocked  bool
	Reason   string

	// Attempted and Suggestion are the optional task_blocked({attempted?,
	// suggestion?}) fields of spec.md §6, carried into the blocked-status
	// write-back alongside Reason.
	Attempted  string
	Suggestion string
}
