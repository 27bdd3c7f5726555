package toolhandler

var taskCompleteSpec = ToolSpec{
	Name:        "task_complete",
	Description: "Signal that the task's Definition of Done has been met. The run validates before accepting this.",
	Parameters: map[string]ParamSpec{
		"summary": {Type: "string", Description: "A short summary of what was done", Required: true},
	},
}

var taskBlockedSpec = ToolSpec{
	Name:        "task_blocked",
	Description: "Signal that the task cannot proceed without external input. The run ends in a blocked state, resumable later.",
	Parameters: map[string]ParamSpec{
		"reason":     {Type: "string", Description: "Why the task is blocked and what is needed to unblock it", Required: true},
		"attempted":  {Type: "string", Description: "What was already tried before getting stuck"},
		"suggestion": {Type: "string", Description: "A suggested next step to unblock the task"},
	},
}

type taskCompleteInput struct {
	Summary string `json:"summary"`
}

type taskBlockedInput struct {
	Reason     string `json:"reason"`
	Attempted  string `json:"attempted"`
	Suggestion string `json:"suggestion"`
}

// taskComplete records the completion signal for the ExecutionLoop to pick
// up. It never fails the call itself — validation of the claim is the
// Executor's job, performed after this signal is captured.
func (h *Handler) taskComplete(argumentsJSON string) (Result, error) {
	var input taskCompleteInput
	if err := parseArgs(argumentsJSON, &input); err != nil {
		return errResult("task_complete: invalid arguments: %v", err), nil
	}
	h.LastSignal = Signal{Complete: true, Reason: input.Summary}
	return okResult(map[string]string{"status": "acknowledged"}), nil
}

// taskBlocked records the block signal for the ExecutionLoop to pick up.
func (h *Handler) taskBlocked(argumentsJSON string) (Result, error) {
	var input taskBlockedInput
	if err := parseArgs(argumentsJSON, &input); err != nil {
		return errResult("task_blocked: invalid arguments: %v", err), nil
	}
	if input.Reason == "" {
		return errResult("task_blocked: reason is required"), nil
	}
	h.LastSignal = Signal{Blocked: true, Reason: input.Reason, Attempted: input.Attempted, Suggestion: input.Suggestion}
	return okResult(map[string]string{"status": "acknowledged"}), nil
}
