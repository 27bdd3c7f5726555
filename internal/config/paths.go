package config

import (
	"os"
	"path/filepath"
)

// AidfPath returns the project's context directory.
// It uses $AIDF_PATH if set, otherwise defaults to "./.ai" relative to the
// current working directory.
func AidfPath() string {
	if v := os.Getenv("AIDF_PATH"); v != "" {
		return v
	}
	return filepath.Join(".", ".ai")
}

// ConfigPath returns the path to the aidf config file.
func ConfigPath() string {
	return filepath.Join(AidfPath(), "config.jsonc")
}

// DotenvPath returns the path to the aidf .env file.
func DotenvPath() string {
	return filepath.Join(AidfPath(), ".env")
}

// TasksDir returns the root of the task lifecycle folders.
func TasksDir() string {
	return filepath.Join(AidfPath(), "tasks")
}

// PendingDir returns the pending-tasks folder.
func PendingDir() string {
	return filepath.Join(TasksDir(), "pending")
}

// CompletedDir returns the completed-tasks folder.
func CompletedDir() string {
	return filepath.Join(TasksDir(), "completed")
}

// BlockedDir returns the blocked-tasks folder.
func BlockedDir() string {
	return filepath.Join(TasksDir(), "blocked")
}

// AgentsPath returns the project context file path.
func AgentsPath() string {
	return filepath.Join(AidfPath(), "AGENTS.md")
}

// RolesDir returns the role-definitions folder.
func RolesDir() string {
	return filepath.Join(AidfPath(), "roles")
}

// SkillsDir returns the default skills folder.
func SkillsDir() string {
	return filepath.Join(AidfPath(), "skills")
}
