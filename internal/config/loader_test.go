package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_JSONC(t *testing.T) {
	content := `{
	// This is a JSONC comment
	"provider": {
		"type": "anthropic-api",
		"model": "claude-sonnet-4-6",
		"api_key": "${{ .Env.ANTHROPIC_API_KEY }}"
	},
	"execution": {
		"max_iterations": 25
	}
}`

	dir := t.TempDir()
	path := filepath.Join(dir, "config.jsonc")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("ANTHROPIC_API_KEY", "test-key-123")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Provider.Type != "anthropic-api" {
		t.Errorf("expected provider.type anthropic-api, got %s", cfg.Provider.Type)
	}
	if cfg.Provider.APIKey != "test-key-123" {
		t.Errorf("expected expanded api_key, got %s", cfg.Provider.APIKey)
	}
	if cfg.Execution.MaxIterations != 25 {
		t.Errorf("expected max_iterations 25, got %d", cfg.Execution.MaxIterations)
	}
}

func TestLoad_YAML(t *testing.T) {
	content := `
provider:
  type: openai-api
  model: gpt-4o
execution:
  max_iterations: 10
`
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Provider.Type != "openai-api" {
		t.Errorf("expected provider.type openai-api, got %s", cfg.Provider.Type)
	}
	if cfg.Execution.MaxIterations != 10 {
		t.Errorf("expected max_iterations 10, got %d", cfg.Execution.MaxIterations)
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.jsonc")
	if err := os.WriteFile(path, []byte(`{}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Execution.MaxIterations != 50 {
		t.Errorf("expected default max_iterations 50, got %d", cfg.Execution.MaxIterations)
	}
	if cfg.Execution.MaxConsecutiveFailures != 3 {
		t.Errorf("expected default max_consecutive_failures 3, got %d", cfg.Execution.MaxConsecutiveFailures)
	}
	if cfg.Execution.Conversation.MaxMessages != 100 {
		t.Errorf("expected default max_messages 100, got %d", cfg.Execution.Conversation.MaxMessages)
	}
	if cfg.Execution.Conversation.PreserveHead != 5 {
		t.Errorf("expected default preserve_head 5, got %d", cfg.Execution.Conversation.PreserveHead)
	}
	if cfg.Execution.Conversation.PreserveTail != 20 {
		t.Errorf("expected default preserve_tail 20, got %d", cfg.Execution.Conversation.PreserveTail)
	}
	if cfg.Permissions.ScopeEnforcement != "strict" {
		t.Errorf("expected default scope_enforcement strict, got %q", cfg.Permissions.ScopeEnforcement)
	}
}

func TestLoad_ExplicitZeroMaxIterationsSurvives(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.jsonc")
	if err := os.WriteFile(path, []byte(`{"execution": {"max_iterations": 0}}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Execution.MaxIterations != 0 {
		t.Errorf("expected explicit max_iterations 0 to survive, got %d", cfg.Execution.MaxIterations)
	}
}

func TestExpandEnv_TemplateAndShellForms(t *testing.T) {
	t.Setenv("TEST_KEY", "my-secret")

	if got, want := expandEnv(`{"key": "${{ .Env.TEST_KEY }}"}`), `{"key": "my-secret"}`; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
	if got, want := expandEnv(`{"key": "${TEST_KEY}"}`), `{"key": "my-secret"}`; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
	if got, want := expandEnv(`{"key": "$TEST_KEY"}`), `{"key": "my-secret"}`; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}
