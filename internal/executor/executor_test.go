package executor

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rubenmavarezb/aidf/internal/aidferr"
	"github.com/rubenmavarezb/aidf/internal/config"
	"github.com/rubenmavarezb/aidf/internal/provider"
	"github.com/rubenmavarezb/aidf/internal/task"
)

const taskFileBody = `## Goal

Implement the thing.

## Task Type

feature

## Scope

### Allowed

- src/**

### Forbidden

- secrets/**

## Requirements

Do it well.

## Definition of Done

- [ ] it works
`

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	run("init")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "test")
	if err := os.MkdirAll(filepath.Join(dir, "src"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("hi\n"), 0644); err != nil {
		t.Fatal(err)
	}
	run("add", ".")
	run("commit", "-m", "initial")
	return dir
}

func writeTaskFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(taskFileBody), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func baseConfig() config.Config {
	return config.Config{
		Execution: config.ExecutionConfig{
			MaxIterations:          10,
			MaxConsecutiveFailures: 3,
			Conversation: config.ConversationHistoryConfig{
				MaxMessages:  100,
				PreserveHead: 5,
				PreserveTail: 20,
			},
		},
		Permissions: config.PermissionsConfig{
			ScopeEnforcement: "strict",
		},
		Provider: config.ProviderConfig{Type: "claude-cli"},
	}
}

// fakeProvider scripts a fixed sequence of ExecutionResults, one per call.
type fakeProvider struct {
	results []provider.ExecutionResult
	calls   int
}

func (f *fakeProvider) Name() string                           { return "fake" }
func (f *fakeProvider) IsAvailable(ctx context.Context) bool    { return true }
func (f *fakeProvider) Execute(ctx context.Context, prompt string, opts provider.Options) provider.ExecutionResult {
	if f.calls >= len(f.results) {
		return f.results[len(f.results)-1]
	}
	r := f.results[f.calls]
	f.calls++
	return r
}

func factoryFor(p *fakeProvider) provider.Factory {
	return func(ctx context.Context, cfg config.ProviderConfig) (provider.Provider, error) {
		return p, nil
	}
}

func TestRun_CompletesOnFirstIteration(t *testing.T) {
	dir := initRepo(t)
	taskPath := writeTaskFile(t, dir, "task.md")

	fp := &fakeProvider{results: []provider.ExecutionResult{
		{Success: true, IterationComplete: true, Output: "done"},
	}}

	e := New(baseConfig(), dir, Options{ProviderFactory: factoryFor(fp)})
	result := e.Run(context.Background(), taskPath)

	if result.Status != task.StatusCompleted {
		t.Fatalf("Status = %v, want completed (result=%+v)", result.Status, result)
	}
	if result.Iterations != 0 {
		t.Errorf("Iterations = %d, want 0 (terminal iteration not counted)", result.Iterations)
	}
}

func TestRun_BlockedSignalStopsLoop(t *testing.T) {
	dir := initRepo(t)
	taskPath := writeTaskFile(t, dir, "task.md")

	fp := &fakeProvider{results: []provider.ExecutionResult{
		{Success: true, Blocked: true, BlockReason: "missing credentials"},
	}}

	e := New(baseConfig(), dir, Options{ProviderFactory: factoryFor(fp)})
	result := e.Run(context.Background(), taskPath)

	if result.Status != task.StatusBlocked {
		t.Fatalf("Status = %v, want blocked", result.Status)
	}
	if result.BlockedReason != "missing credentials" {
		t.Errorf("BlockedReason = %q", result.BlockedReason)
	}
}

func TestRun_BlockedSignalWritesAttemptedAndSuggestion(t *testing.T) {
	dir := initRepo(t)
	taskPath := writeTaskFile(t, dir, "task.md")

	fp := &fakeProvider{results: []provider.ExecutionResult{
		{
			Success:         true,
			Blocked:         true,
			BlockReason:     "missing credentials",
			BlockAttempted:  "tried reading .env",
			BlockSuggestion: "set ANTHROPIC_API_KEY",
		},
	}}

	e := New(baseConfig(), dir, Options{ProviderFactory: factoryFor(fp)})
	result := e.Run(context.Background(), taskPath)

	if result.Status != task.StatusBlocked {
		t.Fatalf("Status = %v, want blocked", result.Status)
	}

	data, err := os.ReadFile(result.TaskPath)
	if err != nil {
		t.Fatalf("read task file: %v", err)
	}
	if !strings.Contains(string(data), "Attempted: tried reading .env") {
		t.Errorf("expected status section to contain attempted text, got:\n%s", data)
	}
	if !strings.Contains(string(data), "Suggestion: set ANTHROPIC_API_KEY") {
		t.Errorf("expected status section to contain suggestion text, got:\n%s", data)
	}
}

func TestRun_MaxIterationsExhausted(t *testing.T) {
	dir := initRepo(t)
	taskPath := writeTaskFile(t, dir, "task.md")

	fp := &fakeProvider{results: []provider.ExecutionResult{
		{Success: true},
	}}

	cfg := baseConfig()
	cfg.Execution.MaxIterations = 2
	e := New(cfg, dir, Options{ProviderFactory: factoryFor(fp)})
	result := e.Run(context.Background(), taskPath)

	if result.Status != task.StatusBlocked || result.BlockedReason != "max_iterations" {
		t.Fatalf("result = %+v, want blocked/max_iterations", result)
	}
	if result.Iterations != 2 {
		t.Errorf("Iterations = %d, want 2", result.Iterations)
	}
}

func TestRun_MaxIterationsZeroBlocksBeforeAnyProviderCall(t *testing.T) {
	dir := initRepo(t)
	taskPath := writeTaskFile(t, dir, "task.md")

	fp := &fakeProvider{results: []provider.ExecutionResult{
		{Success: true},
	}}

	cfg := baseConfig()
	cfg.Execution.MaxIterations = 0
	e := New(cfg, dir, Options{ProviderFactory: factoryFor(fp)})
	result := e.Run(context.Background(), taskPath)

	if result.Status != task.StatusBlocked || result.BlockedReason != "max_iterations" {
		t.Fatalf("result = %+v, want blocked/max_iterations", result)
	}
	if result.Iterations != 0 {
		t.Errorf("Iterations = %d, want 0", result.Iterations)
	}
	if fp.calls != 0 {
		t.Errorf("provider was called %d times, want 0", fp.calls)
	}
}

func TestRun_MaxConsecutiveFailures(t *testing.T) {
	dir := initRepo(t)
	taskPath := writeTaskFile(t, dir, "task.md")

	failResult := provider.ExecutionResult{
		Success: false,
		Err:     aidferr.New(aidferr.CategoryProvider, aidferr.CodeProviderCrash, errors.New("boom")),
	}
	fp := &fakeProvider{results: []provider.ExecutionResult{failResult}}

	cfg := baseConfig()
	cfg.Execution.MaxConsecutiveFailures = 2
	e := New(cfg, dir, Options{ProviderFactory: factoryFor(fp)})
	result := e.Run(context.Background(), taskPath)

	if result.Status != task.StatusBlocked || result.BlockedReason != "max_failures" {
		t.Fatalf("result = %+v, want blocked/max_failures", result)
	}
}

func TestRun_NonRetryablePermissionErrorFailsImmediately(t *testing.T) {
	dir := initRepo(t)
	taskPath := writeTaskFile(t, dir, "task.md")

	fp := &fakeProvider{results: []provider.ExecutionResult{
		{Success: false, Err: permissionErr()},
	}}

	cfg := baseConfig()
	e := New(cfg, dir, Options{ProviderFactory: factoryFor(fp)})
	result := e.Run(context.Background(), taskPath)

	if result.Status != task.StatusFailed {
		t.Fatalf("Status = %v, want failed", result.Status)
	}
	if result.Iterations != 0 {
		t.Errorf("Iterations = %d, want 0 (non-retryable errors don't consume a failure slot)", result.Iterations)
	}
}

func permissionErr() *aidferr.Error {
	return aidferr.New(aidferr.CategoryPermission, aidferr.CodePermissionFileAccess, errors.New("denied"))
}

func TestRun_DryRunNeverCallsProvider(t *testing.T) {
	dir := initRepo(t)
	taskPath := writeTaskFile(t, dir, "task.md")

	fp := &fakeProvider{}
	e := New(baseConfig(), dir, Options{ProviderFactory: factoryFor(fp), DryRun: true})
	result := e.Run(context.Background(), taskPath)

	if result.BlockedReason != "dry_run" {
		t.Fatalf("result = %+v, want dry_run", result)
	}
	if fp.calls != 0 {
		t.Errorf("provider was called %d times, want 0", fp.calls)
	}
	if result.DryRunPrompt == "" {
		t.Error("expected DryRunPrompt to be populated")
	}
}

func TestRun_ScopeViolationRevertsAndContinues(t *testing.T) {
	dir := initRepo(t)
	if err := os.MkdirAll(filepath.Join(dir, "secrets"), 0755); err != nil {
		t.Fatal(err)
	}
	taskPath := writeTaskFile(t, dir, "task.md")

	writeOutOfScope := func(ctx context.Context, prompt string, opts provider.Options) provider.ExecutionResult {
		_ = os.WriteFile(filepath.Join(dir, "secrets", "leak.txt"), []byte("oops\n"), 0644)
		return provider.ExecutionResult{Success: true, IterationComplete: true}
	}

	fp := &scriptedProvider{fn: writeOutOfScope}
	cfg := baseConfig()
	cfg.Execution.MaxIterations = 3
	e := New(cfg, dir, Options{ProviderFactory: factoryFor2(fp)})
	result := e.Run(context.Background(), taskPath)

	// The out-of-scope write is reverted before validation/completion is
	// considered, so the completion signal on that same iteration cannot
	// immediately terminate the run as "completed".
	if _, err := os.Stat(filepath.Join(dir, "secrets", "leak.txt")); !os.IsNotExist(err) {
		t.Errorf("expected secrets/leak.txt to be reverted, stat err = %v", err)
	}
	if result.Status == task.StatusCompleted {
		t.Errorf("expected the scope violation to prevent immediate completion, got %+v", result)
	}
}

type scriptedProvider struct {
	fn    func(ctx context.Context, prompt string, opts provider.Options) provider.ExecutionResult
	calls int
}

func (s *scriptedProvider) Name() string                        { return "scripted" }
func (s *scriptedProvider) IsAvailable(ctx context.Context) bool { return true }
func (s *scriptedProvider) Execute(ctx context.Context, prompt string, opts provider.Options) provider.ExecutionResult {
	s.calls++
	return s.fn(ctx, prompt, opts)
}

func factoryFor2(p *scriptedProvider) provider.Factory {
	return func(ctx context.Context, cfg config.ProviderConfig) (provider.Provider, error) {
		return p, nil
	}
}
