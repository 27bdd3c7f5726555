package parallel

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rubenmavarezb/aidf/internal/config"
	"github.com/rubenmavarezb/aidf/internal/provider"
	"github.com/rubenmavarezb/aidf/internal/task"
)

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
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("hi\n"), 0644); err != nil {
		t.Fatal(err)
	}
	run("add", ".")
	run("commit", "-m", "initial")
	return dir
}

const taskFileBody = `## Goal

Implement the thing.

## Task Type

feature

## Requirements

Do it well.

## Definition of Done

- [ ] it works
`

func writeTaskFile(t *testing.T, dir, name string, scope task.Scope) task.Task {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(taskFileBody), 0644); err != nil {
		t.Fatal(err)
	}
	return task.Task{FilePath: path, Goal: "implement the thing", Scope: scope}
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
		Permissions: config.PermissionsConfig{ScopeEnforcement: "strict"},
		Provider:    config.ProviderConfig{Type: "claude-cli"},
	}
}

// slowCompletingProvider completes on its first call after holding a slot
// for a short, deterministic window, tracking peak concurrent executions.
type slowCompletingProvider struct {
	hold     time.Duration
	active   int32
	peak     int32
	mu       sync.Mutex
}

func (p *slowCompletingProvider) Name() string                        { return "slow" }
func (p *slowCompletingProvider) IsAvailable(ctx context.Context) bool { return true }
func (p *slowCompletingProvider) Execute(ctx context.Context, prompt string, opts provider.Options) provider.ExecutionResult {
	n := atomic.AddInt32(&p.active, 1)
	p.mu.Lock()
	if n > p.peak {
		p.peak = n
	}
	p.mu.Unlock()
	time.Sleep(p.hold)
	atomic.AddInt32(&p.active, -1)
	return provider.ExecutionResult{Success: true, IterationComplete: true}
}

func factoryFor(p *slowCompletingProvider) provider.Factory {
	return func(ctx context.Context, cfg config.ProviderConfig) (provider.Provider, error) {
		return p, nil
	}
}

func TestRun_AllDisjointTasksCompleteConcurrently(t *testing.T) {
	dir := initRepo(t)
	tasks := []task.Task{
		writeTaskFile(t, dir, "a.md", task.Scope{Allowed: []string{"src/a/**"}}),
		writeTaskFile(t, dir, "b.md", task.Scope{Allowed: []string{"src/b/**"}}),
		writeTaskFile(t, dir, "c.md", task.Scope{Allowed: []string{"src/c/**"}}),
	}

	p := &slowCompletingProvider{hold: 30 * time.Millisecond}
	s := New(baseConfig(), dir, Options{ProviderFactory: factoryFor(p)})
	result := s.Run(context.Background(), tasks)

	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if p.peak < 2 {
		t.Errorf("peak concurrent executions = %d, want >= 2 for disjoint scopes", p.peak)
	}
}

func TestRun_ConflictingScopesSerialize(t *testing.T) {
	dir := initRepo(t)
	tasks := []task.Task{
		writeTaskFile(t, dir, "a.md", task.Scope{Allowed: []string{"src/shared/**"}}),
		writeTaskFile(t, dir, "b.md", task.Scope{Allowed: []string{"src/shared/config.go"}}),
	}

	p := &slowCompletingProvider{hold: 20 * time.Millisecond}
	s := New(baseConfig(), dir, Options{ProviderFactory: factoryFor(p), Concurrency: 3})
	result := s.Run(context.Background(), tasks)

	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if p.peak != 1 {
		t.Errorf("peak concurrent executions = %d, want 1 for conflicting scopes", p.peak)
	}
}

func TestRun_BoundedByConcurrencyCap(t *testing.T) {
	dir := initRepo(t)
	var tasks []task.Task
	for i := 0; i < 6; i++ {
		name := string(rune('a' + i))
		tasks = append(tasks, writeTaskFile(t, dir, name+".md", task.Scope{Allowed: []string{"src/" + name + "/**"}}))
	}

	p := &slowCompletingProvider{hold: 30 * time.Millisecond}
	s := New(baseConfig(), dir, Options{ProviderFactory: factoryFor(p), Concurrency: 2})
	result := s.Run(context.Background(), tasks)

	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if p.peak > 2 {
		t.Errorf("peak concurrent executions = %d, want <= 2 (concurrency cap)", p.peak)
	}
}

func TestRun_OneFailingTaskMakesOverallUnsuccessful(t *testing.T) {
	dir := initRepo(t)
	tasks := []task.Task{
		writeTaskFile(t, dir, "a.md", task.Scope{Allowed: []string{"src/a/**"}}),
		writeTaskFile(t, dir, "b.md", task.Scope{Allowed: []string{"src/b/**"}}),
	}

	p := &blockingOnSecondCall{}
	s := New(baseConfig(), dir, Options{ProviderFactory: factoryForBlocking(p)})
	result := s.Run(context.Background(), tasks)

	if result.Success {
		t.Fatalf("expected overall failure, got %+v", result)
	}
	if len(result.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(result.Results))
	}
}

type blockingOnSecondCall struct {
	calls int32
}

func (p *blockingOnSecondCall) Name() string                        { return "blocker" }
func (p *blockingOnSecondCall) IsAvailable(ctx context.Context) bool { return true }
func (p *blockingOnSecondCall) Execute(ctx context.Context, prompt string, opts provider.Options) provider.ExecutionResult {
	if atomic.AddInt32(&p.calls, 1) == 1 {
		return provider.ExecutionResult{Success: true, IterationComplete: true}
	}
	return provider.ExecutionResult{Success: true, Blocked: true, BlockReason: "needs input"}
}

func factoryForBlocking(p *blockingOnSecondCall) provider.Factory {
	return func(ctx context.Context, cfg config.ProviderConfig) (provider.Provider, error) {
		return p, nil
	}
}

func TestPatternsConflict(t *testing.T) {
	cases := []struct {
		p1, p2 string
		want   bool
	}{
		{"src/api/**", "src/api/handlers.go", true},
		{"src/api/**", "src/web/**", false},
		{"src/shared/config.go", "src/shared/**", true},
		{"src/a/**", "src/b/**", false},
		{"src/a/*.go", "src/a/*.md", true}, // shared ancestor dir
	}
	for _, c := range cases {
		got := patternsConflict(c.p1, c.p2)
		if got != c.want {
			t.Errorf("patternsConflict(%q, %q) = %v, want %v", c.p1, c.p2, got, c.want)
		}
	}
}
