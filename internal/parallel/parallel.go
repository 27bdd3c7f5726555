// Package parallel runs multiple tasks concurrently with bounded capacity,
// serializing pairs whose scopes conflict (spec.md §4.7).
package parallel

import (
	"context"
	"path"
	"strings"
	"sync"

	"github.com/rubenmavarezb/aidf/internal/config"
	"github.com/rubenmavarezb/aidf/internal/executor"
	"github.com/rubenmavarezb/aidf/internal/provider"
	"github.com/rubenmavarezb/aidf/internal/task"
)

// defaultConcurrency is the bounded-capacity cap when Options.Concurrency
// is left unset.
const defaultConcurrency = 3

// TaskResult is one task's outcome within a Run.
type TaskResult struct {
	Task   task.Task
	Result executor.Result
}

// Result aggregates a parallel run.
type Result struct {
	Success bool
	Results []TaskResult
}

// Scheduler runs a batch of tasks with bounded concurrency, serializing
// tasks whose declared scopes conflict.
type Scheduler struct {
	cfg             config.Config
	workDir         string
	concurrency     int
	providerFactory provider.Factory
	onOutput        func(taskName, chunk string)
	onPhase         func(taskName string, event executor.PhaseEvent)
	onIteration     func(taskName string, state executor.State)
}

// Options configures a Scheduler.
type Options struct {
	Concurrency     int // 0 = defaultConcurrency
	ProviderFactory provider.Factory
	OnOutput        func(taskName, chunk string)
	OnPhase         func(taskName string, event executor.PhaseEvent)
	OnIteration     func(taskName string, state executor.State)
}

// New builds a Scheduler over the given config and working directory.
func New(cfg config.Config, workDir string, opts Options) *Scheduler {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	factory := opts.ProviderFactory
	if factory == nil {
		factory = provider.BuildProvider
	}
	return &Scheduler{
		cfg:             cfg,
		workDir:         workDir,
		concurrency:     concurrency,
		providerFactory: factory,
		onOutput:        opts.OnOutput,
		onPhase:         opts.OnPhase,
		onIteration:     opts.OnIteration,
	}
}

// slot tracks one task's progress through the batch.
type slot struct {
	task task.Task
	done bool
	res  executor.Result
}

// Run drives tasks to completion, launching as many non-conflicting tasks
// concurrently as the concurrency cap allows. As each finishes, the next
// non-conflicting pending task is picked from the pool.
func (s *Scheduler) Run(ctx context.Context, tasks []task.Task) Result {
	slots := make([]*slot, len(tasks))
	for i, t := range tasks {
		slots[i] = &slot{task: t}
	}

	var mu sync.Mutex
	running := make(map[int]bool)
	doneCh := make(chan int, len(tasks))

	launch := func(i int) {
		mu.Lock()
		running[i] = true
		mu.Unlock()

		go func() {
			defer func() { doneCh <- i }()
			slots[i].res = s.runOne(ctx, slots[i].task)
		}()
	}

	// fillIdle launches every pending, non-conflicting-with-running task up
	// to the concurrency cap. Must be called with mu held.
	fillIdle := func() {
		for len(running) < s.concurrency {
			idx := s.nextRunnable(slots, running)
			if idx < 0 {
				return
			}
			mu.Unlock()
			launch(idx)
			mu.Lock()
		}
	}

	mu.Lock()
	fillIdle()
	mu.Unlock()

	remaining := len(tasks)
	for remaining > 0 {
		i := <-doneCh
		slots[i].done = true
		remaining--

		mu.Lock()
		delete(running, i)
		fillIdle()
		mu.Unlock()
	}

	results := make([]TaskResult, len(slots))
	success := true
	for i, sl := range slots {
		results[i] = TaskResult{Task: sl.task, Result: sl.res}
		if sl.res.Status != task.StatusCompleted {
			success = false
		}
	}
	return Result{Success: success, Results: results}
}

// nextRunnable returns the index of the next pending task whose scope does
// not conflict with any task currently running, or -1 if none qualifies.
// Caller must hold mu.
func (s *Scheduler) nextRunnable(slots []*slot, running map[int]bool) int {
	for i, sl := range slots {
		if sl.done || running[i] {
			continue
		}
		conflict := false
		for j := range running {
			if scopesConflict(sl.task.Scope, slots[j].task.Scope) {
				conflict = true
				break
			}
		}
		if !conflict {
			return i
		}
	}
	return -1
}

func (s *Scheduler) runOne(ctx context.Context, t task.Task) executor.Result {
	name := t.Name()
	opts := executor.Options{
		ProviderFactory: s.providerFactory,
	}
	if s.onOutput != nil {
		opts.OnOutput = func(chunk string) { s.onOutput(name, chunk) }
	}
	if s.onPhase != nil {
		opts.OnPhase = func(event executor.PhaseEvent) { s.onPhase(name, event) }
	}
	if s.onIteration != nil {
		opts.OnIteration = func(state executor.State) { s.onIteration(name, state) }
	}

	e := executor.New(s.cfg, s.workDir, opts)
	return e.Run(ctx, t.FilePath)
}

// scopesConflict reports whether two tasks' allowed-pattern sets conflict,
// per spec.md §4.7: any pattern in one matching the literal prefix of any
// pattern in the other, or sharing a common non-wildcard ancestor directory.
// Forbidden/askBefore lists play no part in scheduling.
func scopesConflict(a, b task.Scope) bool {
	for _, pa := range a.Allowed {
		for _, pb := range b.Allowed {
			if patternsConflict(pa, pb) {
				return true
			}
		}
	}
	return false
}

// patternsConflict implements the Open Question's chosen heuristic: two
// glob patterns conflict if the literal (non-wildcard) prefix of one is a
// path-prefix of, or shares a common directory ancestor with, the literal
// prefix of the other. Deliberately conservative — false-serialization of
// genuinely disjoint tasks is accepted over false-parallelization.
func patternsConflict(p1, p2 string) bool {
	l1 := literalPrefix(p1)
	l2 := literalPrefix(p2)

	if strings.HasPrefix(l1, l2) || strings.HasPrefix(l2, l1) {
		return true
	}

	d1 := ancestorDir(l1)
	d2 := ancestorDir(l2)
	return d1 == d2
}

// literalPrefix returns the portion of a glob pattern before its first
// wildcard character, e.g. "src/api/**" -> "src/api/".
func literalPrefix(pattern string) string {
	if idx := strings.IndexAny(pattern, "*?["); idx >= 0 {
		return pattern[:idx]
	}
	return pattern
}

// ancestorDir returns the directory a literal prefix lives in, used to
// detect two patterns rooted in the same directory even when neither is a
// prefix of the other (e.g. "src/api/one.go" and "src/api/two.go"). A
// prefix that is itself a directory (ends in "/") names its own directory,
// not its parent — otherwise "src/api/**" and "src/web/**" would falsely
// conflict by sharing the ancestor "src".
func ancestorDir(prefix string) string {
	if trimmed := strings.TrimSuffix(prefix, "/"); trimmed != prefix {
		return trimmed
	}
	dir := path.Dir(prefix)
	if dir == "." {
		return ""
	}
	return dir
}
