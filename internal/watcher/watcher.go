// Package watcher observes .ai/tasks/pending/ for task-file activity and
// feeds new or edited tasks into an executor (spec.md §4.8).
package watcher

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultDebounce coalesces filesystem events within this window before
// acting — covers editor-save burst patterns.
const defaultDebounce = 500 * time.Millisecond

// Runner executes one task file to completion. The watch command adapts
// *internal/executor.Executor's Run method to it through RunnerFunc.
type Runner interface {
	Run(ctx context.Context, taskPath string) error
}

// RunnerFunc adapts a plain function to Runner.
type RunnerFunc func(ctx context.Context, taskPath string) error

func (f RunnerFunc) Run(ctx context.Context, taskPath string) error { return f(ctx, taskPath) }

// Watcher recursively watches a directory tree for markdown task files and
// dispatches each one, once debounced, to a Runner — skipping any path that
// already has a run in flight.
type Watcher struct {
	dir      string
	debounce time.Duration
	runner   Runner
	onError  func(path string, err error)

	mu       sync.Mutex
	active   map[string]bool
	timers   map[string]*time.Timer
	pending  map[string]bool
	wg       sync.WaitGroup
}

// Options configures a Watcher.
type Options struct {
	Debounce time.Duration // 0 = defaultDebounce
	OnError  func(path string, err error)
}

// New builds a Watcher rooted at dir (typically config.PendingDir()).
func New(dir string, runner Runner, opts Options) *Watcher {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Watcher{
		dir:      dir,
		debounce: debounce,
		runner:   runner,
		onError:  opts.OnError,
		active:   make(map[string]bool),
		timers:   make(map[string]*time.Timer),
		pending:  make(map[string]bool),
	}
}

// Run watches until ctx is cancelled or a SIGINT/SIGTERM is received. It
// blocks until any in-flight task completes, per spec.md §4.8's shutdown
// contract: complete the in-flight task, stop accepting new ones, exit.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return err
	}
	if err := addRecursive(fsw, w.dir); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	slog.Info("watcher: observing", "dir", w.dir, "debounce", w.debounce)

	for {
		select {
		case ev, ok := <-fsw.Events:
			if !ok {
				w.wg.Wait()
				return nil
			}
			w.handleEvent(ctx, fsw, ev)

		case err, ok := <-fsw.Errors:
			if !ok {
				w.wg.Wait()
				return nil
			}
			slog.Warn("watcher: fsnotify error", "error", err)

		case <-sigCh:
			slog.Info("watcher: shutdown requested, waiting for in-flight task")
			w.stopAllTimers()
			w.wg.Wait()
			return nil

		case <-ctx.Done():
			w.stopAllTimers()
			w.wg.Wait()
			return ctx.Err()
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, fsw *fsnotify.Watcher, ev fsnotify.Event) {
	if ev.Has(fsnotify.Chmod) {
		return
	}

	if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
		if ev.Has(fsnotify.Create) {
			if err := addRecursive(fsw, ev.Name); err != nil {
				slog.Warn("watcher: failed to watch new subdirectory", "dir", ev.Name, "error", err)
			}
		}
		return
	}

	if !strings.HasSuffix(ev.Name, ".md") {
		return
	}
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}

	w.debounceDispatch(ctx, ev.Name)
}

// debounceDispatch resets the per-file debounce timer, scheduling a
// dispatch once events for that path go quiet.
func (w *Watcher) debounceDispatch(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.dispatch(ctx, path)
	})
}

// dispatch runs path through the Runner unless it is already active; a
// second trigger while a run is in flight is remembered and re-dispatched
// the moment the active run finishes.
func (w *Watcher) dispatch(ctx context.Context, path string) {
	w.mu.Lock()
	if w.active[path] {
		w.pending[path] = true
		w.mu.Unlock()
		return
	}
	w.active[path] = true
	delete(w.timers, path)
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.runner.Run(ctx, path); err != nil && w.onError != nil {
			w.onError(path, err)
		}

		w.mu.Lock()
		delete(w.active, path)
		rerun := w.pending[path]
		delete(w.pending, path)
		w.mu.Unlock()

		if rerun {
			w.debounceDispatch(ctx, path)
		}
	}()
}

func (w *Watcher) stopAllTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, t := range w.timers {
		t.Stop()
	}
}

// addRecursive adds dir and every subdirectory beneath it to fsw.
func addRecursive(fsw *fsnotify.Watcher, dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if err := fsw.Add(path); err != nil {
				slog.Warn("watcher: failed to watch directory", "dir", path, "error", err)
			}
		}
		return nil
	})
}
