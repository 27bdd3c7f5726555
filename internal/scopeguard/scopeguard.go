// Package scopeguard implements preventive and reactive enforcement of a
// task's allow/forbid/ask-before file-path patterns.
package scopeguard

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/rubenmavarezb/aidf/internal/task"
)

// Decision is the outcome of validating one or more file changes.
type Decision string

const (
	Allow    Decision = "ALLOW"
	AskUser  Decision = "ASK_USER"
	Block    Decision = "BLOCK"
)

// ChangeType describes how a file was touched.
type ChangeType string

const (
	Created  ChangeType = "created"
	Modified ChangeType = "modified"
	Deleted  ChangeType = "deleted"
)

// Change is a single file-path mutation to be validated against scope.
type Change struct {
	Path string
	Type ChangeType
}

// Violation is one change's scope decision, used for reporting.
type Violation struct {
	Path     string
	Type     ChangeType
	Decision Decision
	Reason   string
}

// Guard enforces a TaskScope under a given enforcement mode. Holds
// per-run approval memory; never persisted across runs.
type Guard struct {
	scope task.Scope
	mode  task.ScopeEnforcement

	mu       sync.Mutex
	approved map[string]bool
}

// New constructs a Guard for one task run.
func New(scope task.Scope, mode task.ScopeEnforcement) *Guard {
	return &Guard{
		scope:    scope,
		mode:     mode,
		approved: make(map[string]bool),
	}
}

// Approve records a user approval for a path, bypassing future ask-before
// and not-in-allowed decisions for it within this run.
// Forbidden paths are never bypassed, regardless of approval.
func (g *Guard) Approve(path string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.approved[normalize(path)] = true
}

func (g *Guard) isApproved(path string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.approved[normalize(path)]
}

// normalize strips a leading "./" from a path for pattern comparison.
func normalize(p string) string {
	return strings.TrimPrefix(p, "./")
}

// matches implements spec.md §4.4's pattern-matching rule: a path matches a
// pattern if the path matches the pattern, matches the pattern with "/**"
// appended, or the pattern's literal (non-wildcard) prefix is a path-prefix.
func matches(pattern, path string) bool {
	pattern = normalize(pattern)
	path = normalize(path)

	if ok, _ := doublestar.Match(pattern, path); ok {
		return true
	}
	if ok, _ := doublestar.Match(pattern+"/**", path); ok {
		return true
	}
	return strings.HasPrefix(path, literalPrefix(pattern))
}

// literalPrefix returns the portion of a glob pattern before its first
// wildcard character (the whole pattern when it has none). A trailing path
// separator is kept, so "src/**" yields "src/".
func literalPrefix(pattern string) string {
	idx := strings.IndexAny(pattern, "*?[{")
	prefix := pattern
	if idx >= 0 {
		prefix = pattern[:idx]
	}
	return prefix
}

func anyMatches(patterns []string, path string) bool {
	for _, p := range patterns {
		if matches(p, path) {
			return true
		}
	}
	return false
}

// Decide evaluates the strict precedence order of §4.4 for a single path.
func (g *Guard) Decide(path string) (Decision, string) {
	if anyMatches(g.scope.Forbidden, path) {
		return Block, "path matches a forbidden pattern"
	}

	if anyMatches(g.scope.AskBefore, path) {
		if g.isApproved(path) {
			return Allow, "previously approved for this run"
		}
		if g.mode == task.EnforcementPermissive {
			return Allow, "permissive mode"
		}
		return AskUser, "path matches an ask-before pattern"
	}

	// An empty allowed set restricts nothing except under strict mode,
	// where it blocks every path not already decided above.
	if (len(g.scope.Allowed) > 0 || g.mode == task.EnforcementStrict) && !anyMatches(g.scope.Allowed, path) {
		if g.isApproved(path) {
			return Allow, "previously approved for this run"
		}
		switch g.mode {
		case task.EnforcementStrict:
			return Block, "path is not in the allowed set (strict mode)"
		case task.EnforcementAsk:
			return AskUser, "path is not in the allowed set"
		default:
			return Allow, "permissive mode"
		}
	}

	return Allow, "no restricting pattern applies"
}

// Validate aggregates the decision across a set of changes: BLOCK wins over
// ASK_USER wins over ALLOW, with the per-file violation list attached.
func (g *Guard) Validate(changes []Change) (Decision, []Violation) {
	overall := Allow
	var violations []Violation
	for _, c := range changes {
		d, reason := g.Decide(c.Path)
		if d != Allow {
			violations = append(violations, Violation{Path: c.Path, Type: c.Type, Decision: d, Reason: reason})
		}
		if rank(d) > rank(overall) {
			overall = d
		}
	}
	return overall, violations
}

func rank(d Decision) int {
	switch d {
	case Block:
		return 2
	case AskUser:
		return 1
	default:
		return 0
	}
}

// ChangesToRevert returns the subset of changes whose decision is BLOCK and
// which were not approved — the reactive path the Executor feeds to
// GitOps.Checkout.
func (g *Guard) ChangesToRevert(changes []Change) []Change {
	var out []Change
	for _, c := range changes {
		if d, _ := g.Decide(c.Path); d == Block {
			out = append(out, c)
		}
	}
	return out
}

// GenerateViolationReport renders a Markdown block listing each violation
// plus the scope configuration, appended to the task file when a run ends
// blocked.
func (g *Guard) GenerateViolationReport(changes []Change) string {
	_, violations := g.Validate(changes)

	var sb strings.Builder
	sb.WriteString("### Scope Violations\n\n")
	if len(violations) == 0 {
		sb.WriteString("(none)\n")
	} else {
		for _, v := range violations {
			fmt.Fprintf(&sb, "- `%s` (%s): **%s** — %s\n", v.Path, v.Type, v.Decision, v.Reason)
		}
	}

	sb.WriteString("\n### Scope Configuration\n\n")
	writePatternList(&sb, "Allowed", g.scope.Allowed)
	writePatternList(&sb, "Forbidden", g.scope.Forbidden)
	writePatternList(&sb, "Ask Before", g.scope.AskBefore)

	return sb.String()
}

func writePatternList(sb *strings.Builder, label string, patterns []string) {
	fmt.Fprintf(sb, "- %s: ", label)
	if len(patterns) == 0 {
		sb.WriteString("(empty)\n")
		return
	}
	sb.WriteString(strings.Join(patterns, ", "))
	sb.WriteString("\n")
}

// AbsPath is a small convenience used by callers that need to normalize a
// change path relative to a working directory before calling Decide.
func AbsPath(workDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(workDir, path)
}
