package contextloader

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/rubenmavarezb/aidf/internal/task"
)

// sectionRe matches a level-2 Markdown header: "## Goal", "## Status: blocked".
var sectionRe = regexp.MustCompile(`(?m)^##\s+(.+?)\s*$`)

// subsectionRe matches a level-3 Markdown header under "## Scope".
var subsectionRe = regexp.MustCompile(`(?m)^###\s+(.+?)\s*$`)

// bulletRe matches a "- item" or "* item" list line.
var bulletRe = regexp.MustCompile(`(?m)^\s*[-*]\s+(.+?)\s*$`)

// checkboxRe matches a GitHub-style checkbox list item.
var checkboxRe = regexp.MustCompile(`(?m)^\s*[-*]\s+\[([ xX])\]\s+(.+?)\s*$`)

// sections splits markdown into a map of header title (lowercased, trimmed)
// to body text, using ParsePlanFromMarkdown-style index slicing on the
// top-level "## " headers.
func sections(markdown string) map[string]string {
	matches := sectionRe.FindAllStringSubmatchIndex(markdown, -1)
	out := make(map[string]string, len(matches))
	for i, m := range matches {
		title := strings.ToLower(strings.TrimSpace(markdown[m[2]:m[3]]))
		bodyStart := m[1]
		bodyEnd := len(markdown)
		if i+1 < len(matches) {
			bodyEnd = matches[i+1][0]
		}
		out[title] = strings.TrimSpace(markdown[bodyStart:bodyEnd])
	}
	return out
}

func subsections(markdown string) map[string]string {
	matches := subsectionRe.FindAllStringSubmatchIndex(markdown, -1)
	out := make(map[string]string, len(matches))
	for i, m := range matches {
		title := strings.ToLower(strings.TrimSpace(markdown[m[2]:m[3]]))
		bodyStart := m[1]
		bodyEnd := len(markdown)
		if i+1 < len(matches) {
			bodyEnd = matches[i+1][0]
		}
		out[title] = strings.TrimSpace(markdown[bodyStart:bodyEnd])
	}
	return out
}

func bullets(body string) []string {
	matches := bulletRe.FindAllStringSubmatch(body, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, unquoteBacktick(strings.TrimSpace(m[1])))
	}
	return out
}

func checkboxes(body string) []string {
	matches := checkboxRe.FindAllStringSubmatch(body, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.TrimSpace(m[2]))
	}
	return out
}

// unquoteBacktick strips a single pair of surrounding backticks, matching
// spec's "backticks around paths stripped" rule for scope patterns.
func unquoteBacktick(s string) string {
	if len(s) >= 2 && s[0] == '`' && s[len(s)-1] == '`' {
		return s[1 : len(s)-1]
	}
	return s
}

// ParseTaskFile reads a task specification Markdown file into a task.Task.
func ParseTaskFile(path string) (task.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return task.Task{}, fmt.Errorf("read task file: %w", err)
	}
	md := string(data)
	secs := sections(md)

	t := task.Task{
		FilePath:     path,
		Goal:         secs["goal"],
		TaskType:     secs["task type"],
		Requirements: secs["requirements"],
		Notes:        secs["notes"],
	}

	if roles, ok := secs["suggested roles"]; ok {
		t.SuggestedRoles = bullets(roles)
	}
	if dod, ok := secs["definition of done"]; ok {
		t.DefinitionOfDone = checkboxes(dod)
	}
	if scopeBody, ok := secs["scope"]; ok {
		sub := subsections(scopeBody)
		t.Scope = task.Scope{
			Allowed:   bullets(sub["allowed"]),
			Forbidden: bullets(sub["forbidden"]),
			AskBefore: bullets(sub["ask before"]),
		}
	}

	for title := range secs {
		if strings.HasPrefix(title, "status:") {
			status := strings.TrimSpace(strings.TrimPrefix(title, "status:"))
			if strings.EqualFold(status, "blocked") {
				t.BlockedStatus = parseBlockedStatus(secs[title])
			}
		}
	}

	return t, nil
}

var (
	iterationRe = regexp.MustCompile(`(?m)^-\s*Previous iteration:\s*(\d+)`)
	blockingRe  = regexp.MustCompile(`(?m)^-\s*Blocking issue:\s*(.+)$`)
	modifiedRe  = regexp.MustCompile(`(?m)^-\s*Files modified:\s*(.+)$`)
)

func parseBlockedStatus(body string) *task.BlockedStatus {
	bs := &task.BlockedStatus{}
	if m := iterationRe.FindStringSubmatch(body); m != nil {
		fmt.Sscanf(m[1], "%d", &bs.PreviousIteration)
	}
	if m := blockingRe.FindStringSubmatch(body); m != nil {
		bs.BlockingIssue = strings.TrimSpace(m[1])
	}
	if m := modifiedRe.FindStringSubmatch(body); m != nil {
		for _, f := range strings.Split(m[1], ",") {
			f = strings.TrimSpace(f)
			if f != "" {
				bs.FilesModified = append(bs.FilesModified, f)
			}
		}
	}
	return bs
}
