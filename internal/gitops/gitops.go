// Package gitops wraps the narrow slice of git plumbing the Executor needs:
// status, add, commit, checkout (revert), and push.
package gitops

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const defaultTimeout = 15 * time.Second

// Client runs git commands against a fixed working directory.
type Client struct {
	Dir string
}

// New constructs a Client rooted at dir.
func New(dir string) *Client {
	return &Client{Dir: dir}
}

// FileStatus is one line of `git status --porcelain` output.
type FileStatus struct {
	Path  string
	State string // e.g. "M", "A", "D", "??"
}

// Status returns the working tree's changed files.
func (c *Client) Status(ctx context.Context) ([]FileStatus, error) {
	out, err := c.run(ctx, "status", "--porcelain", "--untracked-files=all")
	if err != nil {
		return nil, err
	}
	var result []FileStatus
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if len(line) < 4 {
			continue
		}
		result = append(result, FileStatus{
			State: strings.TrimSpace(line[:2]),
			Path:  strings.TrimSpace(line[3:]),
		})
	}
	return result, nil
}

// Add stages the given paths.
func (c *Client) Add(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	_, err := c.run(ctx, append([]string{"add"}, paths...)...)
	return err
}

// Commit creates a commit with the given message. Returns an error (not
// fatal to the caller) if there is nothing staged to commit.
func (c *Client) Commit(ctx context.Context, message string) error {
	_, err := c.run(ctx, "commit", "-m", message)
	return err
}

// Checkout restores the given paths to their last-committed state, the
// reactive enforcement path used to revert out-of-scope edits.
func (c *Client) Checkout(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	_, err := c.run(ctx, append([]string{"checkout", "--"}, paths...)...)
	return err
}

// Push pushes the current branch to its upstream remote.
func (c *Client) Push(ctx context.Context) error {
	_, err := c.run(ctx, "push")
	return err
}

// CurrentBranch returns the checked-out branch name.
func (c *Client) CurrentBranch(ctx context.Context) (string, error) {
	return c.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
}

// CreateBranch creates and checks out a new branch.
func (c *Client) CreateBranch(ctx context.Context, name string) error {
	_, err := c.run(ctx, "checkout", "-b", name)
	return err
}

func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = c.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), ctx.Err())
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("git %s: %s", strings.Join(args, " "), msg)
	}

	return strings.TrimRight(stdout.String(), "\n"), nil
}
