package provider

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/rubenmavarezb/aidf/internal/aidferr"
	"github.com/rubenmavarezb/aidf/internal/config"
	"github.com/rubenmavarezb/aidf/internal/gitops"
)

var (
	taskCompleteRe = regexp.MustCompile(`<TASK_COMPLETE>|<DONE>`)
	taskBlockedRe  = regexp.MustCompile(`<TASK_BLOCKED:\s*(.*?)>`)
)

// subprocessProvider spawns an external coding-agent CLI (claude-cli,
// cursor-cli) with the prompt on stdin, streams stdout back through
// onOutput, and infers completion from sentinel markers in the streamed
// text rather than from a structured tool call — subprocess providers
// never touch the ToolHandler, they write files directly to disk.
type subprocessProvider struct {
	binary string
	cfg    config.ProviderConfig
}

func newSubprocessProvider(cfg config.ProviderConfig) *subprocessProvider {
	binary := "claude"
	if cfg.Type == "cursor-cli" {
		binary = "cursor-agent"
	}
	return &subprocessProvider{binary: binary, cfg: cfg}
}

func (p *subprocessProvider) Name() string { return p.cfg.Type }

func (p *subprocessProvider) IsAvailable(ctx context.Context) bool {
	_, err := exec.LookPath(p.binary)
	return err == nil
}

func (p *subprocessProvider) Execute(ctx context.Context, prompt string, opts Options) ExecutionResult {
	timeout := time.Duration(opts.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.binary)
	cmd.Dir = opts.WorkDir
	cmd.Stdin = strings.NewReader(prompt)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return crashResult(err)
	}
	stderrBuf := &strings.Builder{}
	cmd.Stderr = &lineWriter{w: stderrBuf}

	if err := cmd.Start(); err != nil {
		return crashResult(err)
	}

	var out strings.Builder
	complete, blocked := false, false
	blockReason := ""

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		out.WriteString(line)
		out.WriteString("\n")
		if opts.OnOutput != nil {
			opts.OnOutput(line + "\n")
		}
		if taskCompleteRe.MatchString(line) {
			complete = true
		}
		if m := taskBlockedRe.FindStringSubmatch(line); m != nil {
			blocked = true
			blockReason = strings.TrimSpace(m[1])
		}
	}

	waitErr := cmd.Wait()

	if ctx.Err() == context.DeadlineExceeded {
		return ExecutionResult{
			Success: false,
			Err:     aidferr.New(aidferr.CategoryTimeout, aidferr.CodeIterationTimeout, ctx.Err()),
			Output:  out.String(),
		}
	}

	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			return ExecutionResult{
				Success: false,
				Err: aidferr.New(aidferr.CategoryProvider, aidferr.CodeProviderAPIError, waitErr).
					WithContext("exit_code", exitErr.ExitCode()),
				Output: out.String() + "\n" + stderrBuf.String(),
			}
		}
		return crashResult(waitErr)
	}

	filesChanged := p.filesChanged(ctx, opts.WorkDir)

	return ExecutionResult{
		Success:           true,
		Output:            out.String(),
		FilesChanged:      filesChanged,
		IterationComplete: complete,
		Blocked:           blocked,
		BlockReason:       blockReason,
	}
}

func (p *subprocessProvider) filesChanged(ctx context.Context, workDir string) []string {
	client := gitops.New(workDir)
	statuses, err := client.Status(ctx)
	if err != nil {
		return nil
	}
	paths := make([]string, 0, len(statuses))
	for _, s := range statuses {
		paths = append(paths, s.Path)
	}
	return paths
}

func crashResult(err error) ExecutionResult {
	return ExecutionResult{
		Success: false,
		Err:     aidferr.New(aidferr.CategoryProvider, aidferr.CodeProviderCrash, err),
	}
}

// lineWriter buffers writes into an underlying strings.Builder; used only
// for stderr capture (no line-splitting requirement there).
type lineWriter struct {
	w io.StringWriter
}

func (l *lineWriter) Write(p []byte) (int, error) {
	_, err := l.w.WriteString(string(p))
	return len(p), err
}
