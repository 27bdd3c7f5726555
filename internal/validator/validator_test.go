package validator

import (
	"context"
	"strings"
	"testing"

	"github.com/rubenmavarezb/aidf/internal/config"
)

func TestRun_AllPass(t *testing.T) {
	cfg := config.ValidationConfig{PreCommit: []string{"true", "echo ok"}}
	v := New(cfg, t.TempDir())

	result := v.Run(context.Background(), PreCommit)
	if !result.Passed {
		t.Errorf("expected phase to pass, got %+v", result)
	}
	if len(result.Results) != 2 {
		t.Errorf("expected 2 commands run, got %d", len(result.Results))
	}
}

func TestRun_PreCommitStopsAtFirstFailure(t *testing.T) {
	cfg := config.ValidationConfig{PreCommit: []string{"false", "echo never"}}
	v := New(cfg, t.TempDir())

	result := v.Run(context.Background(), PreCommit)
	if result.Passed {
		t.Error("expected phase to fail")
	}
	if len(result.Results) != 1 {
		t.Errorf("expected early exit after first failing command, got %d commands run", len(result.Results))
	}
}

func TestRun_PrePR_RunsAllEvenOnFailure(t *testing.T) {
	cfg := config.ValidationConfig{PrePR: []string{"false", "echo still-ran"}}
	v := New(cfg, t.TempDir())

	result := v.Run(context.Background(), PrePR)
	if result.Passed {
		t.Error("expected phase to fail")
	}
	if len(result.Results) != 2 {
		t.Errorf("expected pre_pr to run both commands despite the first failing, got %d", len(result.Results))
	}
}

func TestRun_EmptyPhaseTriviallyPasses(t *testing.T) {
	v := New(config.ValidationConfig{}, t.TempDir())

	result := v.Run(context.Background(), PrePush)
	if !result.Passed {
		t.Error("expected empty phase to pass")
	}
}

func TestRun_CapturesStdoutAndExitCode(t *testing.T) {
	cfg := config.ValidationConfig{PrePR: []string{"echo hello"}}
	v := New(cfg, t.TempDir())

	result := v.Run(context.Background(), PrePR)
	if !strings.Contains(result.Results[0].Output, "hello") {
		t.Errorf("Output = %q, want it to contain %q", result.Results[0].Output, "hello")
	}
	if result.Results[0].ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", result.Results[0].ExitCode)
	}
}

func TestRun_NonZeroExit(t *testing.T) {
	cfg := config.ValidationConfig{PreCommit: []string{"exit 7"}}
	v := New(cfg, t.TempDir())

	result := v.Run(context.Background(), PreCommit)
	if result.Passed {
		t.Error("expected failure")
	}
	if result.Results[0].ExitCode != 7 {
		t.Errorf("ExitCode = %d, want 7", result.Results[0].ExitCode)
	}
}
