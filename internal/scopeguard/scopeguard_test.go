package scopeguard

import (
	"testing"

	"github.com/rubenmavarezb/aidf/internal/task"
)

func TestDecide_Precedence_ForbiddenWinsOverAllowed(t *testing.T) {
	g := New(task.Scope{
		Allowed:   []string{"src/**"},
		Forbidden: []string{"src/secret.ts"},
	}, task.EnforcementStrict)

	d, _ := g.Decide("src/secret.ts")
	if d != Block {
		t.Errorf("Decide(src/secret.ts) = %s, want BLOCK", d)
	}
}

func TestDecide_StrictMode_OutsideAllowedBlocks(t *testing.T) {
	g := New(task.Scope{Allowed: []string{"src/**"}}, task.EnforcementStrict)

	if d, _ := g.Decide("src/foo.ts"); d != Allow {
		t.Errorf("Decide(src/foo.ts) = %s, want ALLOW", d)
	}
	if d, _ := g.Decide("README.md"); d != Block {
		t.Errorf("Decide(README.md) = %s, want BLOCK", d)
	}
}

func TestDecide_EmptyAllowedUnderStrict_BlocksEverything(t *testing.T) {
	g := New(task.Scope{}, task.EnforcementStrict)

	if d, _ := g.Decide("anything.ts"); d != Block {
		t.Errorf("Decide on empty allowed/strict = %s, want BLOCK", d)
	}
}

func TestDecide_AskBefore(t *testing.T) {
	g := New(task.Scope{AskBefore: []string{"config/**"}}, task.EnforcementStrict)

	d, _ := g.Decide("config/app.json")
	if d != AskUser {
		t.Errorf("Decide(config/app.json) = %s, want ASK_USER", d)
	}

	g.Approve("config/app.json")
	d, _ = g.Decide("config/app.json")
	if d != Allow {
		t.Errorf("after Approve: Decide = %s, want ALLOW", d)
	}
}

func TestDecide_PermissiveMode(t *testing.T) {
	g := New(task.Scope{Allowed: []string{"src/**"}}, task.EnforcementPermissive)

	if d, _ := g.Decide("README.md"); d != Allow {
		t.Errorf("permissive mode: Decide(README.md) = %s, want ALLOW", d)
	}
}

func TestValidate_Aggregation_BlockWinsOverAsk(t *testing.T) {
	g := New(task.Scope{
		Allowed:   []string{"src/**"},
		AskBefore: []string{"config/**"},
	}, task.EnforcementStrict)

	decision, violations := g.Validate([]Change{
		{Path: "src/a.ts", Type: Modified},
		{Path: "config/app.json", Type: Modified},
		{Path: "README.md", Type: Modified},
	})

	if decision != Block {
		t.Errorf("Validate() decision = %s, want BLOCK", decision)
	}
	if len(violations) != 2 {
		t.Errorf("expected 2 violations (ask + block), got %d: %+v", len(violations), violations)
	}
}

func TestChangesToRevert(t *testing.T) {
	g := New(task.Scope{Allowed: []string{"src/**"}}, task.EnforcementStrict)

	toRevert := g.ChangesToRevert([]Change{
		{Path: "src/a.ts", Type: Modified},
		{Path: "README.md", Type: Created},
	})

	if len(toRevert) != 1 || toRevert[0].Path != "README.md" {
		t.Errorf("ChangesToRevert = %+v, want only README.md", toRevert)
	}
}

func TestMatches_DirectoryPrefixGlob(t *testing.T) {
	if !matches("src/**", "src/a/b/c.ts") {
		t.Error("expected src/** to match nested path")
	}
	if !matches("src", "src/a.ts") {
		t.Error("expected bare prefix pattern to match via /** append rule")
	}
	if matches("src/**", "lib/a.ts") {
		t.Error("did not expect src/** to match lib/a.ts")
	}
}

func TestGenerateViolationReport_IncludesConfig(t *testing.T) {
	g := New(task.Scope{Allowed: []string{"src/**"}, Forbidden: []string{".env*"}}, task.EnforcementStrict)
	report := g.GenerateViolationReport([]Change{{Path: ".env", Type: Modified}})

	if report == "" {
		t.Fatal("expected non-empty report")
	}
}
