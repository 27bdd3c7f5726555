package commands

import "testing"

func TestNewRootCommand_RegistersSubcommands(t *testing.T) {
	cmd := NewRootCommand("test", "abc123")
	if cmd.Name != "aidf" {
		t.Errorf("Name = %q, want aidf", cmd.Name)
	}

	want := map[string]bool{"run": false, "mcp-serve": false, "watch": false}
	for _, sub := range cmd.Commands {
		if _, ok := want[sub.Name]; ok {
			want[sub.Name] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}
