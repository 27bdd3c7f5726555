package commands

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rubenmavarezb/aidf/internal/mcpserver"
	"github.com/rubenmavarezb/aidf/internal/scopeguard"
	"github.com/rubenmavarezb/aidf/internal/task"
)

// NewMCPServeCommand returns the mcp-serve subcommand.
func NewMCPServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp-serve",
		Usage: "Expose the aidf tool set and task context as an MCP server (stdio)",
		Action: runMCPServe,
	}
}

func runMCPServe(ctx context.Context, cmd *cli.Command) error {
	// stdout is reserved for the MCP stdio transport.
	setupLogging(cmd.Bool("debug"))

	cfg, err := loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	workDir, err := os.Getwd()
	if err != nil {
		return err
	}

	// MCP clients perform their own confirmation UX; grant the widest
	// scope here and let the tool policy (commands.allowed/blocked) hold.
	guard := scopeguard.New(task.Scope{}, task.EnforcementPermissive)

	server := mcpserver.New(workDir, guard, cfg.Commands, cfg.Skills.Enabled, cfg.Skills.Directories)
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}
