package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/taskmaster/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the dependency tools over MCP on stdin/stdout",
	RunE: runWithEnv(func(_ context.Context, _ *cobra.Command, e *env, _ []string) error {
		e.printer.Debugf("serving %s over MCP", e.store.Location())
		return mcpserver.New(e.mgr, Version).ServeStdio()
	}),
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
