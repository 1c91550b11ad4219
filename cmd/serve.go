package cmd

import (
	"github.com/agentic-research/pipeconv/internal/mcpserver"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the converters as MCP tools over stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		srv := mcpserver.New(mcpserver.Options{
			Version:   Version,
			Channels:  conf.Channels,
			Migrate:   conf.Migrate,
			Workspace: ws,
		}, logger)
		return srv.ServeStdio()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
