package cmd

import (
	"fmt"

	"github.com/agentic-research/pipeconv/internal/legacy"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate [file]",
	Short: "Upgrade a CamillaDSP config to the current schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig(cmd, args[0])
		if err != nil {
			return err
		}
		return writeConfig(cmd, legacy.Migrate(cfg, logger))
	},
}

var detectCmd = &cobra.Command{
	Use:   "detect [file]",
	Short: "Report the schema version a CamillaDSP config was written for",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig(cmd, args[0])
		if err != nil {
			return err
		}
		v, reason := legacy.Explain(cfg)
		if reason == "" {
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "version %d (current)\n", v)
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "version %d: %s\n", v, reason)
		return err
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd, detectCmd)
}
