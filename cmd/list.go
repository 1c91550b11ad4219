package cmd

import (
	"fmt"

	"github.com/agentic-research/pipeconv/internal/coeffs"
	"github.com/spf13/cobra"
)

var listRelative bool

var listCmd = &cobra.Command{
	Use:       "list configs|coeffs",
	Short:     "List the configs or coefficient files in the configured directories",
	ValidArgs: []string{"configs", "coeffs"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			names  []string
			prefix string
			err    error
		)
		switch args[0] {
		case "configs":
			if ws.ConfigDir == "" {
				return fmt.Errorf("no config directory configured")
			}
			names, err = ws.Configs()
		case "coeffs":
			if ws.CoeffDir == "" {
				return fmt.Errorf("no coefficient directory configured")
			}
			if listRelative {
				prefix, err = coeffs.RelativeCoeffDir(ws.ConfigDir, ws.CoeffDir)
				if err != nil {
					return err
				}
			}
			names, err = ws.Coefficients()
		}
		if err != nil {
			return err
		}
		for _, name := range names {
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), prefix+name); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVar(&listRelative, "relative", false,
		"Prefix coefficient files with their path relative to the config directory")
	rootCmd.AddCommand(listCmd)
}
