package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/agentic-research/pipeconv/internal/query"
	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:     "query [file] [jsonpath]",
	Short:   "Print the values a JSONPath expression selects from a config",
	Example: "  pipeconv query camilla.yml '$.filters.*.type'",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig(cmd, args[0])
		if err != nil {
			return err
		}
		matches, err := query.Config(cfg, args[1])
		if err != nil {
			return err
		}
		logger.Debug("query", "expr", args[1], "matches", len(matches))
		for _, m := range matches {
			data, err := json.Marshal(m.Value())
			if err != nil {
				return fmt.Errorf("encode match: %w", err)
			}
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), string(data)); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
}
