package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/agentic-research/pipeconv/internal/coeffs"
	"github.com/agentic-research/pipeconv/internal/validate"
	"github.com/spf13/cobra"
)

var (
	checkFiles bool
	treeOutput bool
)

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Check a CamillaDSP config for broken references and channel ranges",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig(cmd, args[0])
		if err != nil {
			return err
		}
		issues := validate.Config(cfg)

		var problems []coeffs.Problem
		if checkFiles {
			base := conf.ConfigDir
			if args[0] != "-" {
				path, err := resolveInput(args[0])
				if err != nil {
					return err
				}
				base = filepath.Dir(path)
			}
			if base == "" {
				return fmt.Errorf("--check-files on stdin needs a config directory")
			}
			problems, err = coeffs.Check(ws.FS, coeffs.MakeAbsolute(cfg, base), conf.CoeffDir)
			if err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		if treeOutput {
			t, err := validate.Tree(issues)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(t, "", "  ")
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintln(out, string(data)); err != nil {
				return err
			}
		} else {
			for _, is := range issues {
				if _, err := fmt.Fprintln(out, is.String()); err != nil {
					return err
				}
			}
		}
		for _, p := range problems {
			if _, err := fmt.Fprintln(out, p.String()); err != nil {
				return err
			}
		}

		if n := len(issues) + len(problems); n > 0 {
			return fmt.Errorf("%s: %d problem(s) found", args[0], n)
		}
		logger.Debug("config is valid", "file", args[0])
		return nil
	},
}

func init() {
	validateCmd.Flags().BoolVar(&checkFiles, "check-files", false, "Also check that coefficient files exist")
	validateCmd.Flags().BoolVar(&treeOutput, "tree", false, "Print issues as a nested JSON object")
	rootCmd.AddCommand(validateCmd)
}
