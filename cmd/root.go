package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/agentic-research/pipeconv/internal/settings"
	"github.com/agentic-research/pipeconv/internal/workspace"
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags.
var Version = "dev"

var (
	settingsPath string
	formatFlag   string
	outPath      string
	verbose      bool
)

// State shared by the subcommands, rebuilt by setup on every run.
var (
	conf   *settings.Settings
	ws     *workspace.Workspace
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:               "pipeconv",
	Short:             "Convert Convolver and EqualizerAPO configs to CamillaDSP pipelines",
	Version:           Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", "", "Path to an HCL settings file")
	rootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "", "Output format: yaml or json")
	rootCmd.PersistentFlags().StringVarP(&outPath, "out", "o", "", "Write the result to this file instead of stdout")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Log debug output")
}

func setup(cmd *cobra.Command, _ []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	s, err := settings.Load(settingsPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("format") {
		s.Format = formatFlag
		if err := s.Validate(); err != nil {
			return err
		}
	}
	if err := s.AbsDirs(); err != nil {
		return err
	}
	conf = s
	ws = workspace.OS(s.ConfigDir, s.CoeffDir)
	return nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
