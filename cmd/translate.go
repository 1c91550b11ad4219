package cmd

import (
	"fmt"

	"github.com/agentic-research/pipeconv/api"
	"github.com/agentic-research/pipeconv/internal/coeffs"
	"github.com/agentic-research/pipeconv/internal/convolver"
	"github.com/agentic-research/pipeconv/internal/eqapo"
	"github.com/agentic-research/pipeconv/internal/legacy"
	"github.com/spf13/cobra"
)

type translateFlags struct {
	migrate  bool
	relative bool
}

func (f *translateFlags) bind(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.migrate, "migrate", true, "Upgrade the result to the current config schema")
	cmd.Flags().BoolVar(&f.relative, "relative", false,
		"Write coefficient paths relative to the output file's directory")
}

var (
	convolverFlags translateFlags
	eqapoFlags     translateFlags
	eqapoChannels  int
)

var convolverCmd = &cobra.Command{
	Use:   "convolver [file]",
	Short: "Translate a Convolver config",
	Long: "Translate a Convolver config into a CamillaDSP config.\n" +
		"Impulse response filenames are resolved against the coefficient directory when one is set.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}
		cfg, _, err := convolver.Translate(string(data), logger)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		return finish(cmd, &convolverFlags, cfg)
	},
}

var eqapoCmd = &cobra.Command{
	Use:   "eqapo [file]",
	Short: "Translate an EqualizerAPO config",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		channels := eqapoChannels
		if !cmd.Flags().Changed("channels") {
			channels = conf.Channels
		}
		if channels < 1 {
			return fmt.Errorf("channels must be at least 1, got %d", channels)
		}
		data, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}
		cfg, _ := eqapo.Translate(string(data), channels, logger)
		return finish(cmd, &eqapoFlags, cfg)
	},
}

func init() {
	convolverFlags.bind(convolverCmd)
	eqapoCmd.Flags().IntVarP(&eqapoChannels, "channels", "c", 2, "Number of channels")
	eqapoFlags.bind(eqapoCmd)
	rootCmd.AddCommand(convolverCmd, eqapoCmd)
}

// finish applies the post-translation steps shared by the translators.
func finish(cmd *cobra.Command, f *translateFlags, cfg *api.Config) error {
	migrate := conf.Migrate
	if cmd.Flags().Changed("migrate") {
		migrate = f.migrate
	}
	if migrate {
		cfg = legacy.Migrate(cfg, logger)
	}
	if conf.CoeffDir != "" {
		cfg = coeffs.MakeAbsolute(cfg, conf.CoeffDir)
	}
	if f.relative {
		dir, err := outputDir()
		if err != nil {
			return err
		}
		if dir == "" {
			return fmt.Errorf("--relative needs --out or a config directory")
		}
		cfg = coeffs.MakeRelative(cfg, dir)
	}
	return writeConfig(cmd, cfg)
}
