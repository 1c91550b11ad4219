package cmd

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/agentic-research/pipeconv/api"
	"github.com/agentic-research/pipeconv/internal/settings"
	"github.com/spf13/cobra"
)

// readInput reads a file argument, or stdin for "-". A relative name that
// does not exist in the working directory is looked up in the config
// directory.
func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	path, err := resolveInput(name)
	if err != nil {
		return nil, err
	}
	return ws.ReadFile(path)
}

func resolveInput(name string) (string, error) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", name, err)
	}
	if filepath.IsAbs(name) || ws.ConfigDir == "" {
		return abs, nil
	}
	if ok, err := ws.Exists(abs); err != nil || ok {
		return abs, nil
	}
	p, err := ws.ConfigPath(name)
	if err != nil {
		return abs, nil
	}
	if ok, _ := ws.Exists(p); ok {
		logger.Debug("input found in config dir", "name", name, "path", p)
		return p, nil
	}
	return abs, nil
}

// readConfig reads and decodes a configuration file argument.
func readConfig(cmd *cobra.Command, name string) (*api.Config, error) {
	data, err := readInput(cmd, name)
	if err != nil {
		return nil, err
	}
	cfg, err := api.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return cfg, nil
}

func encode(cfg *api.Config) ([]byte, error) {
	if conf.Format == settings.FormatJSON {
		return api.EncodeJSON(cfg)
	}
	return api.EncodeYAML(cfg)
}

// writeConfig encodes cfg in the selected format and writes it to --out,
// or to stdout when --out is not set.
func writeConfig(cmd *cobra.Command, cfg *api.Config) error {
	data, err := encode(cfg)
	if err != nil {
		return err
	}
	if outPath == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	abs, err := filepath.Abs(outPath)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", outPath, err)
	}
	if err := ws.WriteFile(abs, data); err != nil {
		return err
	}
	logger.Info("wrote config", "path", abs, "format", conf.Format)
	return nil
}

// outputDir is the directory the result is saved in: that of --out, else
// the config directory. Empty when neither is known.
func outputDir() (string, error) {
	if outPath == "" {
		return conf.ConfigDir, nil
	}
	abs, err := filepath.Abs(outPath)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", outPath, err)
	}
	return filepath.Dir(abs), nil
}
