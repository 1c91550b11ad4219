// Package settings loads the tool's own settings: an optional HCL file,
// overridden by PIPECONV_* variables from the environment or a .env file.
// The process environment wins over .env.
package settings

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

// Environment variable names.
const (
	EnvConfigDir = "PIPECONV_CONFIG_DIR"
	EnvCoeffDir  = "PIPECONV_COEFF_DIR"
	EnvChannels  = "PIPECONV_CHANNELS"
	EnvFormat    = "PIPECONV_FORMAT"
	EnvMigrate   = "PIPECONV_MIGRATE"
)

// Output formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Settings holds defaults for the command line.
type Settings struct {
	// ConfigDir is where configs are read from and saved to.
	ConfigDir string `hcl:"config_dir,optional"`
	// CoeffDir is where coefficient files live.
	CoeffDir string `hcl:"coeff_dir,optional"`
	// Channels is the EqAPO channel count when --channels is not given.
	Channels int `hcl:"channels,optional"`
	// Format is the output format, yaml or json.
	Format string `hcl:"format,optional"`
	// Migrate upgrades translator output to the current schema.
	Migrate bool `hcl:"migrate,optional"`
}

// Default returns the built-in settings.
func Default() *Settings {
	return &Settings{
		Channels: 2,
		Format:   FormatYAML,
		Migrate:  true,
	}
}

// Load builds settings from defaults, the HCL (or HCL JSON) file at path
// when path is not empty, the given .env files and the environment. With
// no envFiles, a .env in the working directory is loaded if present.
func Load(path string, envFiles ...string) (*Settings, error) {
	s := Default()
	if path != "" {
		if err := hclsimple.DecodeFile(path, nil, s); err != nil {
			return nil, fmt.Errorf("settings %s: %w", path, err)
		}
	}

	dotenv := map[string]string{}
	if len(envFiles) == 0 {
		if m, err := godotenv.Read(); err == nil {
			dotenv = m
		}
	} else {
		m, err := godotenv.Read(envFiles...)
		if err != nil {
			return nil, fmt.Errorf("load env: %w", err)
		}
		dotenv = m
	}

	if err := s.applyEnv(lookup(dotenv)); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	slog.Debug("settings loaded", "file", path, "config_dir", s.ConfigDir, "coeff_dir", s.CoeffDir,
		"channels", s.Channels, "format", s.Format, "migrate", s.Migrate)
	return s, nil
}

// lookup reads a variable from the process environment, falling back to
// the .env values. Blank values count as unset.
func lookup(dotenv map[string]string) func(string) string {
	return func(key string) string {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
		return strings.TrimSpace(dotenv[key])
	}
}

func (s *Settings) applyEnv(getenv func(string) string) error {
	if v := getenv(EnvConfigDir); v != "" {
		s.ConfigDir = v
	}
	if v := getenv(EnvCoeffDir); v != "" {
		s.CoeffDir = v
	}
	if v := getenv(EnvChannels); v != "" {
		n, err := cast.ToIntE(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvChannels, err)
		}
		s.Channels = n
	}
	if v := getenv(EnvFormat); v != "" {
		s.Format = v
	}
	if v := getenv(EnvMigrate); v != "" {
		b, err := cast.ToBoolE(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMigrate, err)
		}
		s.Migrate = b
	}
	return nil
}

// Validate checks the values and normalizes the format name.
func (s *Settings) Validate() error {
	s.Format = strings.ToLower(s.Format)
	switch s.Format {
	case FormatYAML, FormatJSON:
	default:
		return fmt.Errorf("format must be %s or %s, got %q", FormatYAML, FormatJSON, s.Format)
	}
	if s.Channels < 1 {
		return fmt.Errorf("channels must be at least 1, got %d", s.Channels)
	}
	return nil
}

// AbsDirs makes ConfigDir and CoeffDir absolute. An empty CoeffDir
// defaults to ConfigDir.
func (s *Settings) AbsDirs() error {
	for _, dir := range []*string{&s.ConfigDir, &s.CoeffDir} {
		if *dir == "" {
			continue
		}
		abs, err := filepath.Abs(*dir)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", *dir, err)
		}
		*dir = abs
	}
	if s.CoeffDir == "" {
		s.CoeffDir = s.ConfigDir
	}
	return nil
}
