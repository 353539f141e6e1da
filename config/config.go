// Package config loads proctree settings from flags, PROCTREE_* environment
// variables and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"proctree/process_tree"
	"proctree/tree_render"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

const EnvPrefix = "PROCTREE"

// Providers lists the accepted values of the provider setting
var Providers = []string{"auto", "procfs", "toolhelp", "gopsutil"}

type Config struct {
	Format   string        `mapstructure:"format"`
	Strategy string        `mapstructure:"strategy"`
	Provider string        `mapstructure:"provider"`
	ProcRoot string        `mapstructure:"proc-root"`
	FromFile string        `mapstructure:"from-file"`
	Color    string        `mapstructure:"color"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Strict   bool          `mapstructure:"strict"`
	Stats    bool          `mapstructure:"stats"`
	Signal   string        `mapstructure:"signal"`
	DryRun   bool          `mapstructure:"dry-run"`
}

// Default returns the settings used when nothing else is configured
func Default() Config {
	return Config{
		Format:   string(tree_render.FormatTree),
		Strategy: process_tree.StrategyRescan.String(),
		Provider: "auto",
		Color:    "auto",
		Timeout:  30 * time.Second,
		Signal:   "KILL",
	}
}

// Loader reads a Config. Flags win over the environment, the environment
// over the config file, the file over defaults.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a Loader reading files from fs, the OS filesystem when nil
func NewLoader(fs afero.Fs) *Loader {
	v := viper.New()
	if fs != nil {
		v.SetFs(fs)
	}

	d := Default()
	v.SetDefault("format", d.Format)
	v.SetDefault("strategy", d.Strategy)
	v.SetDefault("provider", d.Provider)
	v.SetDefault("proc-root", d.ProcRoot)
	v.SetDefault("from-file", d.FromFile)
	v.SetDefault("color", d.Color)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("strict", d.Strict)
	v.SetDefault("stats", d.Stats)
	v.SetDefault("signal", d.Signal)
	v.SetDefault("dry-run", d.DryRun)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return &Loader{v: v}
}

// Load merges flags with the other sources. An explicit path must exist;
// without one, proctree.yaml is looked up in the user config directory and
// the working directory, and a missing file is fine.
func (l *Loader) Load(flags *pflag.FlagSet, path string) (Config, error) {
	if flags != nil {
		if err := l.v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	if path != "" {
		l.v.SetConfigFile(path)
	} else {
		l.v.SetConfigName("proctree")
		l.v.SetConfigType("yaml")
		if dir, err := os.UserConfigDir(); err == nil {
			l.v.AddConfigPath(filepath.Join(dir, "proctree"))
		}
		l.v.AddConfigPath(".")
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var c Config
	if err := l.v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return c, c.Validate()
}

// ConfigFileUsed returns the file Load read, if any
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Validate checks the enumerated settings
func (c Config) Validate() error {
	var errs []error
	if _, err := tree_render.ParseFormat(c.Format); err != nil {
		errs = append(errs, err)
	}
	if _, err := process_tree.ParseStrategy(c.Strategy); err != nil {
		errs = append(errs, err)
	}
	if !slices.Contains(Providers, strings.ToLower(c.Provider)) {
		errs = append(errs, fmt.Errorf("unknown provider %q", c.Provider))
	}
	switch strings.ToLower(c.Color) {
	case "auto", "always", "never":
	default:
		errs = append(errs, fmt.Errorf("unknown color mode %q", c.Color))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("negative timeout %s", c.Timeout))
	}
	if c.FromFile != "" && c.ProcRoot != "" {
		errs = append(errs, errors.New("from-file and proc-root are mutually exclusive"))
	}
	return multierr.Combine(errs...)
}
